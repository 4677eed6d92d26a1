package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	ViaDirect  = "direct"
	ViaBrowser = "browser"

	DefaultTimeout        = 30 * time.Second
	DefaultBrowserTimeout = 60 * time.Second
	DefaultMaxRedirects   = 5

	maxBodySize = 16 << 20
)

// Response is a raw response body. The bytes are not decoded.
type Response struct {
	URL         string
	Body        []byte
	StatusCode  int
	ContentType string
	Charset     string
	Via         string
}

type Options struct {
	Profile        HeaderProfile
	Timeout        time.Duration
	MaxRedirects   int
	BrowserTimeout time.Duration

	// Browser is nil when the browser fallback is disabled.
	Browser Launcher

	// Transport is used for direct fetches, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

type Fetcher struct {
	profile        HeaderProfile
	timeout        time.Duration
	maxRedirects   int
	browserTimeout time.Duration
	browser        Launcher
	transport      http.RoundTripper
}

func New(opts Options) *Fetcher {
	f := &Fetcher{
		profile:        opts.Profile,
		timeout:        opts.Timeout,
		maxRedirects:   opts.MaxRedirects,
		browserTimeout: opts.BrowserTimeout,
		browser:        opts.Browser,
		transport:      opts.Transport,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxRedirects <= 0 {
		f.maxRedirects = DefaultMaxRedirects
	}
	if f.browserTimeout <= 0 {
		f.browserTimeout = DefaultBrowserTimeout
	}
	if f.transport == nil {
		f.transport = http.DefaultTransport
	}
	return f
}

// Fetch tries a direct GET and escalates once to the browser when the failure
// kind calls for it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	resp, err := f.Direct(ctx, url)
	if err == nil {
		return resp, nil
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Kind.Fallback() {
		return f.Fallback(ctx, url, fetchErr)
	}

	return nil, err
}

// Direct performs a plain HTTP GET with a fresh cookie jar.
func (f *Fetcher) Direct(ctx context.Context, url string) (*Response, error) {
	jar, err := newStrictJar()
	if err != nil {
		return nil, &FetchError{Kind: KindUnknown, URL: url, Via: ViaDirect, Err: err}
	}

	client := &http.Client{
		Transport: f.transport,
		Timeout:   f.timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if err := jar.Err(); err != nil {
				return err
			}
			if len(via) > f.maxRedirects {
				return fmt.Errorf("%w after %d hops", errTooManyRedirects, len(via))
			}
			next := req.URL.String()
			for _, prev := range via {
				if prev.URL.String() == next {
					return fmt.Errorf("%w at %s", errRedirectLoop, next)
				}
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindUnknown, URL: url, Via: ViaDirect, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	f.profile.Apply(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransport(err), URL: url, Via: ViaDirect, Err: err}
	}
	defer resp.Body.Close()

	if err := jar.Err(); err != nil {
		return nil, &FetchError{Kind: KindCookieDomainMismatch, URL: url, StatusCode: resp.StatusCode, Via: ViaDirect, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:       classifyStatus(resp.StatusCode),
			URL:        url,
			StatusCode: resp.StatusCode,
			Via:        ViaDirect,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, StatusCode: resp.StatusCode, Via: ViaDirect, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	return &Response{
		URL:         resp.Request.URL.String(),
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Charset:     charsetOf(contentType),
		Via:         ViaDirect,
	}, nil
}

// Fallback fetches url through a fresh browser instance that is released
// before returning. cause is returned unchanged when no browser is configured.
func (f *Fetcher) Fallback(ctx context.Context, url string, cause *FetchError) (*Response, error) {
	if f.browser == nil {
		return nil, cause
	}

	slog.Info("Falling back to headless browser", "url", url, "reason", cause.Kind.String())

	session, err := f.browser.Launch(ctx)
	if err != nil {
		return nil, &FetchError{Kind: KindUnknown, URL: url, Via: ViaBrowser, Err: fmt.Errorf("failed to launch browser: %w", err)}
	}
	defer session.Close()

	result, err := session.Navigate(ctx, url, NavigateOptions{
		WaitUntil: WaitLoad,
		Timeout:   f.browserTimeout,
		UserAgent: f.profile.UserAgent,
		Headers:   f.browserHeaders(),
	})
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Via: ViaBrowser, Err: fmt.Errorf("failed to navigate: %w", err)}
	}

	if result.StatusCode >= 400 {
		return nil, &FetchError{
			Kind:       classifyStatus(result.StatusCode),
			URL:        url,
			StatusCode: result.StatusCode,
			Via:        ViaBrowser,
			Err:        fmt.Errorf("unexpected status %d", result.StatusCode),
		}
	}

	return &Response{
		URL:         url,
		Body:        result.Body,
		StatusCode:  result.StatusCode,
		ContentType: result.MIMEType,
		Charset:     charsetOf(result.MIMEType),
		Via:         ViaBrowser,
	}, nil
}

func (f *Fetcher) browserHeaders() map[string]string {
	headers := f.profile.Headers()
	// the browser sets its own user agent and cache headers
	delete(headers, "User-Agent")
	delete(headers, "Cache-Control")
	delete(headers, "Pragma")
	return headers
}

func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}
