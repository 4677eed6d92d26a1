package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

var errNoDocument = errors.New("no document response captured")

// ChromeLauncher starts a headless Chrome per Launch call.
type ChromeLauncher struct {
	ExecPath string
}

func NewChromeLauncher(execPath string) *ChromeLauncher {
	return &ChromeLauncher{ExecPath: execPath}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	session := &chromeSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	// the first Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return session, nil
}

type chromeSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
}

func (s *chromeSession) Navigate(ctx context.Context, url string, opts NavigateOptions) (*NavigationResult, error) {
	if opts.WaitUntil != "" && opts.WaitUntil != WaitLoad {
		return nil, fmt.Errorf("unsupported wait condition %q", opts.WaitUntil)
	}

	runCtx, cancel := context.WithTimeout(s.ctx, opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu        sync.Mutex
		captured  bool
		requestID network.RequestID
		status    int64
		mimeType  string
	)

	chromedp.ListenTarget(runCtx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if captured {
			return
		}
		captured = true
		requestID = e.RequestID
		status = e.Response.Status
		mimeType = e.Response.MimeType
	})

	headers := make(network.Headers, len(opts.Headers))
	for key, value := range opts.Headers {
		headers[key] = value
	}

	actions := []chromedp.Action{network.Enable()}
	if opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	if len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}

	var body []byte
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			mu.Lock()
			ok, id := captured, requestID
			mu.Unlock()
			if !ok {
				return errNoDocument
			}

			raw, err := network.GetResponseBody(id).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to read response body: %w", err)
			}
			body = raw
			return nil
		}),
	)

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return &NavigationResult{
		Body:       body,
		StatusCode: int(status),
		MIMEType:   mimeType,
	}, nil
}

// Close shuts the browser down and kills the process.
func (s *chromeSession) Close() {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("Browser did not close cleanly", "error", err)
		}
		s.browserCancel()
		s.allocCancel()
	})
}
