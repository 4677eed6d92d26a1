package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure where it happens.
type Kind int

const (
	KindUnknown Kind = iota
	KindRedirectLoop
	KindBlocked
	KindCookieDomainMismatch
	KindMarkupUnencoded
	KindNetwork
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindRedirectLoop:         "redirect_loop",
	KindBlocked:              "blocked",
	KindCookieDomainMismatch: "cookie_domain_mismatch",
	KindMarkupUnencoded:      "markup_unencoded",
	KindNetwork:              "network",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fallback reports whether a failure of this kind is retried through the browser.
func (k Kind) Fallback() bool {
	switch k {
	case KindRedirectLoop, KindBlocked, KindCookieDomainMismatch, KindMarkupUnencoded:
		return true
	default:
		return false
	}
}

type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Via        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch of %s failed (%s, HTTP %d): %v", e.Via, e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch of %s failed (%s): %v", e.Via, e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first FetchError in err's chain.
func KindOf(err error) Kind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return KindUnknown
}

var (
	errRedirectLoop     = errors.New("redirect loop detected")
	errTooManyRedirects = errors.New("too many redirects")
	errCookieDomain     = errors.New("cookie domain does not match host")
	errBodyTooLarge     = errors.New("response body too large")
)

func classifyStatus(status int) Kind {
	switch status {
	case 403, 503:
		return KindBlocked
	default:
		return KindUnknown
	}
}

func classifyTransport(err error) Kind {
	switch {
	case errors.Is(err, errRedirectLoop), errors.Is(err, errTooManyRedirects):
		return KindRedirectLoop
	case errors.Is(err, errCookieDomain):
		return KindCookieDomainMismatch
	default:
		return KindNetwork
	}
}
