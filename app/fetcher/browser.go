package fetcher

import (
	"context"
	"time"
)

const WaitLoad = "load"

// Launcher starts an isolated browser instance.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one browser instance. Close must be safe to call more than once.
type Session interface {
	Navigate(ctx context.Context, url string, opts NavigateOptions) (*NavigationResult, error)
	Close()
}

type NavigateOptions struct {
	WaitUntil string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// NavigationResult is the raw main-document response, not the rendered DOM.
type NavigationResult struct {
	Body       []byte
	StatusCode int
	MIMEType   string
}
