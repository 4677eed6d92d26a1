package fetcher

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// strictJar is a cookie jar that remembers the first cookie whose Domain
// attribute does not cover the host that set it. Such cookies are dropped.
type strictJar struct {
	jar *cookiejar.Jar

	mu  sync.Mutex
	err error
}

func newStrictJar() (*strictJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &strictJar{jar: jar}, nil
}

func (j *strictJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := strings.ToLower(u.Hostname())

	accepted := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		if cookie.Domain != "" && !domainMatches(host, cookie.Domain) {
			j.mu.Lock()
			if j.err == nil {
				j.err = fmt.Errorf("%w: cookie %q for domain %q set by %s", errCookieDomain, cookie.Name, cookie.Domain, host)
			}
			j.mu.Unlock()
			continue
		}
		accepted = append(accepted, cookie)
	}

	j.jar.SetCookies(u, accepted)
}

func (j *strictJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *strictJar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func domainMatches(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
