package fetcher

import "net/http"

// HeaderProfile is the set of request headers a fetch presents.
type HeaderProfile struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Extra          map[string]string
}

const defaultAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, application/json;q=0.8, text/html;q=0.7, */*;q=0.5"

func (p HeaderProfile) Apply(req *http.Request) {
	for key, value := range p.Headers() {
		req.Header.Set(key, value)
	}
}

// Headers returns the profile as a header map. User-Agent is included.
func (p HeaderProfile) Headers() map[string]string {
	headers := map[string]string{
		"Accept":        defaultAccept,
		"Cache-Control": "no-cache",
		"Pragma":        "no-cache",
	}
	if p.Accept != "" {
		headers["Accept"] = p.Accept
	}
	if p.UserAgent != "" {
		headers["User-Agent"] = p.UserAgent
	}
	if p.AcceptLanguage != "" {
		headers["Accept-Language"] = p.AcceptLanguage
	}
	for key, value := range p.Extra {
		headers[key] = value
	}
	return headers
}
