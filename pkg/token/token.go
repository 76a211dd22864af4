// Package token reads the anti-forgery token that mutating API requests
// must carry.
package token

import (
	"net/http"
	"net/url"
	"strings"
)

// Provider yields the current token. ok is false when no token is available,
// in which case callers omit the header and let the server decide.
type Provider interface {
	Token() (value string, ok bool)
}

// CookieString looks up name in a semicolon-delimited cookie string such as
// "sessionid=abc; csrftoken=x%2By" and returns the percent-decoded value.
func CookieString(raw string, name string) (string, bool) {
	if raw == "" || name == "" {
		return "", false
	}
	prefix := name + "="
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, prefix) {
			continue
		}
		v, err := url.PathUnescape(part[len(prefix):])
		if err != nil {
			return "", false
		}
		return v, true
	}
	return "", false
}

// StringProvider re-reads its source on every call.
type StringProvider struct {
	Source func() string
	Name   string
}

var _ Provider = StringProvider{}

func (p StringProvider) Token() (string, bool) {
	if p.Source == nil {
		return "", false
	}
	return CookieString(p.Source(), p.Name)
}

// Static returns a provider over a fixed cookie string.
func Static(raw string, name string) StringProvider {
	return StringProvider{Source: func() string { return raw }, Name: name}
}

// JarProvider reads the token from the cookies a jar holds for URL, so a
// token refreshed by a Set-Cookie response is picked up on the next request.
type JarProvider struct {
	Jar  http.CookieJar
	URL  *url.URL
	Name string
}

var _ Provider = JarProvider{}

func (p JarProvider) Token() (string, bool) {
	if p.Jar == nil || p.URL == nil {
		return "", false
	}
	for _, c := range p.Jar.Cookies(p.URL) {
		if c.Name != p.Name {
			continue
		}
		v, err := url.PathUnescape(c.Value)
		if err != nil {
			return "", false
		}
		return v, true
	}
	return "", false
}

// Seed loads a raw cookie string into jar for u. Malformed pairs are skipped.
func Seed(jar http.CookieJar, u *url.URL, raw string) {
	if jar == nil || u == nil || strings.TrimSpace(raw) == "" {
		return
	}
	var cookies []*http.Cookie
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		name, value, found := strings.Cut(part, "=")
		if !found || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(u, cookies)
}
