package jwt

import (
	"errors"
	"net/http"
)

// DefaultCookieName is the cookie the session token is issued in.
const DefaultCookieName = "token"

// ErrMissingCookie is returned when the request carries no token cookie,
// or carries it with an empty value.
var ErrMissingCookie = errors.New("missing cookie")

// TokenExtractor defines the interface for extracting tokens from HTTP requests.
type TokenExtractor interface {
	// Extract extracts a token from the request.
	Extract(r *http.Request) (string, error)
}

// CookieExtractor extracts tokens from cookies.
type CookieExtractor struct {
	cookie string
}

// NewCookieExtractor creates a new cookie extractor.
// If cookie is empty, it defaults to DefaultCookieName.
func NewCookieExtractor(cookie string) *CookieExtractor {
	if cookie == "" {
		cookie = DefaultCookieName
	}
	return &CookieExtractor{
		cookie: cookie,
	}
}

// Name returns the cookie name.
func (e *CookieExtractor) Name() string {
	return e.cookie
}

// Extract extracts the token from the cookie. When the cookie appears more
// than once the first occurrence wins.
func (e *CookieExtractor) Extract(r *http.Request) (string, error) {
	cookie, err := r.Cookie(e.cookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrMissingCookie
		}
		return "", err
	}

	if cookie.Value == "" {
		return "", ErrMissingCookie
	}

	return cookie.Value, nil
}

// ExtractorFunc is a function type that implements TokenExtractor.
type ExtractorFunc func(r *http.Request) (string, error)

// Extract implements TokenExtractor.
func (f ExtractorFunc) Extract(r *http.Request) (string, error) {
	return f(r)
}
