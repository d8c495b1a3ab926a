package auth

import "net/http"

// Identity header names written by the gate.
const (
	HeaderUserID       = "X-User-Id"
	HeaderUserRole     = "X-User-Role"
	HeaderUserEmail    = "X-User-Email"
	HeaderUserFullName = "X-User-FullName"
)

// IdentityHeaders lists every header the gate owns. Names are matched
// case-insensitively, so X-User-FullName travels as X-User-Fullname.
var IdentityHeaders = []string{
	HeaderUserID,
	HeaderUserRole,
	HeaderUserEmail,
	HeaderUserFullName,
}

// applyIdentityHeaders overrides the identity headers in h. Headers for
// absent optional claims are removed so a client value cannot survive.
func applyIdentityHeaders(h http.Header, identity *Identity) {
	h.Set(HeaderUserID, identity.UserID)
	setOrDelete(h, HeaderUserRole, identity.Role)
	setOrDelete(h, HeaderUserEmail, identity.Email)
	setOrDelete(h, HeaderUserFullName, identity.FullName)
}

func setOrDelete(h http.Header, name, value string) {
	if value == "" {
		h.Del(name)
		return
	}
	h.Set(name, value)
}

// hasIdentityHeaders reports whether any identity header is present.
func hasIdentityHeaders(h http.Header) bool {
	for _, name := range IdentityHeaders {
		if len(h.Values(name)) > 0 {
			return true
		}
	}
	return false
}

func deleteIdentityHeaders(h http.Header) {
	for _, name := range IdentityHeaders {
		h.Del(name)
	}
}
