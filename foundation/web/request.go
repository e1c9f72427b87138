package web

import (
	"net/http"

	"github.com/dimfeld/httptreemux/v5"
)

// Param returns the web call parameters from the request.
func Param(r *http.Request, key string) string {
	m := httptreemux.ContextParams(r.Context())
	return m[key]
}

// Query returns the named query string value from the request. A route
// parameter of the same name takes precedence.
func Query(r *http.Request, key string) string {
	if v := Param(r, key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}
