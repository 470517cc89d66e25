package crud

import (
	"net/http"
	"strings"
)

// contentRangeHeader carries the pagination window and total count on list
// responses. Browsers only let cross-origin scripts read it when it appears
// in the CORS header lists below.
const contentRangeHeader = "Content-Range"

// corsListHeaders are the CORS response headers whose comma-separated
// lists must include Content-Range.
var corsListHeaders = []string{
	"Access-Control-Expose-Headers",
	"Access-Control-Allow-Headers",
}

// ExposeContentRange is middleware that appends Content-Range to the CORS
// header lists before the wrapped handler writes its response. Existing
// entries are preserved and a second application is a no-op. A header that
// already holds multiple values is left untouched.
func ExposeContentRange(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, name := range corsListHeaders {
			appendHeaderToken(w.Header(), name, contentRangeHeader)
		}
		next.ServeHTTP(w, r)
	})
}

// appendHeaderToken adds token to the comma-separated list stored under
// name, unless it is already present. Header names compare
// case-insensitively, so an existing "content-range" entry counts.
func appendHeaderToken(h http.Header, name, token string) {
	values := h.Values(name)
	if len(values) > 1 {
		// Not a single list value; leave it for whoever set it.
		return
	}

	var list []string
	if len(values) == 1 {
		for _, part := range strings.Split(values[0], ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
	}

	for _, existing := range list {
		if strings.EqualFold(existing, token) {
			return
		}
	}

	list = append(list, token)
	h.Set(name, strings.Join(list, ", "))
}
