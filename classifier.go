package shellcache

import "strings"

// Category is the request class a caching policy is selected by.
type Category int

const (
	// CategoryStatic requests are served cache-first: app-shell documents
	// and any other asset not recognized as dynamic.
	CategoryStatic Category = iota
	// CategoryAPI requests are served network-first: dynamic backend routes
	// whose data is preferred fresh whenever the origin is reachable.
	CategoryAPI
)

func (c Category) String() string {
	if c == CategoryAPI {
		return "api"
	}
	return "static"
}

// apiPrefixes are the backend route prefixes of the origin API.
var apiPrefixes = []string{
	"/students",
	"/scan",
	"/pending",
	"/logs",
	"/api/",
}

// Classify decides which caching policy applies to a request path.
// It is total: every path gets exactly one category. Callers pass the
// path component only, so query strings never influence the result.
func Classify(path string) Category {
	if path == "/health" {
		return CategoryAPI
	}
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return CategoryAPI
		}
	}
	return CategoryStatic
}
