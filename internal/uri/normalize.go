// Package uri canonicalizes the relative media URIs written into manifests.
package uri

import (
	"net/url"
	"path"
	"strings"
)

// IsAbsolute reports whether s carries a scheme ("http://host/...").
func IsAbsolute(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Normalize collapses duplicate slashes, "." and ".." segments of a relative
// URI and makes sure it lives under prefix. Segments that would climb above
// the root are dropped. Rooted paths and absolute URLs are only cleaned.
// Normalize(Normalize(s, p), p) == Normalize(s, p).
func Normalize(s string, prefix string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if IsAbsolute(s) {
		u, _ := url.Parse(s)
		if u.Path != "" {
			u.Path = path.Clean("/" + u.Path)
		}
		return u.String()
	}

	cleaned := clean(s)
	if strings.HasPrefix(s, "/") {
		return "/" + cleaned
	}

	if p := clean(prefix); p != "" && cleaned != p && !strings.HasPrefix(cleaned, p+"/") {
		cleaned = strings.TrimSuffix(p+"/"+cleaned, "/")
	}
	return cleaned
}

// Join appends a relative suffix to a base path or URL, normalizing the
// boundary so exactly one slash separates them.
func Join(base string, suffix string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	suffix = clean(suffix)
	if suffix == "" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + "/" + suffix
}

// clean returns s without leading or trailing slashes and with every
// "."/".." segment resolved inside the root.
func clean(s string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(s))
	return strings.Trim(cleaned, "/")
}
