package urlutil

import (
	"net/url"
	"strings"
)

// CompleteProtocolRelative turns a protocol-relative address ("//host/path")
// into an explicit https address. Other inputs are returned unchanged.
func CompleteProtocolRelative(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// JoinPath appends escaped path segments to base, keeping base's own path.
// A trailing slash on base is ignored.
func JoinPath(base url.URL, segments ...string) url.URL {
	joined := base.JoinPath(segments...)
	return *joined
}

// Extension returns the lower-cased suffix after the last '.' of the URL's
// final path segment, or "" when there is none.
func Extension(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	i := strings.LastIndex(path, ".")
	if i < 0 || i == len(path)-1 {
		return ""
	}
	return lowerASCII(path[i+1:])
}

// lowerASCII converts ASCII characters to lowercase without allocating
// when the input is already lowercase.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}

	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
