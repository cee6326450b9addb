package auth

import (
	"strings"

	"github.com/ryanuber/go-glob"
)

// MatchPath matches request paths against ant-style patterns. A trailing
// "/**" matches the prefix itself and everything below it; other patterns
// are globs where "*" matches any run of characters.
func MatchPath(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == prefix || glob.Glob(prefix+"/*", path)
	}
	return glob.Glob(pattern, path)
}
