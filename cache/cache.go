package cache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Tag returns a weak entity tag for a response body.
func Tag(body []byte) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(body))
}

// Matches reports whether an If-None-Match header value names etag.
// Comparison is weak, so W/ prefixes are ignored on both sides.
func Matches(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
