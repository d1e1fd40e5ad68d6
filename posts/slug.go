package posts

import (
	"regexp"
	"strings"
)

var (
	nonWordRe = regexp.MustCompile(`[^\w ]+`)
	spacesRe  = regexp.MustCompile(` +`)
)

// generateSlug lowercases the title, drops everything except word
// characters and spaces, and turns each run of spaces into one hyphen.
// "Hello World" becomes "hello-world".
func generateSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonWordRe.ReplaceAllString(slug, "")
	slug = strings.TrimSpace(slug)
	return spacesRe.ReplaceAllString(slug, "-")
}
