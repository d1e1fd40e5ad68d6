package posts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Hello   World  ", "hello-world"},
		{"Go 1.22: What's New?", "go-122-whats-new"},
		{"snake_case stays", "snake_case-stays"},
		{"Tabs\tare\tdropped", "tabsaredropped"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, generateSlug(tt.title))
		})
	}
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags(`["go", "web"]`)
	assert.NoError(t, err)
	assert.Equal(t, []string{"go", "web"}, tags)

	tags, err = parseTags("go, web ,")
	assert.NoError(t, err)
	assert.Equal(t, []string{"go", " web ", ""}, tags)
	assert.Equal(t, []string{"go", "web"}, normalizeTags(tags))

	_, err = parseTags(`["go",`)
	assert.Error(t, err)
}

func TestRenderMarkdown(t *testing.T) {
	html, err := formatContent("# Title\n\nSome *emphasis*.", FormatMarkdown)
	assert.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<em>emphasis</em>")

	raw, err := formatContent("<p>hi</p>", "")
	assert.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", raw)

	_, err = formatContent("x", "rst")
	assert.Error(t, err)
}
