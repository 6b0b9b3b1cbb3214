package core

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitize = bluemonday.UGCPolicy()
)

// MarkdownToSafeHTML renders user-authored markdown to HTML and strips anything
// not allowed in user generated content.
func MarkdownToSafeHTML(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		// fall back to the sanitized raw text
		return sanitize.Sanitize(src)
	}
	return sanitize.Sanitize(buf.String())
}
