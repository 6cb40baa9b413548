package blog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

const previewWords = 30

var htmlSanitizer = bluemonday.UGCPolicy()

// RenderHTML converts markdown to sanitised HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if errConvert := goldmark.Convert([]byte(markdown), &buf); errConvert != nil {
		return "", fmt.Errorf("blog: render markdown: %w", errConvert)
	}
	return htmlSanitizer.Sanitize(buf.String()), nil
}

// ShortDescription returns the first thirty words of content, with "..." when cut.
func ShortDescription(content string) string {
	words := strings.Fields(content)
	if len(words) <= previewWords {
		return content
	}
	return strings.Join(words[:previewWords], " ") + "..."
}
