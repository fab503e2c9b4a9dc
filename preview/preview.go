// ABOUTME: Renders resolved editor content to sanitized HTML for the preview pane.
// ABOUTME: Markdown goes through goldmark; the output is filtered by a bluemonday UGC policy.

package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
)

// Result is a rendered preview.
type Result struct {
	HTML   string
	Images int
	Words  int
}

// Renderer converts content to safe HTML. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New returns a Renderer. Inline data-URI images are allowed through the
// sanitizer so pending images render in the preview.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			html.WithHardWraps(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.AllowAttrs("width", "height", "loading").OnElements("img")

	return &Renderer{md: md, policy: policy}
}

// Render converts content to sanitized HTML and counts its images and words.
func (r *Renderer) Render(content string) (Result, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	safe := r.policy.SanitizeBytes(buf.Bytes())

	res := Result{HTML: string(safe)}
	res.Images, res.Words = count(safe)
	return res, nil
}

func count(doc []byte) (images, words int) {
	z := xhtml.NewTokenizer(bytes.NewReader(doc))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return images, words
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "img" {
				images++
			}
		case xhtml.TextToken:
			words += len(strings.Fields(string(z.Text())))
		}
	}
}
