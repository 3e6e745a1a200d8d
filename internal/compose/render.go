// Package compose turns drafts into requests for the SMTP service: it
// renders the body in the chosen format and addresses it to the current
// selection.
package compose

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/nhle/automail/internal/model"
)

// Body is a rendered draft body. Text is always set and is what plain
// mail clients show; HTML is set only for markdown and html drafts.
type Body struct {
	Text string
	HTML string
}

// IsHTML reports whether the body should be sent as HTML.
func (b Body) IsHTML() bool {
	return b.HTML != ""
}

// Renderer converts draft bodies. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	strip  *bluemonday.Policy
}

// NewRenderer creates a renderer with GitHub-flavoured markdown and a
// user-content sanitizing policy.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldhtml.WithHardWraps()),
	)

	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)

	return &Renderer{
		md:     md,
		policy: p,
		strip:  bluemonday.StrictPolicy(),
	}
}

var defaultRenderer = NewRenderer()

// Render renders d with the default renderer and returns the body to
// send along with whether it is HTML.
func Render(d model.Draft) (string, bool, error) {
	b, err := defaultRenderer.Render(d)
	if err != nil {
		return "", false, err
	}
	if b.IsHTML() {
		return b.HTML, true, nil
	}
	return b.Text, false, nil
}

// Render converts the draft body according to its format.
func (r *Renderer) Render(d model.Draft) (Body, error) {
	switch d.Format {
	case model.FormatPlain, "":
		return Body{Text: d.Body}, nil

	case model.FormatMarkdown:
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(d.Body), &buf); err != nil {
			return Body{}, fmt.Errorf("rendering markdown: %w", err)
		}
		return Body{
			Text: d.Body,
			HTML: strings.TrimSpace(r.policy.Sanitize(buf.String())),
		}, nil

	case model.FormatHTML:
		safe := strings.TrimSpace(r.policy.Sanitize(d.Body))
		return Body{
			Text: r.PlainText(safe),
			HTML: safe,
		}, nil
	}
	return Body{}, fmt.Errorf("unknown body format %q", d.Format)
}

// PlainText strips every tag from s and unescapes entities.
func (r *Renderer) PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(r.strip.Sanitize(s)))
}
