package render

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown turns assistant markdown into HTML that is safe to embed.
type Markdown interface {
	ToSafeHTML(src string) string
}

// GoldmarkMarkdown renders GitHub-flavoured markdown with goldmark and runs
// the result through a bluemonday UGC policy. goldmark already drops raw
// HTML; the policy also strips script URLs and event attributes.
type GoldmarkMarkdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var _ Markdown = &GoldmarkMarkdown{}

func NewGoldmarkMarkdown() *GoldmarkMarkdown {
	return &GoldmarkMarkdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (g *GoldmarkMarkdown) ToSafeHTML(src string) string {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		log.Warn().Err(err).Msg("markdown conversion failed, falling back to escaped text")
		return EscapeHTML(src)
	}
	return g.policy.Sanitize(buf.String())
}

// EscapeHTML escapes text so it is shown literally, never interpreted.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}
