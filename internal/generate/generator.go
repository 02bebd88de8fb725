package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

var ErrUnavailable = errors.New("generation is not configured")

const systemPrompt = `You draw pictograms as SVG. Reply with a single <svg> element and nothing else.
Use a viewBox of "0 0 100 100" and only these elements: g, rect, circle, ellipse, line, polygon, polyline, path.
Prefer simple flat shapes with a small palette. Do not use scripts, external references or text.`

// Generator asks a model for a pictogram and turns the reply into a
// document tree.
type Generator struct {
	completer Completer
}

// NewGenerator returns a generator backed by c. A nil c yields a generator
// that always reports ErrUnavailable.
func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c}
}

// Generate returns the tree drawn for prompt. When the reply holds no
// usable svg the error is a *document.ParseError, so callers can fall back
// to an empty document and show the message.
func (g *Generator) Generate(ctx context.Context, prompt string) (*document.Node, error) {
	if g == nil || g.completer == nil {
		return nil, ErrUnavailable
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}

	reply, err := g.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	markup, ok := ExtractSVG(reply)
	if !ok {
		slog.Warn("reply has no svg", "length", len(reply))
		return nil, &document.ParseError{Msg: "model reply contains no <svg> element"}
	}
	return document.FromMarkup(markup)
}

// ExtractSVG returns the first <svg ...>...</svg> block of text, ignoring
// any prose or code fences around it.
func ExtractSVG(text string) (string, bool) {
	lower := asciiLower(text)
	start := -1
	for i := 0; ; {
		j := strings.Index(lower[i:], "<svg")
		if j < 0 {
			break
		}
		j += i
		if k := j + len("<svg"); k < len(lower) && (lower[k] == '>' || lower[k] == ' ' || lower[k] == '\n' || lower[k] == '\t' || lower[k] == '\r' || lower[k] == '/') {
			start = j
			break
		}
		i = j + 1
	}
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(lower, "</svg>")
	if end < start {
		return "", false
	}
	return text[start : end+len("</svg>")], true
}

// asciiLower folds only A-Z so byte offsets into the result stay valid in
// the original. strings.ToLower may change the length of non-ASCII runes.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
