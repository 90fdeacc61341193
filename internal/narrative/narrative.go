// Package narrative produces the analysis text of a report, falling back to
// fixed sentences whenever the language model cannot answer.
package narrative

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/yuin/goldmark"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/fallback"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/llm"
)

// DefaultMaxTokens matches the completion budget of the original service.
const DefaultMaxTokens = 250

// Fallbacks are returned when generation is unavailable. They never depend
// on the failed call's output.
var Fallbacks = []string{
	"This project shows promising results in reducing deforestation by implementing sustainable land management practices. The main drivers of deforestation in this area appear to be agricultural expansion and illegal logging.",
	"Based on the project documentation, the primary challenges in the project area are related to governance issues and competing land uses. The project has established a monitoring system that tracks forest cover changes on a quarterly basis.",
	"Analysis of this project indicates moderate effectiveness in addressing deforestation drivers. The project has implemented community-based forest management approaches that have shown initial success, but long-term sustainability remains a concern.",
}

// IsFallback reports whether text is one of the fixed fallback sentences.
func IsFallback(text string) bool {
	for _, f := range Fallbacks {
		if text == f {
			return true
		}
	}
	return false
}

var errEmptyOutput = errors.New("model returned no text")

var md = goldmark.New()

// Generator wraps an LLM provider. The zero value is not usable; call New.
type Generator struct {
	provider  llm.Provider
	maxTokens int
	timeout   time.Duration
	pick      func(n int) int
}

// New returns a generator over p. A nil provider behaves like
// llm.Unconfigured.
func New(p llm.Provider, maxTokens int, timeout time.Duration) *Generator {
	if p == nil {
		p = llm.Unconfigured{}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{provider: p, maxTokens: maxTokens, timeout: timeout, pick: rand.IntN}
}

// Generate returns the model's answer to prompt, or a fallback sentence with
// ok=false if the model errors, times out or returns nothing usable.
func (g *Generator) Generate(ctx context.Context, projectCode, prompt string) (text string, ok bool) {
	text, ok = fallback.Call(ctx, "generation", projectCode, g.timeout,
		func(ctx context.Context) (string, error) {
			out, err := g.provider.Generate(ctx, prompt, g.maxTokens)
			if err != nil {
				return "", err
			}
			out = clean(out, prompt)
			if out == "" {
				return "", errEmptyOutput
			}
			return out, nil
		},
		"",
	)
	if !ok {
		return Fallbacks[g.pick(len(Fallbacks))], false
	}
	return text, true
}

// RenderHTML converts narrative markdown to HTML. Raw HTML in the input is
// not passed through.
func RenderHTML(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return buf.String()
}
