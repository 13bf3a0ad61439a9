// Package rewrite turns raw article text into a length-bounded, formatted
// post body.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/newspulse/internal/logger"
)

// Footer is the fixed hashtag line appended to every post.
const Footer = "#crypto #news 👻"

// Generator is the text-generation backend. Output is non-deterministic;
// callers must treat it as length-constrained, not value-equal.
type Generator interface {
	RewriteText(ctx context.Context, text string) (string, error)
	WriteTitle(ctx context.Context, text string) (string, error)
}

// Result is the assembled post. Length is the rune count of Text, i.e. the
// final formatted string that must fit the delivery caption limit.
type Result struct {
	Text   string
	Length int
}

// TooLongError reports that no attempt fit within the length budget.
type TooLongError struct {
	Original    string
	LastAttempt string
	Length      int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("rewritten news is too long: %d characters in last attempt", e.Length)
}

type Engine struct {
	gen       Generator
	maxLength int
	maxTries  int
}

func NewEngine(gen Generator, maxLength, maxTries int) *Engine {
	return &Engine{gen: gen, maxLength: maxLength, maxTries: maxTries}
}

// Rewrite loops up to maxTries: generate a body, generate a caption,
// assemble the formatted post, and return the first attempt that fits
// maxLength. Exhaustion returns *TooLongError carrying the last attempt.
// Generator failures are returned as-is; the caller's job boundary handles
// them.
func (e *Engine) Rewrite(ctx context.Context, sourceText, titleHint string) (*Result, error) {
	var lastText string
	var lastLength int

	for attempt := 1; attempt <= e.maxTries; attempt++ {
		body, err := e.gen.RewriteText(ctx, sourceText)
		if err != nil {
			return nil, fmt.Errorf("rewrite step failed: %w", err)
		}
		title, err := e.gen.WriteTitle(ctx, titleHint)
		if err != nil {
			return nil, fmt.Errorf("title step failed: %w", err)
		}

		text := Assemble(title, body)
		length := utf8.RuneCountInString(text)
		if length <= e.maxLength {
			return &Result{Text: text, Length: length}, nil
		}

		lastText = text
		lastLength = length
		logger.Warn("rewritten news over length budget", "attempt", attempt, "length", length, "max_length", e.maxLength)
	}

	return nil, &TooLongError{
		Original:    sourceText,
		LastAttempt: lastText,
		Length:      lastLength,
	}
}

// Assemble builds the final post: uppercase bold title line, blank line,
// body with links normalized, blank line, fixed footer.
func Assemble(title, body string) string {
	title = strings.ToUpper(strings.TrimSpace(title))
	body = normalizeLinks(strings.TrimSpace(body))

	var b strings.Builder
	if title != "" {
		b.WriteString("<b>" + title + "</b>\n\n")
	}
	b.WriteString(body)
	b.WriteString("\n\n" + Footer)
	return b.String()
}

var markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)

// normalizeLinks rewrites markdown-style links the model tends to emit into
// the single inline form the delivery transport renders.
func normalizeLinks(text string) string {
	return markdownLinkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
}
