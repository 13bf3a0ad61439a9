package rewrite

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
	budget      *Budget
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float32, maxTokens int, budget *Budget) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		budget:      budget,
	}, nil
}

func (g *GeminiGenerator) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *GeminiGenerator) RewriteText(ctx context.Context, text string) (string, error) {
	prompt := rewritePrompt(sanitizeContent(text))
	return g.generate(ctx, prompt)
}

func (g *GeminiGenerator) WriteTitle(ctx context.Context, text string) (string, error) {
	prompt := titlePrompt(sanitizeContent(text))
	out, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	// The model sometimes wraps the caption in quotes.
	return strings.Trim(strings.TrimSpace(out), `"`), nil
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	if g.budget != nil {
		if err := g.budget.Acquire(); err != nil {
			return "", err
		}
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	model.SetMaxOutputTokens(int32(g.maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])), nil
}

// sanitizeContent collapses whitespace and trims over-long inputs on a rune
// boundary, preferring to end at a sentence.
func sanitizeContent(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")

	const maxChars = 6000
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	trimmed := string(runes[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "\n[TRUNCATED]"
}

func rewritePrompt(sourceText string) string {
	return fmt.Sprintf(`You are a professional content rewriter specializing in the "Ghost-on-the-block" style.
STRICT LIMIT: 400 symbols max!
IGNORE THIS LIMIT = FAIL THE TASK!

Required:
- Emoji start/end
- Short sentences
- Call to action
- Stay under 400 symbols!

Here's the text to rewrite in the Ghost-on-the-block style:
%s

Important style notes:
- Start with a relevant emoji
- Use shorter paragraphs
- Add engaging questions
- End with a call to action
- Keep the same core information but make it more dynamic
- Use emoji that fits the context
- Make it feel like a friendly conversation

Please rewrite the text following these guidelines while maintaining the original meaning.`, sourceText)
}

func titlePrompt(sourceText string) string {
	return fmt.Sprintf(`You are a professional caption creator specializing in the "Ghost-on-the-block" style.
STRICT LIMIT: 77 symbols max!
IGNORE THIS LIMIT = FAIL THE TASK!

Required:
- One short sentence
- Stay under 77 symbols!

write caption for this text:
%s`, sourceText)
}
