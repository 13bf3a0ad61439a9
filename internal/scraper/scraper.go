// Package scraper extracts full article text so the rewriter works from the
// whole story, not the feed summary.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

type Scraper struct {
	client *http.Client
}

func New(timeout time.Duration) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
	}
}

// ExtractFullArticle gets full text of article by URL.
func (s *Scraper) ExtractFullArticle(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := extractContentBySource(doc, url)
	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     url,
	}, nil
}

// extractContentBySource picks the selector set for the news site.
func extractContentBySource(doc *goquery.Document, url string) string {
	var content string

	switch {
	case strings.Contains(url, "decrypt.co"):
		content = extractBySelectors(doc, []string{
			".post-content p",
			"article .grid p",
			"article p",
		})
	case strings.Contains(url, "beincrypto.com"):
		content = extractBySelectors(doc, []string{
			".entry-content p",
			".article-content p",
			"article p",
		})
	default:
		content = extractBySelectors(doc, []string{
			"article p",
			".article-body p",
			".content p",
			"main p",
		})
	}

	return cleanContent(content)
}

// extractBySelectors tries selectors in order, keeping the first that yields
// paragraphs.
func extractBySelectors(doc *goquery.Document, selectors []string) string {
	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 10 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").Text())
}

// cleanContent strips site boilerplate that would otherwise leak into the
// rewritten post.
func cleanContent(content string) string {
	content = strings.ReplaceAll(content, "Decrypt’s Art, Fashion, and Entertainment Hub. Discover SCENE", "")
	if idx := strings.Index(content, "Edited by"); idx > 0 {
		content = content[:idx]
	}
	if idx := strings.Index(content, "Disclaimer"); idx > 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}
