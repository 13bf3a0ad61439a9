package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractFullArticle_GenericSelectors(t *testing.T) {
	srv := serveHTML(t, `<html><head><title>Page title</title></head><body>
<h1>Bitcoin breaks out</h1>
<article>
<p>Bitcoin climbed sharply on Monday as traders piled in.</p>
<p>Analysts pointed to renewed institutional demand.</p>
<p>promo</p>
</article>
</body></html>`)

	article, err := New(5*time.Second).ExtractFullArticle(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Bitcoin breaks out", article.Title)
	assert.Equal(t, srv.URL, article.URL)
	assert.Contains(t, article.Content, "Bitcoin climbed sharply")
	assert.Contains(t, article.Content, "institutional demand")
	// Short nodes like nav crumbs and ad slots are dropped.
	assert.NotContains(t, article.Content, "promo")
}

func TestExtractFullArticle_FallbackSelector(t *testing.T) {
	srv := serveHTML(t, `<html><body>
<main>
<p>Only the main column carries the story paragraphs here.</p>
</main>
</body></html>`)

	article, err := New(5*time.Second).ExtractFullArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, article.Content, "main column carries the story")
}

func TestExtractFullArticle_NoContent(t *testing.T) {
	srv := serveHTML(t, `<html><body><div>nothing article-shaped</div></body></html>`)

	_, err := New(5*time.Second).ExtractFullArticle(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestExtractFullArticle_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(5*time.Second).ExtractFullArticle(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestExtractContentBySource_SiteSelectors(t *testing.T) {
	decryptHTML := `<html><body>
<div class="post-content">
<p>Decrypt story paragraph one, long enough to keep.</p>
<p>Decrypt story paragraph two, also long enough.</p>
</div>
</body></html>`
	beincryptoHTML := `<html><body>
<div class="entry-content">
<p>BeInCrypto press release body paragraph.</p>
</div>
</body></html>`

	doc := parseDoc(t, decryptHTML)
	content := extractContentBySource(doc, "https://decrypt.co/123/story")
	assert.Contains(t, content, "paragraph one")
	assert.Contains(t, content, "paragraph two")

	doc = parseDoc(t, beincryptoHTML)
	content = extractContentBySource(doc, "https://beincrypto.com/press-release/story")
	assert.Contains(t, content, "press release body")
}

func TestCleanContent(t *testing.T) {
	in := strings.Join([]string{
		"The actual story text goes here.",
		"Decrypt’s Art, Fashion, and Entertainment Hub. Discover SCENE",
		"More story text.",
		"Edited by Somebody Important.",
		"Disclaimer: not financial advice.",
	}, "\n\n")

	out := cleanContent(in)
	assert.Contains(t, out, "actual story text")
	assert.Contains(t, out, "More story text.")
	assert.NotContains(t, out, "SCENE")
	assert.NotContains(t, out, "Edited by")
	assert.NotContains(t, out, "Disclaimer")
}

func TestExtractTitle_FallsBackToTitleTag(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>Tab title</title></head><body><p>text</p></body></html>`)
	assert.Equal(t, "Tab title", extractTitle(doc))
}
