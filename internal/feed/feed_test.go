package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tp(t time.Time) *time.Time { return &t }

func TestLatestMatching_FiltersStaleEntries(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "fresh gaming news",
			Link:            "https://example.com/fresh",
			PublishedParsed: tp(now.Add(-2 * time.Hour)),
			Categories:      []string{"Gaming"},
		},
		{
			Title:           "stale gaming news",
			Link:            "https://example.com/stale",
			PublishedParsed: tp(now.Add(-30 * time.Hour)),
			Categories:      []string{"Gaming"},
		},
	}}

	item := latestMatching(feed, "decrypt", "gaming", time.Time{}, 24*time.Hour, now)
	require.NotNil(t, item)
	assert.Equal(t, "https://example.com/fresh", item.Link)
	assert.Equal(t, "gaming", item.Category)
	assert.Equal(t, now.Add(-2*time.Hour), item.PublishedAt)
}

func TestLatestMatching_WatermarkDedupIsInclusive(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	published := now.Add(-2 * time.Hour)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "only entry",
			Link:            "https://example.com/only",
			PublishedParsed: tp(published),
			Categories:      []string{"gaming"},
		},
	}}

	// since equal to the entry's timestamp excludes it
	assert.Nil(t, latestMatching(feed, "decrypt", "gaming", published, 24*time.Hour, now))

	// since just before it keeps it
	item := latestMatching(feed, "decrypt", "gaming", published.Add(-time.Second), 24*time.Hour, now)
	require.NotNil(t, item)
	assert.Equal(t, "https://example.com/only", item.Link)
}

func TestLatestMatching_CategoryFilterIsCaseInsensitive(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "coins story",
			Link:            "https://example.com/coins",
			PublishedParsed: tp(now.Add(-time.Hour)),
			Categories:      []string{"Coins", "Markets"},
		},
	}}

	assert.NotNil(t, latestMatching(feed, "decrypt", "coins", time.Time{}, 24*time.Hour, now))
	assert.Nil(t, latestMatching(feed, "decrypt", "gaming", time.Time{}, 24*time.Hour, now))
}

func TestLatestMatching_PicksMostRecent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			Title:           "older",
			Link:            "https://example.com/older",
			PublishedParsed: tp(now.Add(-5 * time.Hour)),
			Categories:      []string{"gaming"},
		},
		{
			Title:           "newer",
			Link:            "https://example.com/newer",
			PublishedParsed: tp(now.Add(-1 * time.Hour)),
			Categories:      []string{"gaming"},
		},
	}}

	item := latestMatching(feed, "decrypt", "gaming", time.Time{}, 24*time.Hour, now)
	require.NotNil(t, item)
	assert.Equal(t, "https://example.com/newer", item.Link)
}

func TestEntryTimestamp_FallbackChain(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	published := time.Date(2025, 3, 10, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	updated := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	got := entryTimestamp(&gofeed.Item{PublishedParsed: tp(published), UpdatedParsed: tp(updated)}, now)
	assert.Equal(t, published.UTC(), got)
	assert.Equal(t, time.UTC, got.Location())

	got = entryTimestamp(&gofeed.Item{UpdatedParsed: tp(updated)}, now)
	assert.Equal(t, updated, got)

	got = entryTimestamp(&gofeed.Item{}, now)
	assert.Equal(t, now, got)
}

func TestEntryImage(t *testing.T) {
	withThumb := &gofeed.Item{
		Extensions: ext.Extensions{
			"media": {
				"thumbnail": []ext.Extension{
					{Name: "thumbnail", Attrs: map[string]string{"url": "https://img.example.com/t.jpg"}},
				},
			},
		},
	}
	assert.Equal(t, "https://img.example.com/t.jpg", entryImage(withThumb))

	withEnclosure := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://img.example.com/e.png", Type: "image/png"},
			{URL: "https://example.com/a.mp3", Type: "audio/mpeg"},
		},
	}
	assert.Equal(t, "https://img.example.com/e.png", entryImage(withEnclosure))

	assert.Empty(t, entryImage(&gofeed.Item{}))
}

func TestDecryptReader_GetLatest(t *testing.T) {
	published := time.Now().UTC().Add(-2 * time.Hour)
	rss := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Decrypt</title>
  <item>
    <title>Solana game launches</title>
    <link>https://decrypt.co/solana-game</link>
    <pubDate>%s</pubDate>
    <category>Gaming</category>
    <description>A new on-chain game is live.</description>
  </item>
</channel>
</rss>`, published.Format(time.RFC1123Z))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rss)
	}))
	defer srv.Close()

	reader := NewDecryptReader(Source{Name: "decrypt", URL: srv.URL, Adapter: "decrypt"}, 24*time.Hour)
	item := reader.GetLatest(context.Background(), "gaming", time.Time{})
	require.NotNil(t, item)
	assert.Equal(t, "Solana game launches", item.Title)
	assert.Equal(t, "decrypt", item.Source)
	assert.Equal(t, time.UTC, item.PublishedAt.Location())
}

func TestDecryptReader_FetchFailureDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	reader := NewDecryptReader(Source{Name: "decrypt", URL: srv.URL}, 24*time.Hour)
	assert.Nil(t, reader.GetLatest(context.Background(), "gaming", time.Time{}))
}

func TestBeInCryptoReader_SendsBrowserUserAgent(t *testing.T) {
	published := time.Now().UTC().Add(-time.Hour)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>BeInCrypto</title>
<item>
  <title>Press release</title>
  <link>https://beincrypto.com/pr</link>
  <pubDate>%s</pubDate>
  <category>Press Release</category>
</item>
</channel></rss>`, published.Format(time.RFC1123Z))
	}))
	defer srv.Close()

	reader := NewBeInCryptoReader(Source{Name: "beincrypto", URL: srv.URL}, 24*time.Hour, 5*time.Second)
	item := reader.GetLatest(context.Background(), "press release", time.Time{})
	require.NotNil(t, item)
	assert.Equal(t, browserUserAgent, gotUA)
}

func TestNewRegistry_SkipsUnknownAdapter(t *testing.T) {
	registry := NewRegistry([]Source{
		{Name: "decrypt", URL: "https://decrypt.co/feed", Adapter: "decrypt"},
		{Name: "mystery", URL: "https://example.com/feed", Adapter: "atom-ng"},
	}, 24*time.Hour, 5*time.Second)

	assert.Len(t, registry, 1)
	assert.Contains(t, registry, "decrypt")
}
