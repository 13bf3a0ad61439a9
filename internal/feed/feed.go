// Package feed selects the freshest not-yet-published entry per
// (source, category) from the configured RSS sources.
package feed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/newspulse/internal/logger"
)

// NewsItem is a single qualifying feed entry. PublishedAt is always UTC;
// Category is always lowercase. Link is the item identity.
type NewsItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Source      string
	Category    string
	Summary     string
	ImgLink     string // optional
}

// Source describes one configured feed endpoint and which adapter parses it.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Adapter string `yaml:"adapter"`
}

// Reader fetches a source's feed and returns the single freshest entry in
// the given category published after since (zero since = no watermark yet).
// Fetch and parse failures degrade to a nil result with a logged warning;
// one source's failure never affects another source's job.
type Reader interface {
	GetLatest(ctx context.Context, category string, since time.Time) *NewsItem
}

// sourcesFile is the YAML config structure
// sources:
//   - name: decrypt
//     url: https://decrypt.co/feed
//     adapter: decrypt
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the feed source list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg sourcesFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse feeds config: %w", err)
	}
	return cfg.Sources, nil
}

// NewRegistry builds a Reader per configured source. Sources naming an
// unknown adapter are skipped with a logged error so the rest of the
// configuration still loads.
func NewRegistry(sources []Source, maxAge time.Duration, timeout time.Duration) map[string]Reader {
	registry := make(map[string]Reader, len(sources))
	for _, src := range sources {
		switch src.Adapter {
		case "decrypt":
			registry[src.Name] = NewDecryptReader(src, maxAge)
		case "beincrypto":
			registry[src.Name] = NewBeInCryptoReader(src, maxAge, timeout)
		default:
			logger.Error("unknown feed adapter, skipping source", "source", src.Name, "adapter", src.Adapter)
		}
	}
	return registry
}

// latestMatching applies the shared filtering contract to a parsed feed:
// drop entries older than the staleness window, entries outside the target
// category and entries at or before the watermark, then keep the most
// recent survivor (ties broken by parse order).
func latestMatching(feed *gofeed.Feed, sourceName, category string, since time.Time, maxAge time.Duration, now time.Time) *NewsItem {
	category = strings.ToLower(category)
	cutoff := now.Add(-maxAge)

	var best *NewsItem
	for _, entry := range feed.Items {
		published := entryTimestamp(entry, now)

		if published.Before(cutoff) {
			continue
		}
		if !hasCategory(entry, category) {
			continue
		}
		// Watermark dedup: anything at or before the last published
		// timestamp has already been posted.
		if !since.IsZero() && !published.After(since) {
			continue
		}

		if best == nil || published.After(best.PublishedAt) {
			best = newsItemFromEntry(entry, sourceName, category, published)
		}
	}
	return best
}

// entryTimestamp resolves an entry's publication time, falling back through
// published -> updated -> now, always in UTC.
func entryTimestamp(entry *gofeed.Item, now time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return now.UTC()
}

func hasCategory(entry *gofeed.Item, category string) bool {
	for _, c := range entry.Categories {
		if strings.ToLower(strings.TrimSpace(c)) == category {
			return true
		}
	}
	return false
}

func newsItemFromEntry(entry *gofeed.Item, sourceName, category string, published time.Time) *NewsItem {
	item := &NewsItem{
		Title:       strings.TrimSpace(entry.Title),
		Link:        entry.Link,
		PublishedAt: published,
		Source:      sourceName,
		Category:    category,
		Summary:     shortSummary(entry.Description),
		ImgLink:     entryImage(entry),
	}
	return item
}

// entryImage looks for an image link in media:thumbnail, media:content or an
// image-typed enclosure.
func entryImage(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, key := range []string{"thumbnail", "content"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}
	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if entry.Image != nil {
		return entry.Image.URL
	}
	return ""
}

func shortSummary(description string) string {
	description = strings.TrimSpace(description)
	runes := []rune(description)
	if len(runes) <= 200 {
		return description
	}
	return string(runes[:200]) + "..."
}
