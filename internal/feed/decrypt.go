package feed

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newspulse/internal/logger"
)

// DecryptReader reads the decrypt.co feed, which serves standard RSS to any
// client.
type DecryptReader struct {
	source Source
	maxAge time.Duration
	parser *gofeed.Parser

	// now is swappable for tests
	now func() time.Time
}

func NewDecryptReader(source Source, maxAge time.Duration) *DecryptReader {
	return &DecryptReader{
		source: source,
		maxAge: maxAge,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

func (r *DecryptReader) GetLatest(ctx context.Context, category string, since time.Time) *NewsItem {
	feed, err := r.parser.ParseURLWithContext(r.source.URL, ctx)
	if err != nil {
		logger.Warn("failed to fetch feed", "source", r.source.Name, "url", r.source.URL, "error", err)
		return nil
	}
	return latestMatching(feed, r.source.Name, category, since, r.maxAge, r.now())
}
