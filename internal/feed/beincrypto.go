package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newspulse/internal/logger"
)

// beincrypto.com rejects requests without a browser User-Agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// BeInCryptoReader reads the beincrypto.com feed through its own HTTP client
// with browser headers and redirect following.
type BeInCryptoReader struct {
	source Source
	maxAge time.Duration
	client *http.Client
	parser *gofeed.Parser

	now func() time.Time
}

func NewBeInCryptoReader(source Source, maxAge time.Duration, timeout time.Duration) *BeInCryptoReader {
	return &BeInCryptoReader{
		source: source,
		maxAge: maxAge,
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

func (r *BeInCryptoReader) GetLatest(ctx context.Context, category string, since time.Time) *NewsItem {
	feed, err := r.fetch(ctx)
	if err != nil {
		logger.Warn("failed to fetch feed", "source", r.source.Name, "url", r.source.URL, "error", err)
		return nil
	}
	return latestMatching(feed, r.source.Name, category, since, r.maxAge, r.now())
}

func (r *BeInCryptoReader) fetch(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.source.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return r.parser.Parse(resp.Body)
}
