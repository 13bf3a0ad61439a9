// Package pipeline wires feed reading, rewriting, image preparation,
// delivery and state into one scheduled job run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newspulse/internal/feed"
	"github.com/deusflow/newspulse/internal/logger"
	"github.com/deusflow/newspulse/internal/metrics"
	"github.com/deusflow/newspulse/internal/rewrite"
	"github.com/deusflow/newspulse/internal/scraper"
	"github.com/deusflow/newspulse/internal/state"
)

// Rewriter produces a length-bounded formatted post from raw article text.
type Rewriter interface {
	Rewrite(ctx context.Context, sourceText, titleHint string) (*rewrite.Result, error)
}

// Publisher delivers content to the public channels and status messages to
// the operator channels.
type Publisher interface {
	PublishNews(ctx context.Context, text, imagePath string) error
	SendReport(ctx context.Context, text string)
}

// ArticleScraper fetches the full story text behind a feed link.
type ArticleScraper interface {
	ExtractFullArticle(ctx context.Context, url string) (*scraper.ArticleContent, error)
}

// ImagePreparer downloads and processes an article image, returning the
// prepared file path and a cleanup func.
type ImagePreparer interface {
	Prepare(ctx context.Context, url string) (string, func(), error)
}

type Pipeline struct {
	readers    map[string]feed.Reader
	rewriter   Rewriter
	store      state.Store
	publisher  Publisher
	scraper    ArticleScraper
	images     ImagePreparer
	jobTimeout time.Duration
}

func New(readers map[string]feed.Reader, rewriter Rewriter, store state.Store, publisher Publisher, articles ArticleScraper, images ImagePreparer, jobTimeout time.Duration) *Pipeline {
	return &Pipeline{
		readers:    readers,
		rewriter:   rewriter,
		store:      store,
		publisher:  publisher,
		scraper:    articles,
		images:     images,
		jobTimeout: jobTimeout,
	}
}

// RunJob executes one publish job for a (source, category) key. Every
// terminal outcome emits exactly one operator report: success, no fresh
// news, and failed rewrites or deliveries are reported here and return nil;
// a returned error means an unexpected failure that the scheduler's error
// listener reports instead. The watermark only advances after a confirmed
// delivery.
func (p *Pipeline) RunJob(ctx context.Context, source, category string) error {
	metrics.Global.IncrementJobsRun()
	log := logger.With("source", source, "category", category)

	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	reader, ok := p.readers[source]
	if !ok {
		return fmt.Errorf("no feed reader registered for source %q", source)
	}

	since, _ := p.store.Get(source, category)
	item := reader.GetLatest(ctx, category, since)
	if item == nil {
		log.Info("no fresh news")
		metrics.Global.IncrementNoFreshNews()
		p.publisher.SendReport(ctx, fmt.Sprintf("ℹ️ %s/%s: no fresh news", source, category))
		metrics.Global.IncrementReportsSent()
		return nil
	}
	log.Info("selected news item", "title", item.Title, "published_at", item.PublishedAt)

	result, err := p.rewriter.Rewrite(ctx, p.articleText(ctx, item), item.Title)
	if err != nil {
		var tooLong *rewrite.TooLongError
		if errors.As(err, &tooLong) {
			log.Error("rewrite never converged", "length", tooLong.Length)
			metrics.Global.IncrementRewriteFailures()
			metrics.Global.SetError(tooLong.Error())
			p.publisher.SendReport(ctx, fmt.Sprintf(
				"❌ %s/%s: rewritten news is too long (%d chars)\n\nLast attempt:\n%s",
				source, category, tooLong.Length, tooLong.LastAttempt))
			metrics.Global.IncrementReportsSent()
			return nil
		}
		return fmt.Errorf("rewrite failed: %w", err)
	}

	imagePath, cleanupImage := p.prepareImage(ctx, item, log)
	defer cleanupImage()

	if err := p.publisher.PublishNews(ctx, result.Text, imagePath); err != nil {
		log.Error("delivery failed", "error", err)
		metrics.Global.IncrementDeliveryFailures()
		metrics.Global.SetError(err.Error())
		p.publisher.SendReport(ctx, fmt.Sprintf("❌ %s/%s: delivery failed: %v", source, category, err))
		metrics.Global.IncrementReportsSent()
		return nil
	}

	// Best-effort durability: the item is already delivered, so a failed
	// watermark write only risks a duplicate post on a future run.
	if err := p.store.Update(source, category, item.PublishedAt); err != nil {
		log.Error("failed to persist publish state", "error", err)
	}

	metrics.Global.IncrementPublished()
	p.publisher.SendReport(ctx, fmt.Sprintf(
		"✅ %s/%s: published %q (%d chars, published_at %s)",
		source, category, item.Title, result.Length, item.PublishedAt.Format(time.RFC3339)))
	metrics.Global.IncrementReportsSent()
	log.Info("published news item", "title", item.Title, "length", result.Length)
	return nil
}

// articleText prefers the scraped full story; the feed summary is the
// fallback when extraction fails or comes back too thin.
func (p *Pipeline) articleText(ctx context.Context, item *feed.NewsItem) string {
	if p.scraper != nil {
		article, err := p.scraper.ExtractFullArticle(ctx, item.Link)
		if err == nil && len(article.Content) > 200 {
			return article.Content
		}
		if err != nil {
			logger.Warn("full text extraction failed, using feed summary", "link", item.Link, "error", err)
		}
	}
	return item.Summary
}

// prepareImage degrades to text-only delivery on any failure. The caller
// runs the returned cleanup once delivery is done.
func (p *Pipeline) prepareImage(ctx context.Context, item *feed.NewsItem, log *slog.Logger) (string, func()) {
	noop := func() {}
	if item.ImgLink == "" || p.images == nil {
		return "", noop
	}
	path, cleanup, err := p.images.Prepare(ctx, item.ImgLink)
	if err != nil {
		log.Warn("image preparation failed, delivering text-only", "img_link", item.ImgLink, "error", err)
		return "", noop
	}
	return path, cleanup
}
