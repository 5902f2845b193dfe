package feeds

import (
	"context"
	"errors"

	"newsmill/cache"
	"newsmill/config"
	"newsmill/fetch"
	"newsmill/images"
	"newsmill/logger"
	"newsmill/types"
)

// Processor runs the whole per-source flow: feed fetch through the cache,
// normalization, and thumbnail generation. Each Process call is independent
// and owns all of its data, so any number of them can run concurrently.
type Processor struct {
	cache      *cache.Cache
	client     *fetch.Client
	thumbs     *images.Generator
	normalizer *Normalizer
}

func NewProcessor(c *cache.Cache, client *fetch.Client, thumbs *images.Generator, normalizer *Normalizer) *Processor {
	return &Processor{
		cache:      c,
		client:     client,
		thumbs:     thumbs,
		normalizer: normalizer,
	}
}

// Process produces the single SourceOutcome for one source. Failures are
// recorded on the outcome, never returned: a broken source must not take
// the run down with it.
func (p *Processor) Process(ctx context.Context, src types.Source) types.SourceOutcome {
	log := logger.Log.WithFields(map[string]interface{}{
		"publisher_id": src.ID,
		"feed_url":     src.FeedURL,
	})

	outcome := types.SourceOutcome{
		SourceID: src.ID,
		FeedURL:  src.FeedURL,
		Status:   types.StatusOK,
	}

	data, err := p.cache.GetOrFetch(ctx, src.FeedURL, func(ctx context.Context) ([]byte, string, error) {
		return p.client.GetWithSchemeFallback(ctx, src.FeedURL, config.MaxFeedBytes)
	})
	if err != nil {
		log.Warnf("feed fetch failed: %v", err)
		outcome.Status = types.StatusFailed
		outcome.Error = classifyFetchError(err)
		return outcome
	}

	res, err := p.normalizer.Normalize(data, src)
	if err != nil {
		log.Warnf("feed parse failed: %v", err)
		outcome.Status = types.StatusFailed
		outcome.Error = types.ErrorParse
		return outcome
	}

	outcome.EntriesFetched = res.EntriesFetched
	outcome.DroppedEntries = res.Dropped

	for i := range res.Articles {
		if !p.resolveThumbnail(ctx, src, &res.Articles[i], log) {
			outcome.Status = types.StatusPartial
		}
	}

	outcome.Articles = res.Articles
	outcome.ArticlesKept = len(res.Articles)
	log.WithFields(map[string]interface{}{
		"entries":  res.EntriesFetched,
		"articles": len(res.Articles),
		"status":   outcome.Status,
	}).Info("source processed")
	return outcome
}

// resolveThumbnail fills in the article's image and thumbnail reference.
// It reports false when the article wanted an image but could not get one,
// which downgrades the source to partial; the article itself is kept.
func (p *Processor) resolveThumbnail(ctx context.Context, src types.Source, article *types.Article, log *logger.Entry) bool {
	if article.ImageURL == "" || src.OGImages {
		if lead := leadImageFromPage(ctx, p.cache, p.client, article.URL); lead != "" {
			article.ImageURL = lead
		}
	}
	if article.ImageURL == "" {
		// Nothing to thumbnail; not a degradation.
		return true
	}

	ref, err := p.thumbs.FromURL(ctx, article.ImageURL)
	if err != nil {
		log.WithField("img", article.ImageURL).Debugf("thumbnail unavailable: %v", err)
		article.ImageURL = ""
		article.ThumbnailRef = ""
		return false
	}
	article.ThumbnailRef = ref
	return true
}

func classifyFetchError(err error) types.ErrorKind {
	switch {
	case errors.Is(err, cache.ErrMiss):
		return types.ErrorCacheMiss
	case errors.Is(err, context.DeadlineExceeded):
		return types.ErrorTimeout
	default:
		return types.ErrorFetch
	}
}
