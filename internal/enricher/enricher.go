package enricher

import (
	"context"
	"log/slog"
	"strconv"

	cache "github.com/patrickmn/go-cache"

	"github.com/hanakhry/JARR/internal/domain"
	"github.com/hanakhry/JARR/internal/ports"
)

// Generator turns one article's metadata into a rendering-friendly content
// payload. Implementations never return errors: failure is communicated via
// the boolean flag of Generate or an empty Vector, and is logged internally.
type Generator interface {
	// Generate builds the content payload. The flag reports whether the
	// payload is usable; a false result may still carry a partial payload
	// and callers must check the flag rather than trust the map.
	Generate(ctx context.Context) (bool, domain.GeneratedContent)

	// Vector returns a searchable feature summary of the article, or the
	// empty string when none can be produced.
	Vector(ctx context.Context) string
}

type factory func(article domain.Article, deps generatorDeps) Generator

type generatorDeps struct {
	fetcher ports.PageFetcher
	logger  *slog.Logger
}

// Registry resolves the single applicable generator for an article and
// memoizes the result per article identity, so repeated lookups share one
// instance and one page fetch.
type Registry struct {
	deps generatorDeps

	byArticleType map[domain.ArticleType]factory
	byFeedType    map[domain.FeedType]factory

	// generators has no eviction: articles are not reprocessed at scale
	// within one run.
	generators *cache.Cache
}

// NewRegistry builds the dispatch tables once; they are read-only afterwards.
func NewRegistry(fetcher ports.PageFetcher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		deps: generatorDeps{fetcher: fetcher, logger: logger},
		byArticleType: map[domain.ArticleType]factory{
			domain.ArticleTypeImage:    newImageGenerator,
			domain.ArticleTypeEmbedded: newEmbeddedGenerator,
		},
		byFeedType: map[domain.FeedType]factory{
			domain.FeedTypeReddit: newRedditGenerator,
		},
		generators: cache.New(cache.NoExpiration, 0),
	}
}

// ForArticle returns the generator for the article, resolving it on first
// use. Precedence: declared article type, then feed type, then the
// truncated-content feed default, then the base no-op generator.
func (r *Registry) ForArticle(article domain.Article) Generator {
	key := strconv.FormatInt(article.ID, 10)
	if cached, ok := r.generators.Get(key); ok {
		return cached.(Generator)
	}

	gen := r.resolve(article)
	r.generators.Set(key, gen, cache.NoExpiration)
	return gen
}

func (r *Registry) resolve(article domain.Article) Generator {
	if t := article.ArticleType; t != domain.ArticleTypeNone {
		if build, ok := r.byArticleType[t]; ok {
			return build(article, r.deps)
		}
	}

	if article.Feed != nil {
		if t := article.Feed.FeedType; t != domain.FeedTypeNone {
			if build, ok := r.byFeedType[t]; ok {
				return build(article, r.deps)
			}
		}

		if article.Feed.TruncatedContent {
			return newTruncatedGenerator(article, r.deps)
		}
	}

	return newBaseGenerator(article, r.deps)
}

// baseGenerator is the fallback: nothing to render, but it can still
// produce a feature vector from a best-effort page fetch.
type baseGenerator struct {
	article domain.Article
	fetcher ports.PageFetcher
	logger  *slog.Logger

	// fetched records that a fetch was attempted, successful or not;
	// a generator fetches at most once in its lifetime.
	fetched bool
	page    *domain.Page
	info    domain.ExtractedInfo
}

func newBaseGenerator(article domain.Article, deps generatorDeps) Generator {
	return &baseGenerator{article: article, fetcher: deps.fetcher, logger: deps.logger}
}

// fetchPage performs the single best-effort fetch of the article's link.
// Any failure degrades to "no page"; downstream code must tolerate a nil
// result at every step.
func (g *baseGenerator) fetchPage(ctx context.Context) *domain.Page {
	if g.fetched {
		return g.page
	}
	g.fetched = true

	if g.fetcher == nil {
		return nil
	}

	page, err := g.fetcher.Fetch(ctx, g.article.Link)
	if err != nil {
		g.logger.Error("something wrong happened while trying to fetch",
			"link", g.article.Link, "error", err)
		return nil
	}

	g.page = &page
	g.info = extractInfo(page)
	return g.page
}

func (g *baseGenerator) Generate(ctx context.Context) (bool, domain.GeneratedContent) {
	return false, domain.GeneratedContent{}
}

func (g *baseGenerator) Vector(ctx context.Context) string {
	if page := g.fetchPage(ctx); page != nil {
		return buildVector(g.info, *page)
	}
	return ""
}
