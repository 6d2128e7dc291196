package enricher

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/hanakhry/JARR/internal/domain"
	"github.com/hanakhry/JARR/pkg/htmlutil"
)

const imgAltMaxLength = 100

var youtubeRe = regexp.MustCompile(
	`^((?:https?:)?//)?((?:www|m)\.)?((?:youtube\.com|youtu.be))` +
		`(/(?:[\w\-]+\?v=|embed/|v/)?)([\w\-]+)(\S+)?$`)

// IsEmbeddedLink reports whether the link belongs to the recognized
// embedded-player URL family.
func IsEmbeddedLink(link string) bool {
	return youtubeRe.MatchString(link)
}

// imageGenerator renders image articles without touching the network.
type imageGenerator struct {
	article domain.Article
	logger  *slog.Logger
}

func newImageGenerator(article domain.Article, deps generatorDeps) Generator {
	return &imageGenerator{article: article, logger: deps.logger}
}

func (g *imageGenerator) Generate(ctx context.Context) (bool, domain.GeneratedContent) {
	g.logger.Info("constructing image content from article", "article", g.article.ID)

	text := g.article.Title
	if text == "" {
		text = g.article.Content
	}

	return true, domain.GeneratedContent{
		"type": string(domain.ArticleTypeImage),
		"alt":  htmlutil.EscapeTruncate(text, imgAltMaxLength),
		"src":  g.article.Link,
	}
}

func (g *imageGenerator) Vector(ctx context.Context) string {
	return ""
}

// embeddedGenerator recognizes embeddable video links. An unrecognized link
// is not an error: the caller gets success with an empty payload.
type embeddedGenerator struct {
	article domain.Article
	logger  *slog.Logger
}

func newEmbeddedGenerator(article domain.Article, deps generatorDeps) Generator {
	return &embeddedGenerator{article: article, logger: deps.logger}
}

func (g *embeddedGenerator) Generate(ctx context.Context) (bool, domain.GeneratedContent) {
	match := youtubeRe.FindStringSubmatch(g.article.Link)
	if match == nil {
		g.logger.Warn("embedded video not recognized", "link", g.article.Link)
		return true, domain.GeneratedContent{}
	}

	g.logger.Info("constructing embedded youtube content from article",
		"article", g.article.ID)

	// A matched link with an empty id capture falls through to the
	// unmatched result, without the warning.
	if id := match[5]; id != "" {
		return true, domain.GeneratedContent{
			"type":    string(domain.ArticleTypeEmbedded),
			"player":  "youtube",
			"videoId": id,
		}
	}

	return true, domain.GeneratedContent{}
}

func (g *embeddedGenerator) Vector(ctx context.Context) string {
	return ""
}

// truncatedGenerator re-fetches the linked page for feeds that publish
// partial content.
type truncatedGenerator struct {
	baseGenerator
}

func newTruncatedGenerator(article domain.Article, deps generatorDeps) Generator {
	g := &truncatedGenerator{}
	g.article = article
	g.fetcher = deps.fetcher
	g.logger = deps.logger
	return g
}

func (g *truncatedGenerator) Generate(ctx context.Context) (bool, domain.GeneratedContent) {
	// The partial payload is returned even on failure; callers must check
	// the flag rather than trust the map's completeness.
	content := domain.GeneratedContent{"type": "fetched"}

	page := g.fetchPage(ctx)
	if page == nil || page.Content == "" {
		g.logger.Error("could not rebuild parsed content", "article", g.article.ID)
		return false, content
	}

	content["content"] = page.Content
	content["link"] = page.FinalURL
	if g.article.Comments != "" {
		content["comments"] = g.article.Comments
	}

	g.logger.Debug("no special type found, serving fetched page", "article", g.article.ID)
	return true, content
}

// redditGenerator specializes truncated handling for reddit feeds: a pure
// self-post is a discussion with nothing to re-fetch, so both generation and
// vectorization short-circuit.
type redditGenerator struct {
	truncatedGenerator

	pure *bool
}

func newRedditGenerator(article domain.Article, deps generatorDeps) Generator {
	g := &redditGenerator{}
	g.article = article
	g.fetcher = deps.fetcher
	g.logger = deps.logger
	return g
}

// isPureRedditPost classifies the article once; the result is memoized for
// the generator's lifetime. Any HEAD-request failure counts as "not pure",
// biasing toward re-fetching.
func (g *redditGenerator) isPureRedditPost(ctx context.Context) bool {
	if g.pure != nil {
		return *g.pure
	}

	pure := g.classify(ctx)
	g.pure = &pure
	return pure
}

func (g *redditGenerator) classify(ctx context.Context) bool {
	if g.article.ArticleType != domain.ArticleTypeNone {
		return false
	}

	if g.article.Link == g.article.Comments {
		return true
	}

	if g.fetcher == nil {
		return false
	}

	resolved, err := g.fetcher.Resolve(ctx, g.article.Comments)
	if err != nil {
		return false
	}

	return resolved == g.article.Link
}

func (g *redditGenerator) Generate(ctx context.Context) (bool, domain.GeneratedContent) {
	if g.isPureRedditPost(ctx) {
		// Pure self-post, nothing to re-fetch.
		return false, domain.GeneratedContent{}
	}
	return g.truncatedGenerator.Generate(ctx)
}

func (g *redditGenerator) Vector(ctx context.Context) string {
	if g.isPureRedditPost(ctx) {
		return ""
	}
	return g.truncatedGenerator.Vector(ctx)
}
