package enricher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hanakhry/JARR/internal/domain"
)

type fakeFetcher struct {
	page       domain.Page
	fetchErr   error
	resolved   string
	resolveErr error

	fetchCalls   int
	resolveCalls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, link string) (domain.Page, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return domain.Page{}, f.fetchErr
	}
	return f.page, nil
}

func (f *fakeFetcher) Resolve(ctx context.Context, link string) (string, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.resolved, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRegistry(fetcher *fakeFetcher) *Registry {
	return NewRegistry(fetcher, testLogger())
}

func TestImageGenerator(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetchErr: errors.New("unreachable")}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:          1,
		Title:       "a <b>bold</b> title",
		Link:        "https://img.example.org/cat.png",
		ArticleType: domain.ArticleTypeImage,
	}

	ok, content := reg.ForArticle(article).Generate(context.Background())
	if !ok {
		t.Fatal("image generation must succeed regardless of link reachability")
	}
	if content["type"] != "image" {
		t.Fatalf("unexpected type: %s", content["type"])
	}
	if content["src"] != article.Link {
		t.Fatalf("unexpected src: %s", content["src"])
	}
	if content["alt"] != "a &lt;b&gt;bold&lt;/b&gt; title" {
		t.Fatalf("unexpected alt: %s", content["alt"])
	}
	if fetcher.fetchCalls != 0 {
		t.Fatalf("image generator must never fetch, did %d times", fetcher.fetchCalls)
	}

	if v := reg.ForArticle(article).Vector(context.Background()); v != "" {
		t.Fatalf("image articles carry no vector, got %q", v)
	}
}

func TestImageGeneratorFallsBackToContentAndTruncates(t *testing.T) {
	t.Parallel()

	long := make([]rune, 0, 150)
	for i := 0; i < 150; i++ {
		long = append(long, 'x')
	}

	article := domain.Article{
		ID:          2,
		Content:     string(long),
		Link:        "https://img.example.org/dog.png",
		ArticleType: domain.ArticleTypeImage,
	}

	reg := newTestRegistry(&fakeFetcher{})
	_, content := reg.ForArticle(article).Generate(context.Background())

	if got := len([]rune(content["alt"])); got != imgAltMaxLength {
		t.Fatalf("expected alt truncated to %d runes, got %d", imgAltMaxLength, got)
	}
}

func TestEmbeddedGenerator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		link    string
		videoID string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "//m.youtube.com/watch?v=abc-DEF_123", "abc-DEF_123"},
		{"bare host", "youtube.com/v/xyz987", "xyz987"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fetcher := &fakeFetcher{}
			reg := newTestRegistry(fetcher)
			article := domain.Article{
				ID:          3,
				Link:        tc.link,
				ArticleType: domain.ArticleTypeEmbedded,
			}

			ok, content := reg.ForArticle(article).Generate(context.Background())
			if !ok {
				t.Fatal("embedded generation reports success")
			}
			if content["type"] != "embedded" || content["player"] != "youtube" {
				t.Fatalf("unexpected payload: %v", content)
			}
			if content["videoId"] != tc.videoID {
				t.Fatalf("expected videoId %q, got %q", tc.videoID, content["videoId"])
			}
			if fetcher.fetchCalls != 0 {
				t.Fatal("embedded generator must never fetch")
			}
		})
	}
}

func TestEmbeddedGeneratorUnrecognizedLink(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&fakeFetcher{})
	article := domain.Article{
		ID:          4,
		Link:        "https://vimeo.com/123456",
		ArticleType: domain.ArticleTypeEmbedded,
	}

	gen := reg.ForArticle(article)
	ok, content := gen.Generate(context.Background())
	if !ok {
		t.Fatal("an unrecognized link is not an error")
	}
	if len(content) != 0 {
		t.Fatalf("expected empty payload, got %v", content)
	}
	if v := gen.Vector(context.Background()); v != "" {
		t.Fatalf("embedded articles carry no vector, got %q", v)
	}
}

func TestIsEmbeddedLink(t *testing.T) {
	t.Parallel()

	if !IsEmbeddedLink("https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
		t.Fatal("expected youtube watch link to be recognized")
	}
	if IsEmbeddedLink("https://example.org/article") {
		t.Fatal("plain article link must not be recognized")
	}
}

func TestTruncatedGeneratorSuccess(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: domain.Page{
		Title:    "Full Story",
		Content:  "<p>the whole story</p>",
		Text:     "the whole story",
		FinalURL: "https://news.example.org/full-story",
	}}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:       5,
		Link:     "https://news.example.org/truncated",
		Comments: "https://news.example.org/truncated#comments",
		Feed:     &domain.Feed{TruncatedContent: true},
	}

	ok, content := reg.ForArticle(article).Generate(context.Background())
	if !ok {
		t.Fatal("expected generation to succeed")
	}
	if content["type"] != "fetched" {
		t.Fatalf("unexpected type: %s", content["type"])
	}
	if content["content"] != "<p>the whole story</p>" {
		t.Fatalf("unexpected content: %s", content["content"])
	}
	if content["link"] != "https://news.example.org/full-story" {
		t.Fatalf("expected resolved final url, got %s", content["link"])
	}
	if content["comments"] != article.Comments {
		t.Fatalf("expected comments to be carried over, got %q", content["comments"])
	}
}

func TestTruncatedGeneratorNoComments(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: domain.Page{Content: "<p>body</p>", FinalURL: "https://x.example.org"}}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:   6,
		Link: "https://x.example.org/a",
		Feed: &domain.Feed{TruncatedContent: true},
	}

	ok, content := reg.ForArticle(article).Generate(context.Background())
	if !ok {
		t.Fatal("expected generation to succeed")
	}
	if _, present := content["comments"]; present {
		t.Fatal("comments key must be absent when the article has none")
	}
}

func TestTruncatedGeneratorFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetchErr: errors.New("connection refused")}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:       7,
		Link:     "https://down.example.org/a",
		Comments: "https://down.example.org/a#comments",
		Feed:     &domain.Feed{TruncatedContent: true},
	}

	gen := reg.ForArticle(article)
	ok, content := gen.Generate(context.Background())
	if ok {
		t.Fatal("expected generation to fail")
	}
	if len(content) != 1 || content["type"] != "fetched" {
		t.Fatalf("expected bare {type: fetched} payload, got %v", content)
	}

	// The failed fetch is not retried by the vector path.
	if v := gen.Vector(context.Background()); v != "" {
		t.Fatalf("expected no vector after fetch failure, got %q", v)
	}
	if fetcher.fetchCalls != 1 {
		t.Fatalf("expected a single fetch attempt, got %d", fetcher.fetchCalls)
	}
}

func TestRedditGeneratorPurePost(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:       8,
		Link:     "https://www.reddit.com/r/golang/comments/abc/post/",
		Comments: "https://www.reddit.com/r/golang/comments/abc/post/",
		Feed:     &domain.Feed{FeedType: domain.FeedTypeReddit, TruncatedContent: true},
	}

	gen := reg.ForArticle(article)
	ok, content := gen.Generate(context.Background())
	if ok {
		t.Fatal("pure reddit post has nothing to render")
	}
	if len(content) != 0 {
		t.Fatalf("expected empty payload, got %v", content)
	}
	if v := gen.Vector(context.Background()); v != "" {
		t.Fatalf("pure reddit post carries no vector, got %q", v)
	}
	if fetcher.fetchCalls != 0 || fetcher.resolveCalls != 0 {
		t.Fatal("link == comments must classify without any request")
	}
}

func TestRedditGeneratorResolvedSelfPost(t *testing.T) {
	t.Parallel()

	link := "https://www.reddit.com/r/golang/comments/abc/post/"
	fetcher := &fakeFetcher{resolved: link}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:       9,
		Link:     link,
		Comments: "https://redd.it/abc",
		Feed:     &domain.Feed{FeedType: domain.FeedTypeReddit},
	}

	ok, _ := reg.ForArticle(article).Generate(context.Background())
	if ok {
		t.Fatal("comments resolving to the article link means a pure post")
	}
	if fetcher.resolveCalls != 1 {
		t.Fatalf("expected one HEAD resolution, got %d", fetcher.resolveCalls)
	}
}

func TestRedditGeneratorFallsBackToTruncated(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		resolved: "https://blog.example.org/linked-elsewhere",
		page: domain.Page{
			Content:  "<p>linked article</p>",
			FinalURL: "https://blog.example.org/linked-elsewhere",
		},
	}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:       10,
		Link:     "https://blog.example.org/original",
		Comments: "https://www.reddit.com/r/golang/comments/abc/post/",
		Feed:     &domain.Feed{FeedType: domain.FeedTypeReddit},
	}

	ok, content := reg.ForArticle(article).Generate(context.Background())
	if !ok {
		t.Fatal("link post must fall back to truncated behavior")
	}
	if content["type"] != "fetched" {
		t.Fatalf("unexpected type: %s", content["type"])
	}
	if fetcher.fetchCalls != 1 {
		t.Fatalf("expected the page to be fetched once, got %d", fetcher.fetchCalls)
	}
}

func TestRedditGeneratorHeadFailureMeansNotPure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		resolveErr: errors.New("timeout"),
		page:       domain.Page{Content: "<p>body</p>", FinalURL: "https://blog.example.org/a"},
	}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:       11,
		Link:     "https://blog.example.org/a",
		Comments: "https://www.reddit.com/r/golang/comments/abc/post/",
		Feed:     &domain.Feed{FeedType: domain.FeedTypeReddit},
	}

	ok, _ := reg.ForArticle(article).Generate(context.Background())
	if !ok {
		t.Fatal("a failing HEAD request must classify as not pure and re-fetch")
	}
}

func TestRedditGeneratorDeclaredTypeIsNeverPure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: domain.Page{Content: "<p>b</p>", FinalURL: "https://a.example.org"}}
	reg := newTestRegistry(fetcher)

	// Declared video type is not in the dispatch table, so the feed-type
	// strategy applies, but the declared type still blocks the pure-post
	// classification.
	article := domain.Article{
		ID:          12,
		Link:        "https://www.reddit.com/r/videos/comments/abc/post/",
		Comments:    "https://www.reddit.com/r/videos/comments/abc/post/",
		ArticleType: domain.ArticleTypeVideo,
		Feed:        &domain.Feed{FeedType: domain.FeedTypeReddit},
	}

	ok, _ := reg.ForArticle(article).Generate(context.Background())
	if !ok {
		t.Fatal("an article with a declared type is never a pure post")
	}
}

func TestRegistryPrecedence(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&fakeFetcher{})

	// Article type wins over feed type.
	article := domain.Article{
		ID:          13,
		Link:        "https://img.example.org/pic.png",
		Title:       "pic",
		ArticleType: domain.ArticleTypeImage,
		Feed:        &domain.Feed{FeedType: domain.FeedTypeReddit, TruncatedContent: true},
	}

	ok, content := reg.ForArticle(article).Generate(context.Background())
	if !ok || content["type"] != "image" {
		t.Fatalf("expected the image strategy to win, got %v", content)
	}
}

func TestRegistryDefaultsToBase(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&fakeFetcher{})

	article := domain.Article{
		ID:   14,
		Link: "https://plain.example.org/a",
		Feed: &domain.Feed{FeedType: domain.FeedTypeClassic},
	}

	ok, content := reg.ForArticle(article).Generate(context.Background())
	if ok {
		t.Fatal("base generator reports nothing to do")
	}
	if len(content) != 0 {
		t.Fatalf("expected empty payload, got %v", content)
	}
}

func TestRegistryMemoizesPerArticle(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: domain.Page{
		Title:    "Memoized",
		Content:  "<p>once</p>",
		Text:     "fetched exactly once",
		FinalURL: "https://m.example.org/a",
	}}
	reg := newTestRegistry(fetcher)

	article := domain.Article{
		ID:   15,
		Link: "https://m.example.org/a",
		Feed: &domain.Feed{TruncatedContent: true},
	}

	first := reg.ForArticle(article)
	second := reg.ForArticle(article)
	if first != second {
		t.Fatal("repeated lookups must return the identical generator instance")
	}

	first.Generate(context.Background())
	second.Generate(context.Background())
	second.Vector(context.Background())
	if fetcher.fetchCalls != 1 {
		t.Fatalf("expected a single page fetch across lookups, got %d", fetcher.fetchCalls)
	}
}

func TestBaseGeneratorVector(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: domain.Page{
		Title:    "Go Concurrency",
		Text:     "channels and goroutines explained",
		FinalURL: "https://blog.example.org/go",
		Language: "en",
		Keywords: []string{"golang", "concurrency"},
		Tags:     []string{"programming"},
	}}
	reg := newTestRegistry(fetcher)

	article := domain.Article{ID: 16, Link: "https://blog.example.org/go"}

	vector := reg.ForArticle(article).Vector(context.Background())
	if vector == "" {
		t.Fatal("expected a vector from a fetched page")
	}

	for _, term := range []string{"concurrency", "golang", "programming", "goroutines"} {
		if !containsTerm(vector, term) {
			t.Fatalf("expected vector to contain %q: %s", term, vector)
		}
	}
}

func containsTerm(vector, term string) bool {
	for _, tok := range strings.Fields(vector) {
		if tok == term {
			return true
		}
	}
	return false
}
