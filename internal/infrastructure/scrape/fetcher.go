package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hanakhry/JARR/internal/config"
	"github.com/hanakhry/JARR/internal/domain"
	"github.com/hanakhry/JARR/internal/ports"
)

// Selectors tried in order when locating the main content region.
var contentSelectors = []string{
	"article",
	"main",
	"#content",
	".entry-content",
	".post-content",
	".article-body",
}

// Fetcher retrieves remote pages and parses them into domain.Page values.
// Calls block for the duration of the network request, bounded by the
// configured timeout.
type Fetcher struct {
	client    *http.Client
	userAgent string
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

var _ ports.PageFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client from crawler configuration.
func NewFetcher(cfg config.CrawlerConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout()},
		userAgent: cfg.UserAgent,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Fetch performs a single GET of the link and extracts page metadata plus
// the serialized, sanitized main content region.
func (f *Fetcher) Fetch(ctx context.Context, link string) (domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return domain.Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Page{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Page{}, fmt.Errorf("remote returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Page{}, fmt.Errorf("parse page: %w", err)
	}

	page := domain.Page{FinalURL: resp.Request.URL.String()}
	f.extract(doc, &page)

	f.logger.Debug("fetched page", "link", link, "final_url", page.FinalURL,
		"title", page.Title)
	return page, nil
}

// Resolve issues a HEAD request and reports the URL after redirects. Any
// non-success status is an error, mirroring the GET path.
func (f *Fetcher) Resolve(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("head request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("remote returned %s", resp.Status)
	}

	return resp.Request.URL.String(), nil
}

func (f *Fetcher) extract(doc *goquery.Document, page *domain.Page) {
	doc.Find("script, style, noscript").Remove()

	page.Title = pageTitle(doc)
	page.Language = pageLanguage(doc)
	page.Keywords = splitKeywords(metaContent(doc, "name", "keywords"))
	page.Tags = pageTags(doc)

	region := mainRegion(doc)
	if markup, err := goquery.OuterHtml(region); err == nil {
		page.Content = strings.TrimSpace(f.sanitizer.Sanitize(markup))
	}
	page.Text = strings.TrimSpace(region.Text())
}

func mainRegion(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find("body").First()
}

func pageTitle(doc *goquery.Document) string {
	if title := metaContent(doc, "property", "og:title"); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func pageLanguage(doc *goquery.Document) string {
	if locale := metaContent(doc, "property", "og:locale"); locale != "" {
		return locale
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		return strings.TrimSpace(lang)
	}
	return metaContent(doc, "http-equiv", "content-language")
}

func pageTags(doc *goquery.Document) []string {
	var tags []string
	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if tag, ok := sel.Attr("content"); ok {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	})
	doc.Find(`a[rel="tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if tag := strings.TrimSpace(sel.Text()); tag != "" {
			tags = append(tags, tag)
		}
	})
	return tags
}

func metaContent(doc *goquery.Document, attr, value string) string {
	selector := fmt.Sprintf(`meta[%s="%s"]`, attr, value)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}
