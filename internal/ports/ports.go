package ports

import (
	"context"
	"errors"
	"time"

	"github.com/hanakhry/JARR/internal/domain"
)

// ErrNotFound is returned by repositories when the requested entity does
// not exist.
var ErrNotFound = errors.New("not found")

// ArticleFilter narrows article listings. Zero values mean "no filter";
// UserID zero means all users (admin view).
type ArticleFilter struct {
	UserID     int64
	FeedID     int64
	CategoryID int64
	Limit      int
	OrderBy    string
}

// ArticleUpdate carries a partial update; nil fields are left untouched.
type ArticleUpdate struct {
	Title      *string
	Content    *string
	Link       *string
	Comments   *string
	Tags       *[]string
	FeedID     *int64
	CategoryID *int64
}

// ArticleRepository persists and queries feed entries.
type ArticleRepository interface {
	List(ctx context.Context, filter ArticleFilter) ([]domain.Article, error)
	Get(ctx context.Context, id int64) (domain.Article, error)
	Create(ctx context.Context, article domain.Article) (domain.Article, error)
	Update(ctx context.Context, id int64, update ArticleUpdate) (domain.Article, error)
	Delete(ctx context.Context, id int64) error

	// KnownIDs reports which of the given article ids belong to the user
	// (any user when userID is zero).
	KnownIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error)

	// PendingEnrichment returns articles awaiting content generation,
	// with their owning feed populated.
	PendingEnrichment(ctx context.Context, limit int) ([]domain.Article, error)
	SaveEnrichment(ctx context.Context, id int64, ok bool, content domain.GeneratedContent, vector string) error
}

// FeedRepository reads subscribed feeds.
type FeedRepository interface {
	Get(ctx context.Context, id int64) (domain.Feed, error)
}

// CategoryRepository reads feed categories.
type CategoryRepository interface {
	Get(ctx context.Context, id int64) (domain.Category, error)
}

// UserRepository reads accounts for authentication and permissions.
type UserRepository interface {
	Get(ctx context.Context, id int64) (domain.User, error)
}

// PageFetcher retrieves and parses remote pages for content generation.
type PageFetcher interface {
	// Fetch performs a single GET of the link and parses the result.
	Fetch(ctx context.Context, link string) (domain.Page, error)

	// Resolve issues a HEAD request following redirects and returns the
	// final URL.
	Resolve(ctx context.Context, link string) (string, error)
}

// Scheduler controls when the enrichment sweep executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
