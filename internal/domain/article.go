package domain

import "time"

// ArticleType classifies how an article's content should be rendered.
// Empty means the article carries no declared type.
type ArticleType string

const (
	ArticleTypeNone     ArticleType = ""
	ArticleTypeImage    ArticleType = "image"
	ArticleTypeEmbedded ArticleType = "embedded"
	ArticleTypeVideo    ArticleType = "video"
)

// FeedType classifies the publishing source of a feed. It is only consulted
// when the article itself declares no type.
type FeedType string

const (
	FeedTypeNone    FeedType = ""
	FeedTypeClassic FeedType = "classic"
	FeedTypeReddit  FeedType = "reddit"
	FeedTypeTumblr  FeedType = "tumblr"
	FeedTypeTwitter FeedType = "twitter"
)

// Article is the core entity describing a single feed entry. It is treated
// as immutable for the duration of content generation.
type Article struct {
	ID            int64
	EntryID       string
	Title         string
	Content       string
	Link          string
	Comments      string
	Tags          []string
	ArticleType   ArticleType
	Date          time.Time
	RetrievedDate time.Time
	UserID        int64
	FeedID        int64
	CategoryID    int64

	// Feed is the owning feed, populated when the caller needs
	// feed-level dispatch information.
	Feed *Feed
}

// Feed describes a subscribed source.
type Feed struct {
	ID         int64
	UserID     int64
	CategoryID int64
	Title      string
	Link       string
	FeedType   FeedType

	// TruncatedContent marks feeds known to publish partial entries
	// that require re-fetching the linked page.
	TruncatedContent bool
}

// Category groups feeds for a user.
type Category struct {
	ID     int64
	UserID int64
	Name   string
}

// User is an account as seen by the API layer.
type User struct {
	ID      int64
	Login   string
	IsAdmin bool

	// IsAPI grants write access through the HTTP API.
	IsAPI bool
}

// GeneratedContent is the rendering-friendly payload produced by a content
// generator. The "type" key discriminates the shape; remaining keys are
// type specific (alt/src, player/videoId, content/link/comments).
type GeneratedContent map[string]string

// ExtractedInfo is the searchable summary pulled out of a fetched page.
// It is consumed immediately to build a feature vector, never persisted.
type ExtractedInfo struct {
	Language string
	Link     string
	Tags     []string
	Title    string
}
