package domain

// Page is the structured result of fetching and parsing an article's link.
type Page struct {
	Title string

	// Content is the serialized markup of the main content region,
	// already sanitized for storage.
	Content string

	// Text is the plain-text rendering of the main content region.
	Text string

	// FinalURL is the resolved URL after any redirects.
	FinalURL string

	Language string
	Keywords []string
	Tags     []string
}
