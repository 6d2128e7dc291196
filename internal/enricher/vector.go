package enricher

import (
	"sort"
	"strings"

	"github.com/hanakhry/JARR/internal/domain"
)

// extractInfo distills the searchable summary out of a fetched page:
// language, canonical link, the union of page tags and meta keywords, and
// the page title.
func extractInfo(page domain.Page) domain.ExtractedInfo {
	tagSet := make(map[string]struct{}, len(page.Tags)+len(page.Keywords))
	for _, tag := range page.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	for _, kw := range page.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			tagSet[kw] = struct{}{}
		}
	}

	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return domain.ExtractedInfo{
		Language: page.Language,
		Link:     page.FinalURL,
		Tags:     tags,
		Title:    page.Title,
	}
}

// buildVector flattens the extracted summary into a weighted term string:
// title terms weigh heaviest, tags next, body terms lightest. The consumer
// feeds this straight into the search backend.
func buildVector(info domain.ExtractedInfo, page domain.Page) string {
	var terms []string

	appendWeighted := func(text string, weight int) {
		for _, term := range tokenize(text) {
			for i := 0; i < weight; i++ {
				terms = append(terms, term)
			}
		}
	}

	appendWeighted(info.Title, 3)
	appendWeighted(strings.Join(info.Tags, " "), 2)
	appendWeighted(page.Text, 1)

	return strings.Join(terms, " ")
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := fields[:0]
	for _, field := range fields {
		if len([]rune(field)) >= 3 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '-' || r == '\'' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r > 127
}
