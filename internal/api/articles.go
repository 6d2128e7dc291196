package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"

	"github.com/hanakhry/JARR/internal/domain"
	"github.com/hanakhry/JARR/internal/ports"
)

const defaultListLimit = 10

type articlePayload struct {
	EntryID       string   `json:"entry_id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Link          string   `json:"link"`
	Comments      string   `json:"comments"`
	Tags          []string `json:"tags"`
	ArticleType   string   `json:"article_type"`
	Date          string   `json:"date"`
	RetrievedDate string   `json:"retrieved_date"`
	UserID        int64    `json:"user_id"`
	FeedID        int64    `json:"feed_id"`
	CategoryID    int64    `json:"category_id"`
}

type articleUpdatePayload struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Link       *string   `json:"link"`
	Comments   *string   `json:"comments"`
	Tags       *[]string `json:"tags"`
	FeedID     *int64    `json:"feed_id"`
	CategoryID *int64    `json:"category_id"`
}

type articleView struct {
	ID            int64     `json:"id"`
	EntryID       string    `json:"entry_id,omitempty"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	Link          string    `json:"link"`
	Comments      string    `json:"comments,omitempty"`
	Tags          []string  `json:"tags"`
	ArticleType   string    `json:"article_type,omitempty"`
	Date          time.Time `json:"date"`
	RetrievedDate time.Time `json:"retrieved_date"`
	UserID        int64     `json:"user_id"`
	FeedID        int64     `json:"feed_id"`
	CategoryID    int64     `json:"category_id,omitempty"`
}

func viewOf(article domain.Article) articleView {
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleView{
		ID:            article.ID,
		EntryID:       article.EntryID,
		Title:         article.Title,
		Content:       article.Content,
		Link:          article.Link,
		Comments:      article.Comments,
		Tags:          tags,
		ArticleType:   string(article.ArticleType),
		Date:          article.Date,
		RetrievedDate: article.RetrievedDate,
		UserID:        article.UserID,
		FeedID:        article.FeedID,
		CategoryID:    article.CategoryID,
	}
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	filter := ports.ArticleFilter{
		Limit:   defaultListLimit,
		OrderBy: r.URL.Query().Get("order_by"),
	}
	if !caller.IsAdmin {
		filter.UserID = caller.ID
	}

	if v := r.URL.Query().Get("feed_id"); v != "" {
		filter.FeedID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("category_id"); v != "" {
		filter.CategoryID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	articles, err := s.articles.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list articles", "error", err)
		s.writeError(w, http.StatusInternalServerError)
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, article := range articles {
		views = append(views, viewOf(article))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound)
		return
	}

	article, err := s.articles.Get(r.Context(), id)
	if err != nil || (!caller.IsAdmin && article.UserID != caller.ID) {
		s.writeError(w, http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, viewOf(article))
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var payload articlePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest)
		return
	}

	article, status := s.create(r.Context(), caller, payload)
	if status != http.StatusCreated {
		s.writeError(w, status)
		return
	}

	s.writeJSON(w, http.StatusCreated, viewOf(article))
}

func (s *Server) createArticleBatch(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var payloads []articlePayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		s.writeError(w, http.StatusBadRequest)
		return
	}

	results := make([]interface{}, 0, len(payloads))
	created := 0
	for _, payload := range payloads {
		article, status := s.create(r.Context(), caller, payload)
		if status == http.StatusCreated {
			created++
			results = append(results, viewOf(article))
		} else {
			results = append(results, statusString(status))
		}
	}

	switch {
	case created == len(payloads):
		s.writeJSON(w, http.StatusCreated, results)
	case created > 0:
		s.writeJSON(w, http.StatusPartialContent, results)
	default:
		s.writeJSON(w, http.StatusInternalServerError, results)
	}
}

// create validates permissions and ownership and inserts the article.
// Returns the created article and 201, or a zero article and the error
// status.
func (s *Server) create(ctx context.Context, caller domain.User, payload articlePayload) (domain.Article, int) {
	if !caller.IsAPI {
		return domain.Article{}, http.StatusForbidden
	}

	// A non-admin naming another user gets the same 404 as a missing
	// resource, so the response does not reveal whose feeds exist.
	targetUser := caller.ID
	if payload.UserID != 0 && payload.UserID != caller.ID {
		if !caller.IsAdmin {
			return domain.Article{}, http.StatusNotFound
		}
		targetUser = payload.UserID
	}

	feed, err := s.feeds.Get(ctx, payload.FeedID)
	if err != nil || feed.UserID != targetUser {
		return domain.Article{}, http.StatusNotFound
	}

	categoryID := payload.CategoryID
	if categoryID == 0 {
		categoryID = feed.CategoryID
	} else {
		category, err := s.categories.Get(ctx, categoryID)
		if err != nil || category.UserID != targetUser {
			return domain.Article{}, http.StatusNotFound
		}
	}

	now := time.Now().UTC()
	date, ok := parseDate(payload.Date, now)
	if !ok {
		return domain.Article{}, http.StatusBadRequest
	}
	retrieved, ok := parseDate(payload.RetrievedDate, now)
	if !ok {
		return domain.Article{}, http.StatusBadRequest
	}

	article := domain.Article{
		EntryID:       payload.EntryID,
		Title:         payload.Title,
		Content:       payload.Content,
		Link:          payload.Link,
		Comments:      payload.Comments,
		Tags:          payload.Tags,
		ArticleType:   domain.ArticleType(payload.ArticleType),
		Date:          date,
		RetrievedDate: retrieved.UTC(),
		UserID:        targetUser,
		FeedID:        feed.ID,
		CategoryID:    categoryID,
	}

	created, err := s.articles.Create(ctx, article)
	if err != nil {
		s.logger.Error("create article", "error", err)
		return domain.Article{}, http.StatusInternalServerError
	}

	return created, http.StatusCreated
}

func (s *Server) updateArticle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound)
		return
	}

	article, err := s.articles.Get(r.Context(), id)
	if err != nil || (!caller.IsAdmin && article.UserID != caller.ID) {
		s.writeError(w, http.StatusNotFound)
		return
	}

	var payload articleUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest)
		return
	}

	// An article may only move onto feeds and categories owned by its
	// own user.
	if payload.FeedID != nil {
		feed, err := s.feeds.Get(r.Context(), *payload.FeedID)
		if err != nil || feed.UserID != article.UserID {
			s.writeError(w, http.StatusBadRequest)
			return
		}
	}
	if payload.CategoryID != nil {
		category, err := s.categories.Get(r.Context(), *payload.CategoryID)
		if err != nil || category.UserID != article.UserID {
			s.writeError(w, http.StatusBadRequest)
			return
		}
	}

	updated, err := s.articles.Update(r.Context(), id, ports.ArticleUpdate{
		Title:      payload.Title,
		Content:    payload.Content,
		Link:       payload.Link,
		Comments:   payload.Comments,
		Tags:       payload.Tags,
		FeedID:     payload.FeedID,
		CategoryID: payload.CategoryID,
	})
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			s.writeError(w, http.StatusNotFound)
			return
		}
		s.logger.Error("update article", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, viewOf(updated))
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound)
		return
	}

	article, err := s.articles.Get(r.Context(), id)
	if err != nil || (!caller.IsAdmin && article.UserID != caller.ID) {
		s.writeError(w, http.StatusNotFound)
		return
	}

	if err := s.articles.Delete(r.Context(), article.ID); err != nil {
		s.logger.Error("delete article", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type challengePayload struct {
	IDs []map[string]int64 `json:"ids"`
}

// challengeArticles reports which of the submitted ids are unknown to the
// caller. Entries without an "id" key are never recognized.
func (s *Server) challengeArticles(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var payload challengePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest)
		return
	}

	var ids []int64
	for _, entry := range payload.IDs {
		if id, ok := entry["id"]; ok {
			ids = append(ids, id)
		}
	}

	userID := caller.ID
	if caller.IsAdmin {
		userID = 0
	}

	known, err := s.articles.KnownIDs(r.Context(), userID, ids)
	if err != nil {
		s.logger.Error("challenge articles", "error", err)
		s.writeError(w, http.StatusInternalServerError)
		return
	}

	unknown := make([]map[string]int64, 0, len(payload.IDs))
	for _, entry := range payload.IDs {
		id, ok := entry["id"]
		if !ok || !known[id] {
			unknown = append(unknown, entry)
		}
	}

	if len(unknown) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, http.StatusOK, unknown)
}

func parseDate(raw string, fallback time.Time) (time.Time, bool) {
	if raw == "" {
		return fallback, true
	}

	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
