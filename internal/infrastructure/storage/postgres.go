package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/hanakhry/JARR/internal/domain"
	"github.com/hanakhry/JARR/internal/ports"
)

var articleColumns = []string{
	"id", "entry_id", "title", "content", "link", "comments", "tags",
	"article_type", "date", "retrieved_date", "user_id", "feed_id",
	"category_id",
}

type base struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func newBase(db *sql.DB) base {
	return base{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// ArticleRepository persists articles in Postgres.
type ArticleRepository struct {
	base
}

var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository wires a sql.DB implementation.
func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{base: newBase(db)}
}

// List returns articles matching the filter.
func (r *ArticleRepository) List(ctx context.Context, filter ports.ArticleFilter) ([]domain.Article, error) {
	q := r.sb.Select(articleColumns...).From("articles")

	if filter.UserID != 0 {
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.FeedID != 0 {
		q = q.Where(sq.Eq{"feed_id": filter.FeedID})
	}
	if filter.CategoryID != 0 {
		q = q.Where(sq.Eq{"category_id": filter.CategoryID})
	}

	if filter.OrderBy == "-id" {
		q = q.OrderBy("id DESC")
	} else {
		q = q.OrderBy("id ASC")
	}

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	rows, err := q.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// Get loads a single article by id.
func (r *ArticleRepository) Get(ctx context.Context, id int64) (domain.Article, error) {
	row := r.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"id": id}).
		RunWith(r.db).QueryRowContext(ctx)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article %d: %w", id, err)
	}

	return article, nil
}

// Create inserts the article and returns it with its assigned id.
func (r *ArticleRepository) Create(ctx context.Context, article domain.Article) (domain.Article, error) {
	err := r.sb.Insert("articles").
		Columns("entry_id", "title", "content", "link", "comments", "tags",
			"article_type", "date", "retrieved_date", "user_id", "feed_id",
			"category_id").
		Values(nullString(article.EntryID), nullString(article.Title),
			nullString(article.Content), article.Link,
			nullString(article.Comments), pq.StringArray(article.Tags),
			nullString(string(article.ArticleType)), article.Date,
			article.RetrievedDate, article.UserID, article.FeedID,
			nullInt64(article.CategoryID)).
		Suffix("RETURNING id").
		RunWith(r.db).QueryRowContext(ctx).Scan(&article.ID)
	if err != nil {
		return domain.Article{}, fmt.Errorf("insert article: %w", err)
	}

	return article, nil
}

// Update applies the partial update and returns the fresh row.
func (r *ArticleRepository) Update(ctx context.Context, id int64, update ports.ArticleUpdate) (domain.Article, error) {
	changes := map[string]interface{}{}
	if update.Title != nil {
		changes["title"] = *update.Title
	}
	if update.Content != nil {
		changes["content"] = *update.Content
	}
	if update.Link != nil {
		changes["link"] = *update.Link
	}
	if update.Comments != nil {
		changes["comments"] = *update.Comments
	}
	if update.Tags != nil {
		changes["tags"] = pq.StringArray(*update.Tags)
	}
	if update.FeedID != nil {
		changes["feed_id"] = *update.FeedID
	}
	if update.CategoryID != nil {
		changes["category_id"] = *update.CategoryID
	}

	if len(changes) > 0 {
		result, err := r.sb.Update("articles").SetMap(changes).
			Where(sq.Eq{"id": id}).
			RunWith(r.db).ExecContext(ctx)
		if err != nil {
			return domain.Article{}, fmt.Errorf("update article %d: %w", id, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return domain.Article{}, fmt.Errorf("article %d: %w", id, ports.ErrNotFound)
		}
	}

	return r.Get(ctx, id)
}

// Delete removes the article.
func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.sb.Delete("articles").Where(sq.Eq{"id": id}).
		RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete article %d: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("article %d: %w", id, ports.ErrNotFound)
	}

	return nil
}

// KnownIDs reports which of the given ids exist for the user (all users
// when userID is zero).
func (r *ArticleRepository) KnownIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error) {
	known := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return known, nil
	}

	q := r.sb.Select("id").From("articles").Where(sq.Eq{"id": ids})
	if userID != 0 {
		q = q.Where(sq.Eq{"user_id": userID})
	}

	rows, err := q.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query known ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		known[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return known, nil
}

// PendingEnrichment returns articles awaiting content generation, each with
// its owning feed populated for dispatch.
func (r *ArticleRepository) PendingEnrichment(ctx context.Context, limit int) ([]domain.Article, error) {
	columns := make([]string, 0, len(articleColumns)+7)
	for _, col := range articleColumns {
		columns = append(columns, "a."+col)
	}
	columns = append(columns, "f.id", "f.user_id", "f.category_id", "f.title",
		"f.link", "f.feed_type", "f.truncated_content")

	q := r.sb.Select(columns...).From("articles a").
		Join("feeds f ON f.id = a.feed_id").
		Where("a.enriched_at IS NULL").
		OrderBy("a.id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query pending articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticleWithFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// SaveEnrichment stores the generation result on the article row.
func (r *ArticleRepository) SaveEnrichment(ctx context.Context, id int64, ok bool, content domain.GeneratedContent, vector string) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal generated content: %w", err)
	}

	result, err := r.sb.Update("articles").
		Set("generated_content", payload).
		Set("vector", nullString(vector)).
		Set("enrichment_ok", ok).
		Set("enriched_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("save enrichment for %d: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("article %d: %w", id, ports.ErrNotFound)
	}

	return nil
}

// FeedRepository reads feeds from Postgres.
type FeedRepository struct {
	base
}

var _ ports.FeedRepository = (*FeedRepository)(nil)

// NewFeedRepository wires a sql.DB implementation.
func NewFeedRepository(db *sql.DB) *FeedRepository {
	return &FeedRepository{base: newBase(db)}
}

// Get loads a feed by id.
func (r *FeedRepository) Get(ctx context.Context, id int64) (domain.Feed, error) {
	var (
		feed       domain.Feed
		feedType   sql.NullString
		categoryID sql.NullInt64
	)

	err := r.sb.Select("id", "user_id", "category_id", "title", "link",
		"feed_type", "truncated_content").
		From("feeds").Where(sq.Eq{"id": id}).
		RunWith(r.db).QueryRowContext(ctx).
		Scan(&feed.ID, &feed.UserID, &categoryID, &feed.Title, &feed.Link,
			&feedType, &feed.TruncatedContent)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feed{}, fmt.Errorf("feed %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Feed{}, fmt.Errorf("get feed %d: %w", id, err)
	}

	feed.FeedType = domain.FeedType(feedType.String)
	feed.CategoryID = categoryID.Int64
	return feed, nil
}

// CategoryRepository reads categories from Postgres.
type CategoryRepository struct {
	base
}

var _ ports.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository wires a sql.DB implementation.
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{base: newBase(db)}
}

// Get loads a category by id.
func (r *CategoryRepository) Get(ctx context.Context, id int64) (domain.Category, error) {
	var category domain.Category

	err := r.sb.Select("id", "user_id", "name").
		From("categories").Where(sq.Eq{"id": id}).
		RunWith(r.db).QueryRowContext(ctx).
		Scan(&category.ID, &category.UserID, &category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, fmt.Errorf("category %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}

	return category, nil
}

// UserRepository reads accounts from Postgres.
type UserRepository struct {
	base
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository wires a sql.DB implementation.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{base: newBase(db)}
}

// Get loads a user by id.
func (r *UserRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User

	err := r.sb.Select("id", "login", "is_admin", "is_api").
		From("users").Where(sq.Eq{"id": id}).
		RunWith(r.db).QueryRowContext(ctx).
		Scan(&user.ID, &user.Login, &user.IsAdmin, &user.IsAPI)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %d: %w", id, err)
	}

	return user, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scannable) (domain.Article, error) {
	var (
		article     domain.Article
		entryID     sql.NullString
		title       sql.NullString
		content     sql.NullString
		comments    sql.NullString
		articleType sql.NullString
		categoryID  sql.NullInt64
		tags        pq.StringArray
	)

	err := row.Scan(&article.ID, &entryID, &title, &content, &article.Link,
		&comments, &tags, &articleType, &article.Date,
		&article.RetrievedDate, &article.UserID, &article.FeedID,
		&categoryID)
	if err != nil {
		return domain.Article{}, err
	}

	article.EntryID = entryID.String
	article.Title = title.String
	article.Content = content.String
	article.Comments = comments.String
	article.ArticleType = domain.ArticleType(articleType.String)
	article.CategoryID = categoryID.Int64
	article.Tags = tags
	return article, nil
}

func scanArticleWithFeed(row scannable) (domain.Article, error) {
	var (
		article        domain.Article
		feed           domain.Feed
		entryID        sql.NullString
		title          sql.NullString
		content        sql.NullString
		comments       sql.NullString
		articleType    sql.NullString
		categoryID     sql.NullInt64
		tags           pq.StringArray
		feedType       sql.NullString
		feedCategoryID sql.NullInt64
	)

	err := row.Scan(&article.ID, &entryID, &title, &content, &article.Link,
		&comments, &tags, &articleType, &article.Date,
		&article.RetrievedDate, &article.UserID, &article.FeedID,
		&categoryID,
		&feed.ID, &feed.UserID, &feedCategoryID, &feed.Title, &feed.Link,
		&feedType, &feed.TruncatedContent)
	if err != nil {
		return domain.Article{}, err
	}

	article.EntryID = entryID.String
	article.Title = title.String
	article.Content = content.String
	article.Comments = comments.String
	article.ArticleType = domain.ArticleType(articleType.String)
	article.CategoryID = categoryID.Int64
	article.Tags = tags

	feed.FeedType = domain.FeedType(feedType.String)
	feed.CategoryID = feedCategoryID.Int64
	article.Feed = &feed

	return article, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt64(value int64) sql.NullInt64 {
	return sql.NullInt64{Int64: value, Valid: value != 0}
}
