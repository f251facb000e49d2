package feeds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
)

// FeedRepository defines the data access contract for feeds and their items.
type FeedRepository interface {
	ListBySubmission(ctx context.Context, id submissions.SubmissionID) ([]Feed, error)
	ListLatest(ctx context.Context, limit int) ([]Feed, error)
	FindByID(ctx context.Context, id string) (*Feed, error)
	Create(ctx context.Context, f *Feed) error
	Delete(ctx context.Context, id string) error
}

// feedRepository is the MariaDB implementation of FeedRepository.
type feedRepository struct {
	db *sql.DB
}

// NewFeedRepository creates a new MariaDB-backed feed repository.
func NewFeedRepository(db *sql.DB) FeedRepository {
	return &feedRepository{db: db}
}

const feedColumns = `id, submission_id, title, category, date, created_at`

// ListBySubmission returns every feed for a submission, including rows written
// under the legacy prefixed ID, newest first.
func (r *feedRepository) ListBySubmission(ctx context.Context, id submissions.SubmissionID) ([]Feed, error) {
	keys := submissions.LookupKeys(id)
	feeds, err := r.queryFeeds(ctx,
		`SELECT `+feedColumns+` FROM news_feeds WHERE submission_id IN (?, ?) ORDER BY date DESC`,
		keys[0], keys[1])
	if err != nil {
		return nil, fmt.Errorf("listing feeds by submission: %w", err)
	}
	return feeds, nil
}

// ListLatest returns the most recent feeds across all submissions.
func (r *feedRepository) ListLatest(ctx context.Context, limit int) ([]Feed, error) {
	feeds, err := r.queryFeeds(ctx,
		`SELECT `+feedColumns+` FROM news_feeds ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing latest feeds: %w", err)
	}
	return feeds, nil
}

// FindByID returns one feed with its items.
func (r *feedRepository) FindByID(ctx context.Context, id string) (*Feed, error) {
	var f Feed
	err := r.db.QueryRowContext(ctx,
		`SELECT `+feedColumns+` FROM news_feeds WHERE id = ?`, id,
	).Scan(&f.ID, &f.SubmissionID, &f.Title, &f.Category, &f.Date, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("news feed not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying feed by id: %w", err)
	}

	feeds := []Feed{f}
	if err := r.attachItems(ctx, feeds); err != nil {
		return nil, err
	}
	return &feeds[0], nil
}

// Create inserts the feed and its items in one transaction.
func (r *feedRepository) Create(ctx context.Context, f *Feed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning feed transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO news_feeds (id, submission_id, title, category, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.SubmissionID, f.Title, f.Category, f.Date, f.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting feed: %w", err)
	}

	for i, it := range f.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO news_items (id, feed_id, title, content, source, source_url, category, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, f.ID, it.Title, it.Content, it.Source, it.SourceURL, it.Category, i,
		); err != nil {
			return fmt.Errorf("inserting news item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing feed: %w", err)
	}
	return nil
}

// Delete removes a feed; its items are removed by the FK cascade.
func (r *feedRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM news_feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting feed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted feed: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("news feed not found")
	}
	return nil
}

func (r *feedRepository) queryFeeds(ctx context.Context, query string, args ...any) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.ID, &f.SubmissionID, &f.Title, &f.Category, &f.Date, &f.CreatedAt); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// attachItems loads the items of every feed with one query.
func (r *feedRepository) attachItems(ctx context.Context, feeds []Feed) error {
	if len(feeds) == 0 {
		return nil
	}

	index := make(map[string]int, len(feeds))
	args := make([]any, len(feeds))
	for i, f := range feeds {
		index[f.ID] = i
		args[i] = f.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(feeds)), ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, feed_id, title, content, source, source_url, category
		 FROM news_items WHERE feed_id IN (`+placeholders+`) ORDER BY feed_id, position`, args...)
	if err != nil {
		return fmt.Errorf("querying news items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it NewsItem
		if err := rows.Scan(&it.ID, &it.FeedID, &it.Title, &it.Content, &it.Source, &it.SourceURL, &it.Category); err != nil {
			return fmt.Errorf("scanning news item: %w", err)
		}
		if i, ok := index[it.FeedID]; ok {
			feeds[i].Items = append(feeds[i].Items, it)
		}
	}
	return rows.Err()
}
