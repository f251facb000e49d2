package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
)

// SubmissionRepository defines the data access contract for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, s *Submission) error
	FindByID(ctx context.Context, id SubmissionID) (*Submission, error)
}

// submissionRepository is the MariaDB implementation of SubmissionRepository.
type submissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository creates a new MariaDB-backed submission repository.
func NewSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Create inserts a new submission. Sources and topics are stored as JSON arrays.
func (r *submissionRepository) Create(ctx context.Context, s *Submission) error {
	sourcesJSON, err := json.Marshal(s.Sources)
	if err != nil {
		return fmt.Errorf("marshaling submission sources: %w", err)
	}
	topicsJSON, err := json.Marshal(s.Topics)
	if err != nil {
		return fmt.Errorf("marshaling submission topics: %w", err)
	}

	query := `INSERT INTO submissions (id, email, sources, topics, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID.String(), s.Email, sourcesJSON, topicsJSON, s.Language, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	return nil
}

// FindByID retrieves a submission, matching legacy prefixed rows too.
func (r *submissionRepository) FindByID(ctx context.Context, id SubmissionID) (*Submission, error) {
	keys := LookupKeys(id)
	query := `SELECT id, email, sources, topics, language, created_at
		FROM submissions WHERE id IN (?, ?) LIMIT 1`

	var s Submission
	var rawID string
	var sourcesJSON, topicsJSON []byte
	err := r.db.QueryRowContext(ctx, query, keys[0], keys[1]).Scan(
		&rawID, &s.Email, &sourcesJSON, &topicsJSON, &s.Language, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("submission not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying submission by id: %w", err)
	}

	// Return the canonical ID regardless of how the row was written.
	s.ID = id
	if err := json.Unmarshal(sourcesJSON, &s.Sources); err != nil {
		return nil, fmt.Errorf("unmarshaling submission sources: %w", err)
	}
	if err := json.Unmarshal(topicsJSON, &s.Topics); err != nil {
		return nil, fmt.Errorf("unmarshaling submission topics: %w", err)
	}
	return &s, nil
}
