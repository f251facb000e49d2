package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
	"github.com/keyxmakerx/newsdigest/internal/realtime"
	"github.com/keyxmakerx/newsdigest/internal/sanitize"
)

// LatestLimit caps the fallback "latest feeds" view.
const LatestLimit = 10

// Ingest field names used in validation errors.
const (
	FieldSubmissionID = "submission_id"
	FieldItems        = "news_items"
	FieldDate         = "date"
)

// FeedService defines the business logic contract for the feed viewer.
type FeedService interface {
	// List returns the feeds visible in the given context, unsorted.
	List(ctx context.Context, fc Context) ([]Feed, error)

	// Get returns one feed. Sample IDs are served from the preview data.
	Get(ctx context.Context, id string) (*Feed, error)

	// Delete removes a stored feed and announces the removal.
	Delete(ctx context.Context, id string) (*Feed, error)

	// Ingest validates, cleans and stores a feed from the workflow, then
	// announces it.
	Ingest(ctx context.Context, req IngestRequest) (*Feed, error)

	// Samples returns the preview feeds.
	Samples() []Feed
}

// feedService implements FeedService.
type feedService struct {
	repo      FeedRepository
	samples   *SampleSet
	publisher realtime.Publisher
	now       func() time.Time
}

// NewFeedService creates a new feed service. publisher may be nil, in which
// case changes are stored without live notification.
func NewFeedService(repo FeedRepository, samples *SampleSet, publisher realtime.Publisher) FeedService {
	return &feedService{
		repo:      repo,
		samples:   samples,
		publisher: publisher,
		now:       time.Now,
	}
}

// List queries by submission when the context has one, else the latest
// feeds when allowed. A malformed submission ID is a 400.
func (s *feedService) List(ctx context.Context, fc Context) ([]Feed, error) {
	switch {
	case fc.HasSubmission():
		id, err := submissions.ParseID(fc.SubmissionID)
		if err != nil {
			return nil, err
		}
		feeds, err := s.repo.ListBySubmission(ctx, id)
		if err != nil {
			return nil, wrapRepoErr(err)
		}
		return feeds, nil
	case fc.Latest:
		feeds, err := s.repo.ListLatest(ctx, LatestLimit)
		if err != nil {
			return nil, wrapRepoErr(err)
		}
		return feeds, nil
	default:
		return nil, nil
	}
}

// Get loads a stored feed or a preview feed.
func (s *feedService) Get(ctx context.Context, id string) (*Feed, error) {
	if IsSampleID(id) {
		f, ok := s.samples.Find(id, s.now())
		if !ok {
			return nil, apperror.NewNotFound("news feed not found")
		}
		return f, nil
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return f, nil
}

// Delete removes the feed and publishes a delete event. A failed publish is
// logged; the feed is gone either way.
func (s *feedService) Delete(ctx context.Context, id string) (*Feed, error) {
	if IsSampleID(id) {
		return nil, apperror.NewBadRequest("sample feeds are not stored")
	}

	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, wrapRepoErr(err)
	}

	slog.Info("news feed deleted", slog.String("feed_id", id))
	s.publish(ctx, realtime.EventDelete, f)
	return f, nil
}

// Ingest stores a feed posted by the workflow.
func (s *feedService) Ingest(ctx context.Context, req IngestRequest) (*Feed, error) {
	var fields apperror.FieldErrors

	subID, err := submissions.ParseID(req.SubmissionID)
	if err != nil {
		fields.Add(FieldSubmissionID, "a valid submission_id is required")
	}

	date := s.now()
	if d := strings.TrimSpace(req.Date); d != "" {
		parsed, perr := parseFeedDate(d)
		if perr != nil {
			fields.Add(FieldDate, "date must be YYYY-MM-DD or RFC 3339")
		}
		date = parsed
	}

	feedCategory := sanitize.Text(req.Category)
	f := &Feed{
		ID:           uuid.NewString(),
		SubmissionID: subID.String(),
		Title:        sanitize.Text(req.Title),
		Category:     feedCategory,
		Date:         date.UTC(),
		CreatedAt:    s.now().UTC(),
	}
	for _, in := range req.Items {
		it := NewsItem{
			ID:        uuid.NewString(),
			FeedID:    f.ID,
			Title:     sanitize.Text(in.Title),
			Content:   sanitize.Text(in.Content),
			Source:    sanitize.Text(in.Source),
			SourceURL: sanitize.Link(in.SourceURL),
			Category:  sanitize.Text(in.Category),
		}
		if it.Title == "" && it.Content == "" {
			continue
		}
		if it.Category == "" {
			it.Category = feedCategory
		}
		f.Items = append(f.Items, it)
	}
	if len(f.Items) == 0 {
		fields.Add(FieldItems, "at least one news item with a title or content is required")
	}

	if len(fields) > 0 {
		return nil, apperror.NewFieldValidation(fields)
	}
	if f.Category == "" {
		f.Category = DominantCategory(f.Items)
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, wrapRepoErr(err)
	}

	slog.Info("news feed ingested",
		slog.String("feed_id", f.ID),
		slog.String("submission_id", f.SubmissionID),
		slog.Int("items", len(f.Items)),
	)
	s.publish(ctx, realtime.EventInsert, f)
	return f, nil
}

// Samples returns the preview feeds dated relative to now.
func (s *feedService) Samples() []Feed {
	return s.samples.Feeds(s.now())
}

// publish announces a change. Subscribers compare canonical submission IDs,
// so legacy IDs are normalized first.
func (s *feedService) publish(ctx context.Context, typ realtime.EventType, f *Feed) {
	if s.publisher == nil {
		return
	}
	subID := f.SubmissionID
	if id, err := submissions.ParseID(subID); err == nil {
		subID = id.String()
	}
	ev := realtime.Event{Type: typ, Feed: realtime.FeedRef{ID: f.ID, SubmissionID: subID}}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("publishing feed event failed",
			slog.String("type", string(typ)),
			slog.String("feed_id", f.ID),
			slog.Any("error", err),
		)
	}
}

func parseFeedDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// wrapRepoErr passes AppErrors through and hides everything else.
func wrapRepoErr(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("feeds repository: %w", err))
}
