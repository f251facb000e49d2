package submissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/webhook"
)

// Notifier forwards a stored submission to the automation workflow.
// *webhook.Client satisfies it.
type Notifier interface {
	Send(ctx context.Context, sub webhook.Subscription) error
}

// SubmissionService defines the business logic contract for submissions.
type SubmissionService interface {
	// Submit validates data, stores it and notifies the webhook. lockKey
	// scopes the in-flight guard, normally the form session ID.
	Submit(ctx context.Context, lockKey string, data FormData) (*Result, error)

	// Unlock drops the guard kept after a successful submit, so a form that
	// was started over can be submitted again straight away.
	Unlock(ctx context.Context, lockKey string) error

	// GetByID looks up a submission by canonical or legacy ID.
	GetByID(ctx context.Context, rawID string) (*Submission, error)

	// Hold keeps the guard for lockKey set to a stored submission, for when
	// the caller could not record the success itself. Submit then reports
	// ErrInFlight until Unlock.
	Hold(ctx context.Context, lockKey string, id SubmissionID) error

	// Held returns the submission kept by Hold under lockKey, or nil.
	Held(ctx context.Context, lockKey string) (*Submission, error)
}

// DefaultHoldTTL matches the default form session lifetime.
const DefaultHoldTTL = 24 * time.Hour

// submissionService implements SubmissionService.
type submissionService struct {
	repo     SubmissionRepository
	locker   Locker
	notifier Notifier
	now      func() time.Time
}

// NewSubmissionService creates a new submission service. notifier may be nil,
// in which case submissions are stored without notifying anyone.
func NewSubmissionService(repo SubmissionRepository, locker Locker, notifier Notifier) SubmissionService {
	return &submissionService{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// Submit runs one pass of the state machine. Persistence strictly precedes
// the webhook call. On success the lock is left to expire so a repeated
// click cannot create a second record.
func (s *submissionService) Submit(ctx context.Context, lockKey string, data FormData) (*Result, error) {
	acquired, err := s.locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, apperror.NewInternalWithMessage(err, MsgSubmitFailed)
	}
	if !acquired {
		return nil, ErrInFlight
	}

	res := &Result{State: StateValidating}
	data = normalizeFormData(data)
	if fe := ValidateFormData(data); len(fe) > 0 {
		s.release(ctx, lockKey)
		res.State = StateIdle
		res.Errors = fe
		return res, nil
	}

	res.State = StateSubmitting
	sub := &Submission{
		ID:        NewID(),
		Email:     data.Email,
		Sources:   data.Sources,
		Topics:    data.Topics,
		Language:  data.Language,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		s.release(ctx, lockKey)
		res.State = StateFailed
		slog.Error("storing submission failed",
			slog.String("submission_id", sub.ID.String()),
			slog.Any("error", err),
		)
		return res, apperror.NewInternalWithMessage(err, MsgSubmitFailed)
	}
	res.Submission = sub

	res.WebhookDelivered = s.notify(ctx, sub)
	res.State = StateSucceeded

	slog.Info("submission created",
		slog.String("submission_id", sub.ID.String()),
		slog.Int("sources", len(sub.Sources)),
		slog.Int("topics", len(sub.Topics)),
		slog.Bool("webhook_delivered", res.WebhookDelivered),
	)
	return res, nil
}

// notify sends the webhook. Failures are logged and never fail the submit.
func (s *submissionService) notify(ctx context.Context, sub *Submission) bool {
	if s.notifier == nil {
		return false
	}
	// The record is stored; a client disconnect must not cut the delivery.
	err := s.notifier.Send(context.WithoutCancel(ctx), webhook.Subscription{
		Email:        sub.Email,
		Sources:      webhook.SourcesFromDomains(sub.Sources),
		Topics:       sub.Topics,
		Language:     sub.Language,
		Date:         webhook.YesterdayUTC(s.now()),
		SubmissionID: sub.ID.String(),
	})
	if err != nil {
		slog.Warn("webhook delivery failed",
			slog.String("submission_id", sub.ID.String()),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

// release drops the in-flight lock even if the request context is done.
func (s *submissionService) release(ctx context.Context, key string) {
	if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
		slog.Warn("releasing submit lock failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// Unlock releases the in-flight guard for lockKey.
func (s *submissionService) Unlock(ctx context.Context, lockKey string) error {
	if err := s.locker.Release(ctx, lockKey); err != nil {
		return apperror.NewInternal(err)
	}
	return nil
}

// Hold pins the guard to id for DefaultHoldTTL.
func (s *submissionService) Hold(ctx context.Context, lockKey string, id SubmissionID) error {
	if err := s.locker.Hold(ctx, lockKey, id.String(), DefaultHoldTTL); err != nil {
		return apperror.NewInternal(err)
	}
	return nil
}

// Held loads the submission pinned under lockKey. A plain in-flight guard,
// or a pin whose record is gone, yields nil.
func (s *submissionService) Held(ctx context.Context, lockKey string) (*Submission, error) {
	v, err := s.locker.Value(ctx, lockKey)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	id, err := ParseID(v)
	if err != nil {
		return nil, nil
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.SafeCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, wrapRepoErr(err)
	}
	return sub, nil
}

// GetByID parses rawID through ParseID and loads the record.
func (s *submissionService) GetByID(ctx context.Context, rawID string) (*Submission, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return sub, nil
}

// normalizeFormData trims the scalar fields and copies the slices so the
// stored record never aliases the caller's tag store.
func normalizeFormData(d FormData) FormData {
	return FormData{
		Sources:  slices.Clone(d.Sources),
		Topics:   slices.Clone(d.Topics),
		Language: strings.TrimSpace(d.Language),
		Email:    strings.TrimSpace(d.Email),
	}
}

// wrapRepoErr passes AppErrors through and hides everything else.
func wrapRepoErr(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("submissions repository: %w", err))
}
