package form

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
)

// errLocked is returned when a submitted form is edited before a reset.
var errLocked = apperror.NewConflict("This subscription has already been submitted. Start over to create another.")

// MsgFormNotUpdated is shown when the submission was stored but the form
// session could not record it. Submitting again picks the stored record up.
const MsgFormNotUpdated = "Your subscription was created, but this form could not be updated. Please submit again."

// FormService defines the business logic contract for the sign-up form.
type FormService interface {
	// Load returns the session for id, creating a fresh one when id is
	// empty, unknown or expired.
	Load(ctx context.Context, id string) (*Session, error)

	// Find returns an existing session and never creates one. A missing or
	// expired session is a 404 AppError.
	Find(ctx context.Context, id string) (*Session, error)

	AddTags(ctx context.Context, sess *Session, raw string, kind Kind) (*TagUpdate, error)
	RemoveTag(ctx context.Context, sess *Session, value string, kind Kind) error
	ToggleTopic(ctx context.Context, sess *Session, topic string, checked bool) (*TagUpdate, error)

	// Reset clears the tags, the lock and the feed context.
	Reset(ctx context.Context, sess *Session) error

	// Submit hands the session's tags plus the two control values to the
	// submission orchestrator. On success the session is locked and its
	// SubmissionID becomes the active feed context.
	Submit(ctx context.Context, sess *Session, language, email string) (*submissions.Result, error)

	Catalogue() *Catalogue
}

// formService implements FormService.
type formService struct {
	repo        SessionRepository
	submissions submissions.SubmissionService
	catalogue   *Catalogue
	now         func() time.Time
}

// NewFormService creates a new form service.
func NewFormService(repo SessionRepository, subs submissions.SubmissionService, catalogue *Catalogue) FormService {
	return &formService{
		repo:        repo,
		submissions: subs,
		catalogue:   catalogue,
		now:         time.Now,
	}
}

// Catalogue returns the topic and language options.
func (s *formService) Catalogue() *Catalogue {
	return s.catalogue
}

// Load fetches or creates the visitor's session.
func (s *formService) Load(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		sess, err := s.Find(ctx, id)
		if err == nil {
			return sess, nil
		}
		if apperror.SafeCode(err) != http.StatusNotFound {
			return nil, err
		}
	}

	newID, err := generateSessionID()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	sess := &Session{ID: newID, CreatedAt: s.now().UTC()}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Find loads an existing session, hiding Redis details from the client.
func (s *formService) Find(ctx context.Context, id string) (*Session, error) {
	sess, err := s.repo.Find(ctx, id)
	if err == nil {
		return sess, nil
	}
	if apperror.SafeCode(err) == http.StatusNotFound {
		return nil, err
	}
	return nil, apperror.NewInternal(fmt.Errorf("loading form session: %w", err))
}

// AddTags adds typed or pasted input. Input containing a comma or newline
// goes through AddBatch, which skips duplicates silently. A single source
// duplicate is reported; a single topic duplicate is not.
func (s *formService) AddTags(ctx context.Context, sess *Session, raw string, kind Kind) (*TagUpdate, error) {
	if sess.Locked {
		return nil, errLocked
	}

	var added []Tag
	var err error
	if strings.ContainsAny(raw, ",\n\r") {
		added, err = sess.Tags.AddBatch(raw, kind)
	} else {
		var tag Tag
		tag, err = sess.Tags.Add(raw, kind)
		if err == nil {
			added = []Tag{tag}
		} else if kind == KindTopic && errors.Is(err, ErrDuplicate) {
			err = nil
		}
	}
	if errors.Is(err, ErrUnknownKind) {
		return nil, apperror.NewBadRequest("unknown tag kind")
	}

	update := &TagUpdate{Added: added, Message: TagMessage(err, kind)}
	if len(added) > 0 {
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
	}
	return update, nil
}

// RemoveTag removes one tag. Removing a tag that is not there is a no-op.
func (s *formService) RemoveTag(ctx context.Context, sess *Session, value string, kind Kind) error {
	if sess.Locked {
		return errLocked
	}
	if kind != KindSource && kind != KindTopic {
		return apperror.NewBadRequest("unknown tag kind")
	}
	before := sess.Tags.Count(kind)
	sess.Tags.Remove(value, kind)
	if sess.Tags.Count(kind) == before {
		return nil
	}
	return s.save(ctx, sess)
}

// ToggleTopic checks or unchecks one catalogue topic. Checking a topic while
// the list is full leaves it unchecked and reports the limit.
func (s *formService) ToggleTopic(ctx context.Context, sess *Session, topic string, checked bool) (*TagUpdate, error) {
	if sess.Locked {
		return nil, errLocked
	}
	if !s.catalogue.HasTopic(topic) {
		return nil, apperror.NewBadRequest("unknown topic")
	}

	if !checked {
		if err := s.RemoveTag(ctx, sess, topic, KindTopic); err != nil {
			return nil, err
		}
		return &TagUpdate{}, nil
	}

	tag, err := sess.Tags.Add(topic, KindTopic)
	switch {
	case err == nil:
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		return &TagUpdate{Added: []Tag{tag}}, nil
	case errors.Is(err, ErrDuplicate):
		return &TagUpdate{}, nil
	default:
		return &TagUpdate{Message: TagMessage(err, KindTopic)}, nil
	}
}

// Reset starts the form over, keeping the same session ID.
func (s *formService) Reset(ctx context.Context, sess *Session) error {
	if sess.Locked {
		if err := s.submissions.Unlock(ctx, sess.ID); err != nil {
			return err
		}
	}
	sess.Tags.Clear()
	sess.Locked = false
	sess.SubmissionID = ""
	return s.save(ctx, sess)
}

// Submit builds FormData from the session and runs the orchestrator.
func (s *formService) Submit(ctx context.Context, sess *Session, language, email string) (*submissions.Result, error) {
	if sess.Locked {
		return nil, errLocked
	}

	res, err := s.submissions.Submit(ctx, sess.ID, submissions.FormData{
		Sources:  sess.Tags.Sources,
		Topics:   sess.Tags.Topics,
		Language: language,
		Email:    email,
	})
	if errors.Is(err, submissions.ErrInFlight) {
		return s.resumeHeld(ctx, sess, err)
	}
	if err != nil || !res.Succeeded() {
		// Tags stay in place so the visitor can fix and retry.
		return res, err
	}

	lockTo(sess, res.Submission.ID)
	if err := s.save(ctx, sess); err != nil {
		// The record exists but the stored session still reads unlocked.
		// Pin the guard to the record so a retry resumes it instead of
		// storing a second one.
		slog.Error("saving form session after submit failed",
			slog.String("session_id", sess.ID),
			slog.String("submission_id", sess.SubmissionID),
			slog.Any("error", err),
		)
		if herr := s.submissions.Hold(context.WithoutCancel(ctx), sess.ID, res.Submission.ID); herr != nil {
			slog.Error("holding submit guard failed",
				slog.String("session_id", sess.ID),
				slog.Any("error", herr),
			)
		}
		return res, apperror.NewInternalWithMessage(err, MsgFormNotUpdated)
	}
	return res, nil
}

// resumeHeld finishes a submit whose session save failed earlier: the guard
// still holds that submission, so the session is locked to it now. Without
// a held submission the in-flight error is returned unchanged.
func (s *formService) resumeHeld(ctx context.Context, sess *Session, inFlight error) (*submissions.Result, error) {
	sub, err := s.submissions.Held(ctx, sess.ID)
	if err != nil {
		slog.Warn("reading held submission failed",
			slog.String("session_id", sess.ID),
			slog.Any("error", err),
		)
		return nil, inFlight
	}
	if sub == nil {
		return nil, inFlight
	}

	lockTo(sess, sub.ID)
	if err := s.save(ctx, sess); err != nil {
		return nil, apperror.NewInternalWithMessage(err, MsgFormNotUpdated)
	}
	slog.Info("form session resumed held submission",
		slog.String("session_id", sess.ID),
		slog.String("submission_id", sess.SubmissionID),
	)
	return &submissions.Result{State: submissions.StateSucceeded, Submission: sub}, nil
}

// lockTo clears the tags and makes id the session's feed context.
func lockTo(sess *Session, id submissions.SubmissionID) {
	sess.Tags.Clear()
	sess.Locked = true
	sess.SubmissionID = id.String()
}

// save persists the session, hiding Redis details from the client.
func (s *formService) save(ctx context.Context, sess *Session) error {
	if err := s.repo.Save(ctx, sess); err != nil {
		return apperror.NewInternal(fmt.Errorf("saving form session: %w", err))
	}
	return nil
}

// generateSessionID returns a random 32-byte hex string.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating form session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
