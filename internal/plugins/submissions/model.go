// Package submissions turns a completed sign-up form into a durable
// Submission record and hands it to the webhook workflow. It guards against
// double submission with a per-session lock and reports every outcome as a
// Result carrying the orchestrator state.
package submissions

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
)

// legacyIDPrefix marks identifiers written by earlier releases.
const legacyIDPrefix = "sub-"

// SubmissionID identifies a Submission. New IDs are bare UUIDv4 strings.
type SubmissionID string

// NewID returns a fresh SubmissionID.
func NewID() SubmissionID {
	return SubmissionID(uuid.NewString())
}

// ParseID is the only place that understands legacy "sub-<uuid>" IDs. It
// accepts either form and returns the canonical bare UUID.
func ParseID(raw string) (SubmissionID, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), legacyIDPrefix)
	u, err := uuid.Parse(s)
	if err != nil {
		return "", apperror.NewBadRequest("invalid submission id")
	}
	return SubmissionID(u.String()), nil
}

// LookupKeys returns the stored forms an ID may have been written under,
// canonical first. Repositories use it so legacy rows stay reachable.
func LookupKeys(id SubmissionID) []string {
	return []string{string(id), legacyIDPrefix + string(id)}
}

// String returns the canonical form.
func (id SubmissionID) String() string { return string(id) }

// FormData is built fresh at submit time from the tag store and the two
// form controls.
type FormData struct {
	Sources  []string `json:"sources"`
	Topics   []string `json:"topics"`
	Language string   `json:"language"`
	Email    string   `json:"email"`
}

// Submission is the persisted record. It is written once and never updated.
type Submission struct {
	ID        SubmissionID `json:"id"`
	Email     string       `json:"email"`
	Sources   []string     `json:"sources"`
	Topics    []string     `json:"topics"`
	Language  string       `json:"language"`
	CreatedAt time.Time    `json:"created_at"`
}

// State is a step of the submit state machine.
type State string

// Submit states. A validation failure goes back to StateIdle; Failed means
// the record could not be stored and the visitor may retry.
const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Result reports how a Submit call ended.
type Result struct {
	State      State                `json:"state"`
	Submission *Submission          `json:"submission,omitempty"`
	Errors     apperror.FieldErrors `json:"errors,omitempty"`

	// WebhookDelivered is false when the record was stored but the workflow
	// could not be notified. The submit still counts as a success.
	WebhookDelivered bool `json:"webhook_delivered"`
}

// Succeeded reports whether the record was stored.
func (r *Result) Succeeded() bool {
	return r != nil && r.State == StateSucceeded
}

// User-facing messages.
const (
	MsgSubmitted    = "Your subscription has been created! Check your email for updates."
	MsgSubmitFailed = "There was an error creating your subscription. Please try again."
)

// ErrInFlight is returned when a submit for the same session is already
// running. Callers treat it as a no-op.
var ErrInFlight = errors.New("submission already in progress")
