package realtime

import (
	"context"
	"sync"
)

// Action is what a viewer should do in response to an event.
type Action int

// Possible reactions to a feed event.
const (
	ActionIgnore Action = iota
	ActionReload
	ActionRemove
)

// String returns a log-friendly name.
func (a Action) String() string {
	switch a {
	case ActionReload:
		return "reload"
	case ActionRemove:
		return "remove"
	default:
		return "ignore"
	}
}

// Decision is the outcome of Decide. FeedID and Empty are set for
// ActionRemove; Empty means no rendered feed is left.
type Decision struct {
	Action Action
	FeedID string
	Empty  bool
}

// Reconciler keeps one viewer in step with feed changes. It owns at most
// one live subscription and remembers which feeds the viewer has on screen.
type Reconciler struct {
	mu           sync.Mutex
	sub          Subscription
	submissionID string
	rendered     map[string]struct{}
}

// NewReconciler creates an idle reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{rendered: make(map[string]struct{})}
}

// Start subscribes for the given submission context, closing any previous
// subscription first. An empty submissionID watches every feed.
func (r *Reconciler) Start(ctx context.Context, s Subscriber, submissionID string) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		_ = r.sub.Close()
		r.sub = nil
	}

	sub, err := s.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	r.sub = sub
	r.submissionID = submissionID
	return sub.Events(), nil
}

// Retarget switches the submission context without touching the
// subscription: every viewer listens on the same channel and Decide does
// the filtering.
func (r *Reconciler) Retarget(submissionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissionID = submissionID
}

// Stop closes the active subscription, if any.
func (r *Reconciler) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	err := r.sub.Close()
	r.sub = nil
	return err
}

// Active reports whether a subscription is open.
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub != nil
}

// SetRendered replaces the set of feed IDs currently on screen.
func (r *Reconciler) SetRendered(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		r.rendered[id] = struct{}{}
	}
}

// Decide maps an event to an action for this viewer. Inserts for the
// viewer's submission (or any insert when it has none) reload the list;
// deletes of a rendered feed remove just that card.
func (r *Reconciler) Decide(ev Event) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case EventInsert:
		if r.submissionID == "" || ev.Feed.SubmissionID == r.submissionID {
			return Decision{Action: ActionReload}
		}
	case EventDelete:
		if _, ok := r.rendered[ev.Feed.ID]; ok {
			delete(r.rendered, ev.Feed.ID)
			return Decision{Action: ActionRemove, FeedID: ev.Feed.ID, Empty: len(r.rendered) == 0}
		}
	}
	return Decision{Action: ActionIgnore}
}
