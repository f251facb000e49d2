package form

import (
	"errors"
	"strings"

	"github.com/keyxmakerx/newsdigest/internal/validate"
)

// Kind identifies which list a tag belongs to.
type Kind string

// Tag kinds.
const (
	KindSource Kind = "source"
	KindTopic  Kind = "topic"
)

// MaxTagsPerKind caps both the source and the topic list.
const MaxTagsPerKind = 3

// Tag store errors. Handlers map them to field messages with TagMessage.
var (
	ErrEmpty            = errors.New("tag is empty")
	ErrInvalidDomain    = errors.New("not a valid domain")
	ErrNonEnglishSource = errors.New("source is not on an English TLD")
	ErrLimitReached     = errors.New("tag limit reached")
	ErrDuplicate        = errors.New("tag already present")
	ErrUnknownKind      = errors.New("unknown tag kind")
)

// Tag is a normalized source domain or topic.
type Tag struct {
	Value string `json:"value"`
	Kind  Kind   `json:"kind"`
}

// TagStore is the single source of truth for the tags a visitor has chosen.
// It is stored inside the form session and never rebuilt from rendered HTML.
type TagStore struct {
	Sources []string `json:"sources"`
	Topics  []string `json:"topics"`
}

// list returns a pointer to the slice backing kind, or nil for unknown kinds.
func (s *TagStore) list(kind Kind) *[]string {
	switch kind {
	case KindSource:
		return &s.Sources
	case KindTopic:
		return &s.Topics
	}
	return nil
}

// normalize reduces raw input to the stored form for kind and applies the
// per-value checks. Limit and duplicate checks happen in Add.
func normalize(raw string, kind Kind) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", ErrEmpty
	}

	switch kind {
	case KindSource:
		value = validate.NormalizeDomain(value)
		if value == "" {
			return "", ErrEmpty
		}
		if !validate.IsValidDomain(value) {
			return "", ErrInvalidDomain
		}
		if !validate.IsEnglishSource(value) {
			return "", ErrNonEnglishSource
		}
	case KindTopic:
		value = validate.CleanTopicText(value)
		if value == "" {
			return "", ErrEmpty
		}
	default:
		return "", ErrUnknownKind
	}
	return value, nil
}

// Add normalizes raw and appends it to the list for kind.
func (s *TagStore) Add(raw string, kind Kind) (Tag, error) {
	list := s.list(kind)
	if list == nil {
		return Tag{}, ErrUnknownKind
	}

	value, err := normalize(raw, kind)
	if err != nil {
		return Tag{}, err
	}
	if len(*list) >= MaxTagsPerKind {
		return Tag{}, ErrLimitReached
	}
	if s.Has(value, kind) {
		return Tag{}, ErrDuplicate
	}

	*list = append(*list, value)
	return Tag{Value: value, Kind: kind}, nil
}

// AddBatch splits raw on commas and newlines and adds each fragment. Empty
// fragments and duplicates are skipped without error. Only the first other
// failure is returned; later fragments are still attempted.
func (s *TagStore) AddBatch(raw string, kind Kind) ([]Tag, error) {
	fragments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	var added []Tag
	var firstErr error
	for _, f := range fragments {
		tag, err := s.Add(f, kind)
		switch {
		case err == nil:
			added = append(added, tag)
		case errors.Is(err, ErrEmpty), errors.Is(err, ErrDuplicate):
			continue
		case firstErr == nil:
			firstErr = err
		}
	}
	return added, firstErr
}

// Remove deletes the tag matching value. Removing an absent tag is a no-op.
func (s *TagStore) Remove(value string, kind Kind) {
	list := s.list(kind)
	if list == nil {
		return
	}
	normalized, err := normalize(value, kind)
	if err != nil {
		// Fall back to a plain trimmed compare so stale values can still go.
		normalized = strings.TrimSpace(value)
	}

	out := (*list)[:0]
	for _, v := range *list {
		if !strings.EqualFold(strings.TrimSpace(v), normalized) {
			out = append(out, v)
		}
	}
	*list = out
}

// Has reports whether value is already present under case-insensitive,
// whitespace-trimmed comparison.
func (s *TagStore) Has(value string, kind Kind) bool {
	list := s.list(kind)
	if list == nil {
		return false
	}
	value = strings.TrimSpace(value)
	for _, v := range *list {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}

// Count returns the number of tags of kind.
func (s *TagStore) Count(kind Kind) int {
	if list := s.list(kind); list != nil {
		return len(*list)
	}
	return 0
}

// Full reports whether kind has reached MaxTagsPerKind.
func (s *TagStore) Full(kind Kind) bool {
	return s.Count(kind) >= MaxTagsPerKind
}

// Tags returns the tags of kind in insertion order.
func (s *TagStore) Tags(kind Kind) []Tag {
	list := s.list(kind)
	if list == nil {
		return nil
	}
	tags := make([]Tag, 0, len(*list))
	for _, v := range *list {
		tags = append(tags, Tag{Value: v, Kind: kind})
	}
	return tags
}

// Clear empties both lists.
func (s *TagStore) Clear() {
	s.Sources = nil
	s.Topics = nil
}

// TagMessage returns the message shown next to the input for a tag error.
// It returns "" for errors that are not shown to the visitor.
func TagMessage(err error, kind Kind) string {
	switch {
	case err == nil, errors.Is(err, ErrEmpty):
		return ""
	case errors.Is(err, ErrInvalidDomain):
		return "Please enter a valid website domain"
	case errors.Is(err, ErrNonEnglishSource):
		return "Only English sources are allowed. Please use sources with .com, .org, .net, .io, .co, .uk, .us, .ca, .au, or .nz domains."
	case errors.Is(err, ErrLimitReached):
		if kind == KindTopic {
			return "You can select maximum 3 topics"
		}
		return "Maximum 3 sources allowed"
	case errors.Is(err, ErrDuplicate):
		if kind == KindTopic {
			return "This topic is already added"
		}
		return "This source is already added"
	}
	return "Something went wrong adding that tag"
}
