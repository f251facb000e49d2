// Package form owns the sign-up form: the per-browser form session, the tag
// store that backs the source and topic inputs, and the HTMX handlers that
// re-render each part of the form as the visitor edits it. Submission itself
// is delegated to the submissions plugin.
package form

import (
	_ "embed"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is the server-side state of one visitor's form. It is created on
// the first visit, identified by a cookie and kept in Redis.
type Session struct {
	ID   string   `json:"id"`
	Tags TagStore `json:"tags"`

	// SubmissionID is the active feed context once a submit has succeeded.
	SubmissionID string `json:"submission_id,omitempty"`

	// Locked is set after a successful submit. The form stays read-only
	// until the visitor starts over.
	Locked bool `json:"locked"`

	CreatedAt time.Time `json:"created_at"`
}

// TagUpdate is the outcome of an add or toggle: the tags that made it in and
// the message to show next to the input, if any.
type TagUpdate struct {
	Added   []Tag
	Message string
}

// Language is one option of the language select.
type Language struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Catalogue lists the topic checkboxes and language options offered on the page.
type Catalogue struct {
	Topics    []string   `yaml:"topics"`
	Languages []Language `yaml:"languages"`
}

// HasTopic reports whether topic is one of the offered checkboxes.
func (c *Catalogue) HasTopic(topic string) bool {
	return slices.Contains(c.Topics, topic)
}

//go:embed catalogue.yaml
var catalogueYAML []byte

// LoadCatalogue parses the embedded topic and language catalogue.
func LoadCatalogue() (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(catalogueYAML, &c); err != nil {
		return nil, fmt.Errorf("parsing form catalogue: %w", err)
	}
	if len(c.Languages) == 0 {
		return nil, fmt.Errorf("form catalogue has no languages")
	}
	return &c, nil
}
