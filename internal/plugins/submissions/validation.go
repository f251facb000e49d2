package submissions

import (
	"strings"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/validate"
)

// Field names used as keys in FieldErrors. They match the form input names.
const (
	FieldSources  = "sources"
	FieldTopics   = "topics"
	FieldLanguage = "language"
	FieldEmail    = "email"
)

// maxPerList mirrors the tag store limit for callers that bypass the form.
const maxPerList = 3

// ValidateFormData checks every field and returns all failures in form
// order. An empty result means the data is valid.
func ValidateFormData(d FormData) apperror.FieldErrors {
	var fe apperror.FieldErrors

	switch {
	case len(d.Sources) == 0:
		fe.Add(FieldSources, "Please add at least one media source")
	case len(d.Sources) > maxPerList:
		fe.Add(FieldSources, "Maximum 3 sources allowed")
	default:
		for _, s := range d.Sources {
			if !validate.IsValidDomain(s) {
				fe.Add(FieldSources, "Please enter a valid website domain")
				break
			}
		}
	}

	switch {
	case len(d.Topics) == 0:
		fe.Add(FieldTopics, "Please add at least one topic")
	case len(d.Topics) > maxPerList:
		fe.Add(FieldTopics, "You can select maximum 3 topics")
	}

	if strings.TrimSpace(d.Language) == "" {
		fe.Add(FieldLanguage, "Please select a language")
	}

	email := strings.TrimSpace(d.Email)
	switch {
	case email == "":
		fe.Add(FieldEmail, "Please enter your email address")
	case !validate.IsValidEmail(email):
		fe.Add(FieldEmail, "Please enter a valid email address")
	}

	return fe
}
