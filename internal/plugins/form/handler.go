package form

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/middleware"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
	"github.com/keyxmakerx/newsdigest/internal/validate"
)

// FeedsRefreshEvent is the client event that makes the feed viewer reload.
const FeedsRefreshEvent = "feeds:refresh"

// Handler serves the HTMX form endpoints. Every handler re-renders the
// smallest fragment that changed.
type Handler struct {
	service FormService
}

// NewHandler creates a new form handler backed by the given service.
func NewHandler(service FormService) *Handler {
	return &Handler{service: service}
}

// PanelData builds the render data for the current session. Used by the
// index page as well as the form handlers.
func (h *Handler) PanelData(sess *Session) PanelData {
	return PanelData{Session: sess, Catalogue: h.service.Catalogue()}
}

// AddSource adds one or more sources (POST /form/sources).
func (h *Handler) AddSource(c echo.Context) error {
	return h.addTags(c, KindSource)
}

// RemoveSource removes a source (DELETE /form/sources?value=).
func (h *Handler) RemoveSource(c echo.Context) error {
	return h.removeTag(c, KindSource)
}

// AddTopic adds free-text topics (POST /form/topics).
func (h *Handler) AddTopic(c echo.Context) error {
	return h.addTags(c, KindTopic)
}

// RemoveTopic removes a topic (DELETE /form/topics?value=).
func (h *Handler) RemoveTopic(c echo.Context) error {
	return h.removeTag(c, KindTopic)
}

// ToggleTopic checks or unchecks a catalogue topic (POST /form/topics/toggle).
func (h *Handler) ToggleTopic(c echo.Context) error {
	sess := GetSession(c)
	if sess == nil {
		return apperror.NewMissingContext()
	}

	checked := c.FormValue("checked") == "true"
	upd, err := h.service.ToggleTopic(c.Request().Context(), sess, c.FormValue("topic"), checked)
	if err != nil {
		return err
	}

	d := h.PanelData(sess)
	d.TopicMessage = upd.Message
	return middleware.Render(c, http.StatusOK, TopicsField(d))
}

// ValidateEmail returns the inline message for the email input
// (POST /form/email/validate). An empty field shows nothing until submit.
func (h *Handler) ValidateEmail(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	msg := ""
	if email != "" && !validate.IsValidEmail(email) {
		msg = "Please enter a valid email address"
	}
	return middleware.Render(c, http.StatusOK, EmailError(msg))
}

// Submit runs the submission (POST /form/submit). A repeated click while a
// submit is running gets an empty 204 and changes nothing.
func (h *Handler) Submit(c echo.Context) error {
	sess := GetSession(c)
	if sess == nil {
		return apperror.NewMissingContext()
	}

	language := c.FormValue("language")
	email := c.FormValue("email")

	res, err := h.service.Submit(c.Request().Context(), sess, language, email)
	if errors.Is(err, submissions.ErrInFlight) {
		return middleware.NoSwap(c)
	}
	if err != nil {
		return err
	}

	d := h.PanelData(sess)
	if !res.Succeeded() {
		d.Language = language
		d.Email = email
		d.Errors = res.Errors
		return middleware.Render(c, http.StatusOK, Panel(d))
	}

	middleware.Toast(c, middleware.ToastSuccess, submissions.MsgSubmitted)
	middleware.Trigger(c, FeedsRefreshEvent, nil)
	return middleware.Render(c, http.StatusOK, Panel(d))
}

// Reset starts the form over (POST /form/reset).
func (h *Handler) Reset(c echo.Context) error {
	sess := GetSession(c)
	if sess == nil {
		return apperror.NewMissingContext()
	}
	if err := h.service.Reset(c.Request().Context(), sess); err != nil {
		return err
	}
	middleware.Trigger(c, FeedsRefreshEvent, nil)
	return middleware.Render(c, http.StatusOK, Panel(h.PanelData(sess)))
}

func (h *Handler) addTags(c echo.Context, kind Kind) error {
	sess := GetSession(c)
	if sess == nil {
		return apperror.NewMissingContext()
	}

	upd, err := h.service.AddTags(c.Request().Context(), sess, c.FormValue("value"), kind)
	if err != nil {
		return err
	}
	return h.renderField(c, sess, kind, upd.Message)
}

func (h *Handler) removeTag(c echo.Context, kind Kind) error {
	sess := GetSession(c)
	if sess == nil {
		return apperror.NewMissingContext()
	}
	if err := h.service.RemoveTag(c.Request().Context(), sess, c.QueryParam("value"), kind); err != nil {
		return err
	}
	return h.renderField(c, sess, kind, "")
}

func (h *Handler) renderField(c echo.Context, sess *Session, kind Kind, msg string) error {
	d := h.PanelData(sess)
	if kind == KindTopic {
		d.TopicMessage = msg
		return middleware.Render(c, http.StatusOK, TopicsField(d))
	}
	d.SourceMessage = msg
	return middleware.Render(c, http.StatusOK, SourcesField(d))
}
