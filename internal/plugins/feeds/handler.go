package feeds

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/newsdigest/internal/middleware"
	"github.com/keyxmakerx/newsdigest/internal/plugins/form"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
)

// CardRemovedEvent tells the page a preview card is gone, so it can show the
// empty state once the last one is removed.
const CardRemovedEvent = "feeds:card-removed"

// Handler serves the feed viewer and the ingest API.
type Handler struct {
	service        FeedService
	fallbackLatest bool
}

// NewHandler creates a feed handler. fallbackLatest shows the most recent
// feeds to visitors who have no submission context.
func NewHandler(service FeedService, fallbackLatest bool) *Handler {
	return &Handler{service: service, fallbackLatest: fallbackLatest}
}

// resolveContext picks the feeds a visitor sees: their own submission, else
// one named in ?submission=, else the latest feeds if enabled.
func (h *Handler) resolveContext(c echo.Context) (Context, error) {
	return h.contextFor(form.ActiveSubmission(c), c.QueryParam("submission"))
}

// contextFor applies the resolution order to an already loaded session
// submission and the raw query parameter.
func (h *Handler) contextFor(active, query string) (Context, error) {
	if active != "" {
		return Context{SubmissionID: active}, nil
	}
	if query != "" {
		id, err := submissions.ParseID(query)
		if err != nil {
			return Context{}, err
		}
		return Context{SubmissionID: id.String()}, nil
	}
	return Context{Latest: h.fallbackLatest}, nil
}

// listData loads and groups the feeds for a context.
func (h *Handler) listData(ctx context.Context, fc Context) (ListData, error) {
	feeds, err := h.service.List(ctx, fc)
	if err != nil {
		return ListData{}, err
	}
	return ListData{Groups: GroupFeeds(feeds), Context: fc}, nil
}

// List renders the feed list (GET /feeds).
func (h *Handler) List(c echo.Context) error {
	fc, err := h.resolveContext(c)
	if err != nil {
		return err
	}
	d, err := h.listData(c.Request().Context(), fc)
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, FeedList(d))
}

// Sample renders the preview feeds (GET /feeds/sample).
func (h *Handler) Sample(c echo.Context) error {
	fc, err := h.resolveContext(c)
	if err != nil {
		return err
	}
	d := ListData{Groups: GroupFeeds(h.service.Samples()), Context: fc, Sample: true}
	return middleware.Render(c, http.StatusOK, FeedList(d))
}

// ClearSample drops the preview and shows the real list again
// (DELETE /feeds/sample).
func (h *Handler) ClearSample(c echo.Context) error {
	return h.List(c)
}

// Delete removes one card (DELETE /feeds/:id). Sample cards are removed from
// the page only. When the last stored card goes, the empty state is swapped
// in out of band.
func (h *Handler) Delete(c echo.Context) error {
	id := c.Param("id")

	if IsSampleID(id) {
		middleware.Toast(c, middleware.ToastSuccess, MsgSampleRemoved)
		middleware.Trigger(c, CardRemovedEvent, map[string]string{"id": id})
		return c.NoContent(http.StatusOK)
	}

	if _, err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	middleware.Toast(c, middleware.ToastSuccess, MsgFeedDeleted)

	fc, err := h.resolveContext(c)
	if err != nil {
		return err
	}
	d, err := h.listData(c.Request().Context(), fc)
	if err != nil {
		return err
	}
	if d.Empty() {
		return middleware.Render(c, http.StatusOK, FeedListOOB(d))
	}
	return c.NoContent(http.StatusOK)
}

// Export downloads a feed as CSV (GET /feeds/:id/export.csv).
func (h *Handler) Export(c echo.Context) error {
	f, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ExportFilename(f)+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(FeedToCSV(f)))
}
