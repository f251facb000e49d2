package feeds

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/form"
	"github.com/keyxmakerx/newsdigest/internal/realtime"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// SessionFinder looks up an existing form session without creating one.
// form.FormService satisfies it.
type SessionFinder interface {
	Find(ctx context.Context, id string) (*form.Session, error)
}

// Stream pushes feed changes to one browser over a WebSocket.
type Stream struct {
	handler    *Handler
	subscriber realtime.Subscriber
	registry   *realtime.Registry
	sessions   SessionFinder
	upgrader   websocket.Upgrader
}

// NewStream creates the live feed endpoint. Only same-origin pages may
// connect. sessions is consulted on every event because a submit or reset
// changes the visitor's feed context while the socket stays open.
func NewStream(h *Handler, subscriber realtime.Subscriber, registry *realtime.Registry, sessions SessionFinder) *Stream {
	return &Stream{
		handler:    h,
		subscriber: subscriber,
		registry:   registry,
		sessions:   sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Serve upgrades GET /feeds/stream and runs until the browser leaves, a
// newer stream for the same session replaces it, or the broker fails.
// Broker failures close the stream; the page does not reconnect on its own.
func (s *Stream) Serve(c echo.Context) error {
	sess := form.GetSession(c)
	if sess == nil {
		return apperror.NewMissingContext()
	}
	query := c.QueryParam("submission")
	fc, err := s.handler.resolveContext(c)
	if err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("websocket upgrade failed", slog.Any("error", err))
		return nil
	}
	defer conn.Close()

	ctx, release := s.registry.Register(c.Request().Context(), sess.ID)
	defer release()
	go readPump(conn, release)

	rec := realtime.NewReconciler()
	events, err := rec.Start(ctx, s.subscriber, fc.SubmissionID)
	if err != nil {
		slog.Error("feed stream subscribe failed", slog.Any("error", err))
		closeStream(conn, websocket.CloseInternalServerErr, "subscription failed")
		return nil
	}
	defer rec.Stop()

	if d, err := s.handler.listData(ctx, fc); err == nil {
		rec.SetRendered(FeedIDs(d.Groups))
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closeStream(conn, websocket.CloseNormalClosure, "")
			return nil

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}

		case ev, ok := <-events:
			if !ok {
				// The htmx ws extension reconnects on 1013 but not on 1011.
				slog.Warn("feed stream closed by broker", slog.String("session", sess.ID))
				closeStream(conn, websocket.CloseInternalServerErr, "realtime unavailable")
				return nil
			}
			fc = s.refreshContext(ctx, rec, sess.ID, query, fc)
			if err := s.apply(ctx, conn, rec, fc, ev); err != nil {
				slog.Warn("feed stream write failed", slog.Any("error", err))
				return nil
			}
		}
	}
}

// refreshContext re-reads the visitor's session so the stream follows a
// submit or reset made after it opened. On any lookup failure the current
// context is kept.
func (s *Stream) refreshContext(ctx context.Context, rec *realtime.Reconciler, sessionID, query string, cur Context) Context {
	sess, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		slog.Debug("feed stream session reload failed",
			slog.String("session", sessionID),
			slog.Any("error", err),
		)
		return cur
	}

	fc, err := s.handler.contextFor(sess.SubmissionID, query)
	if err != nil || fc == cur {
		return cur
	}

	slog.Debug("feed stream context changed",
		slog.String("session", sessionID),
		slog.String("submission_id", fc.SubmissionID),
	)
	rec.Retarget(fc.SubmissionID)

	// The page refreshed its own list on submit or reset; track what it
	// now shows.
	if d, err := s.handler.listData(ctx, fc); err == nil {
		rec.SetRendered(FeedIDs(d.Groups))
	} else {
		rec.SetRendered(nil)
	}
	return fc
}

// apply turns one event into at most one fragment for the page.
func (s *Stream) apply(ctx context.Context, conn *websocket.Conn, rec *realtime.Reconciler, fc Context, ev realtime.Event) error {
	dec := rec.Decide(ev)
	slog.Debug("feed event", slog.String("type", string(ev.Type)), slog.String("action", dec.Action.String()))

	var buf bytes.Buffer
	switch dec.Action {
	case realtime.ActionReload:
		if !fc.Active() {
			// Nothing to list; a preview may be on screen and stays.
			return nil
		}
		d, err := s.handler.listData(ctx, fc)
		if err != nil {
			slog.Warn("reloading feeds for stream failed", slog.Any("error", err))
			return nil
		}
		rec.SetRendered(FeedIDs(d.Groups))
		if err := FeedListOOB(d).Render(ctx, &buf); err != nil {
			return err
		}

	case realtime.ActionRemove:
		if err := RemoveCardOOB(dec.FeedID).Render(ctx, &buf); err != nil {
			return err
		}
		if dec.Empty {
			if err := FeedListOOB(ListData{Context: fc}).Render(ctx, &buf); err != nil {
				return err
			}
		}

	default:
		return nil
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// readPump drains client frames so control messages are handled, and ends
// the stream when the browser goes away.
func readPump(conn *websocket.Conn, done func()) {
	defer done()
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}
