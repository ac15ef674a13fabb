package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"boardsync/domain"
	"boardsync/stream"
)

const heartbeatInterval = 25 * time.Second

// EventSource hands out per-connection subscriptions scoped to one
// organization.
type EventSource interface {
	Subscribe(orgID string) *stream.Subscription
}

// streamEvents serves the SSE firehose for the caller's organization.
// Browsers cannot set headers on an EventSource, so the token may also
// arrive as a query parameter.
func streamEvents(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		token, err := bearerToken(authHeader)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err))
		}
		sub, err := cfg.Resolver.Resolve(c.Request().Context(), token)
		if err != nil {
			return writeError(c, err)
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		// An initial comment makes sure headers reach the client right away.
		if _, err := fmt.Fprint(c.Response(), ": ok\n\n"); err != nil {
			return nil
		}
		flusher.Flush()

		events := cfg.Events.Subscribe(sub.OrganizationID)
		defer events.Close()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-heartbeat.C:
				if _, err := fmt.Fprint(c.Response(), ": keep-alive\n\n"); err != nil {
					return nil
				}
				flusher.Flush()
			case ev, open := <-events.Events():
				if !open {
					return nil
				}
				if err := writeEvent(c.Response(), ev); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

// writeEvent encodes one change event as a named SSE frame. Deletes carry
// just the entity id; creates and updates carry the full entity.
func writeEvent(w http.ResponseWriter, ev domain.ChangeEvent) error {
	payload := []byte(ev.Entity)
	if ev.Operation == domain.OpDeleted {
		payload = []byte(fmt.Sprintf("%q", ev.EntityID))
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name(), payload)
	return err
}
