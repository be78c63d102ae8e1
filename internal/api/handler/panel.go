package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/middleware"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/panel"
)

// SessionIDHeader carries the client's panel session id. The router's
// Session middleware validates it.
const SessionIDHeader = middleware.SessionIDHeader

// SessionStore hands out per-client panel sessions.
type SessionStore interface {
	Get(id string) *panel.Session
}

// PanelHandler handles the combined location panel.
type PanelHandler struct {
	loader   panel.Loader
	sessions SessionStore
	logger   zerolog.Logger
}

// NewPanelHandler creates a new PanelHandler. sessions may be nil, in which
// case every request loads independently.
func NewPanelHandler(loader panel.Loader, sessions SessionStore, logger zerolog.Logger) *PanelHandler {
	return &PanelHandler{
		loader:   loader,
		sessions: sessions,
		logger:   logger,
	}
}

// GetPanel handles GET /v1/panel - place, weather, stations and satellite for
// a point. With an X-Session-Id header a newer request from the same session
// supersedes this one, which then answers 409.
func (h *PanelHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	sessionID := GetSessionID(r.Context())
	state, err := h.load(r.Context(), sessionID, point)
	if err != nil {
		if errors.Is(err, panel.ErrSuperseded) {
			h.logger.Debug().Str("session_id", sessionID).Msg("panel load superseded")
			response.Superseded(w, r, "Selection superseded by a newer request.")
			return
		}
		response.InternalError(w, r, "Failed to load panel.")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, state)
}

func (h *PanelHandler) load(ctx context.Context, sessionID string, point geo.Point) (panel.State, error) {
	if sessionID == "" || h.sessions == nil {
		return h.loader.Load(ctx, point), nil
	}
	return h.sessions.Get(sessionID).Select(ctx, point)
}
