package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/httputil"
	"satnam/pkg/platform/middleware/metadata"
	"satnam/pkg/requestcontext"
)

// Service is the slice of the onboarding service the ops API drives.
type Service interface {
	Snapshot(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	PauseSession(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	ResumeSession(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	CancelSession(ctx context.Context, sessionID id.SessionID, confirm bool) (models.Session, error)
	AttestationProgress(ctx context.Context, sessionID id.SessionID, pid id.ParticipantID) (models.AttestationProgress, error)
	ListResumable(ctx context.Context, coordinator id.UserID) ([]models.Session, error)
}

// Handler exposes session status and control endpoints to a second
// coordinator terminal.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the session endpoints. Callers apply auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/onboarding/sessions", h.HandleListResumable)
	r.Route("/onboarding/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.HandleGetSession)
		r.Post("/pause", h.HandlePause)
		r.Post("/resume", h.HandleResume)
		r.Post("/cancel", h.HandleCancel)
		r.Get("/participants/{participantID}/attestation", h.HandleAttestation)
	})
}

func (h *Handler) HandleListResumable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.service.ListResumable(ctx, requestcontext.CoordinatorID(ctx))
	if err != nil {
		h.fail(ctx, w, "list sessions", err)
		return
	}
	resp := ListResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSummary(sess))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "pause", func(ctx context.Context, sid id.SessionID) (models.Session, error) {
		return h.service.PauseSession(ctx, sid)
	})
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "resume", func(ctx context.Context, sid id.SessionID) (models.Session, error) {
		return h.service.ResumeSession(ctx, sid)
	})
}

// HandleCancel requires {"confirm": true}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[CancelRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.control(w, r, "cancel", func(ctx context.Context, sid id.SessionID) (models.Session, error) {
		return h.service.CancelSession(ctx, sid, req.Confirm)
	})
}

func (h *Handler) HandleAttestation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	pid, err := id.ParseParticipantID(chi.URLParam(r, "participantID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "participant id must be a UUID"))
		return
	}
	progress, err := h.service.AttestationProgress(ctx, sess.ID, pid)
	if err != nil {
		h.fail(ctx, w, "attestation progress", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAttestationResponse(progress))
}

func (h *Handler) control(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, id.SessionID) (models.Session, error)) {
	ctx := r.Context()
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	updated, err := fn(ctx, sess.ID)
	if err != nil {
		h.fail(ctx, w, action, err)
		return
	}
	h.logger.InfoContext(ctx, "session "+action+" via ops api",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", updated.ID.String(),
		"status", string(updated.Status),
		"client_ip", metadata.GetClientIP(ctx),
		"client", metadata.GetClientAgent(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(updated))
}

// ownedSession loads the path session and hides sessions that belong to
// another coordinator.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	ctx := r.Context()
	sid, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "session id must be a UUID"))
		return models.Session{}, false
	}
	if scoped := requestcontext.SessionID(ctx); !scoped.IsNil() && scoped != sid {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token is scoped to another session"))
		return models.Session{}, false
	}
	sess, err := h.service.Snapshot(ctx, sid)
	if err != nil {
		h.fail(ctx, w, "load session", err)
		return models.Session{}, false
	}
	if sess.CoordinatorUserID != requestcontext.CoordinatorID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session not found"))
		return models.Session{}, false
	}
	return sess, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, action+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// Health reports readiness of the named dependencies.
type Health map[string]func(ctx context.Context) error

func (hc Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range hc {
		if err := check(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
