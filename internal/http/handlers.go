package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"transcript-restream-service/internal/app"
	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/observability/metrics"
	"transcript-restream-service/internal/service/replay"
	"transcript-restream-service/internal/service/session"
	"transcript-restream-service/internal/service/sink/livepush"
	whsink "transcript-restream-service/internal/service/sink/webhook"
)

type handlers struct {
	app     *app.Application
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func newHandlers(a *app.Application) *handlers {
	return &handlers{
		app:     a,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("api"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, filename string) {
	writeJSON(w, status, models.ErrorResponse{Status: "error", Message: message, Filename: filename})
}

func (h *handlers) listTranscripts(w http.ResponseWriter, _ *http.Request) {
	files, err := h.app.Loader.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list transcripts")
		writeError(w, http.StatusInternalServerError, "failed to list transcripts", "")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *handlers) websocketBroadcast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.createLivePush(w, q.Get("filename"), q.Get("session_id"))
}

func (h *handlers) rerun(w http.ResponseWriter, r *http.Request) {
	var req models.RerunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	h.createLivePush(w, req.Filename, req.SessionID)
}

// createSession loads filename and registers a pending session. On failure it
// has already written the response and returns ok == false.
func (h *handlers) createSession(w http.ResponseWriter, filename, id string, kind session.Kind) (session.Session, bool) {
	records, err := h.app.Loader.Load(filename)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", filename).Msg("Failed to load transcript")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to load transcript: %v", err), filename)
		return session.Session{}, false
	}

	if id == "" {
		id = session.NewID()
	}
	s := session.New(id, filename, kind, records)
	if err := h.app.Registry.Create(s); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrSessionExists) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error(), filename)
		return session.Session{}, false
	}
	h.metrics.RecordSessionCreated(kind.String())

	h.logger.Info().
		Str("sessionId", id).
		Str("filename", filename).
		Str("sink", kind.String()).
		Int("records", len(records)).
		Msg("Session created")
	return s, true
}

func (h *handlers) filenameOrDefault(filename string) string {
	if filename == "" {
		return h.app.Cfg.Transcripts.DefaultFile
	}
	return filename
}

func (h *handlers) createLivePush(w http.ResponseWriter, filename, id string) {
	filename = h.filenameOrDefault(filename)
	s, ok := h.createSession(w, filename, id, session.KindLivePush)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.WebsocketInfo{
		WebsocketURL: livepush.URL(h.app.Cfg.Service.PublicWSBaseURL, s.ID),
		SessionID:    s.ID,
		Port:         h.app.Cfg.Service.HTTPPort,
	})
}

func (h *handlers) webhookBroadcast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filename := h.filenameOrDefault(q.Get("filename"))
	useTest, _ := strconv.ParseBool(q.Get("use_test"))

	url, environment := h.app.Cfg.WebhookURL(useTest)
	if url == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("no webhook url configured for %s", environment), filename)
		return
	}

	s, ok := h.createSession(w, filename, q.Get("session_id"), session.KindWebhook)
	if !ok {
		return
	}
	h.app.Scheduler.Start(s.ID, replay.Mirror(whsink.New(url, h.app.Webhook), h.app.Publisher))

	writeJSON(w, http.StatusOK, models.WebhookBroadcastResponse{
		Status:      "success",
		Message:     "Webhook broadcast started",
		Filename:    filename,
		SessionID:   s.ID,
		WebhookURL:  url,
		Environment: environment,
	})
}

func view(s session.Session) models.SessionView {
	return models.SessionView{
		ID:        s.ID,
		Filename:  s.Filename,
		Kind:      s.Kind.String(),
		State:     s.State.String(),
		Cursor:    s.Cursor,
		Total:     len(s.Records),
		Remaining: s.Remaining(),
		CreatedAt: s.CreatedAt,
	}
}

func (h *handlers) listSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.app.Registry.List()
	out := make([]models.SessionView, len(sessions))
	for i, s := range sessions {
		out[i] = view(s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.app.Registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, models.SessionNotFound, "")
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}
