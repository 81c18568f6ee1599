package http

import (
	"encoding/json"
	"net/http"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/monitoring"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Handler maps the game operations onto JSON over HTTP.
type Handler struct {
	service *app.GameService
	metrics *monitoring.Metrics
	log     *zap.Logger
	ws      *WSHandler
}

func NewHandler(service *app.GameService, metrics *monitoring.Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		service: service,
		metrics: metrics,
		log:     log,
		ws:      NewWSHandler(service, log),
	}
}

type joinRequest struct {
	PlayerID string `json:"playerId"`
}

type answerRequest struct {
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Routes builds the router serving every endpoint of the service.
func (h *Handler) Routes() http.Handler {
	router := httprouter.New()
	router.POST("/games/join", h.instrument("join", h.join))
	router.POST("/games/answers", h.instrument("answer", h.answer))
	router.GET("/games/:id", h.instrument("game", h.game))
	router.GET("/players/:id/current-game", h.instrument("current_game", h.currentGame))
	router.HandlerFunc(http.MethodGet, "/ws", h.ws.ServeWS)
	router.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		router.Handler(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	return router
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	view, err := h.service.JoinOrCreate(r.Context(), req.PlayerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), req.PlayerID, req.Answer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) game(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) currentGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.GetCurrentForPlayer(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorPayload{Message: msg})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// instrument records request count and latency under a fixed route name.
func (h *Handler) instrument(route string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r, ps)
		h.metrics.ObserveRequest(r.Method, route, rec.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
