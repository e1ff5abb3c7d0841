package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/types"
)

const defaultNoticeLimit = 20

// SyncHandler serves sync status, notices and preferences.
type SyncHandler struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps Dependencies, v *validator.Validate) *SyncHandler {
	return &SyncHandler{deps: deps, validate: v}
}

// HandleStatus handles GET /sync.
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.SyncStatus())
}

// HandleNotices handles GET /notices?after=&limit=.
func (h *SyncHandler) HandleNotices(w http.ResponseWriter, r *http.Request) {
	const op = "api.notices"
	q := r.URL.Query()

	var after int64
	if s := q.Get("after"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		after = v
	}
	limit := defaultNoticeLimit
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = v
	}
	writeJSON(w, http.StatusOK, h.deps.Notices(after, limit))
}

// HandleGetPreferences handles GET /preferences.
func (h *SyncHandler) HandleGetPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Preferences())
}

// HandlePutPreferences handles PUT /preferences.
func (h *SyncHandler) HandlePutPreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_preferences"
	var req preferencesRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.SetPreferences(r.Context(), types.Preferences{
		LastEvaluatorName: req.LastEvaluatorName,
		Theme:             model.Theme(req.Theme),
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
