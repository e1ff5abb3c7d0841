package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

// EventsHandler serves the evaluator-facing event routes.
type EventsHandler struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, v *validator.Validate) *EventsHandler {
	return &EventsHandler{deps: deps, validate: v}
}

// HandleList handles GET /events.
func (h *EventsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ListEvents())
}

// HandleGet handles GET /events/{id}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	d, err := h.deps.EventDetail(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleListEvaluations handles GET /events/{id}/evaluations. The group and
// evaluator query parameters narrow the result, so a form can be prefilled.
func (h *EventsHandler) HandleListEvaluations(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_evaluations"
	eventID := r.PathValue("id")
	if _, err := h.deps.EventDetail(eventID); err != nil {
		writeServiceError(w, op, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.deps.ListEvaluations(eventID, q.Get("group"), q.Get("evaluator")))
}

// HandleSubmitEvaluation handles POST /events/{id}/evaluations.
func (h *EventsHandler) HandleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_evaluation"
	var req evaluationRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, updated, err := h.deps.SubmitEvaluation(r.Context(), req.input(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	status := http.StatusCreated
	if updated {
		status = http.StatusOK
	}
	writeJSON(w, status, evaluationResponse{Evaluation: ev, Updated: updated})
}
