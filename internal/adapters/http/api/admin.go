package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/avalia/internal/app"
)

// AdminHandler serves the password-protected admin routes.
type AdminHandler struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies, v *validator.Validate) *AdminHandler {
	return &AdminHandler{deps: deps, validate: v}
}

func (h *AdminHandler) badRequest(w http.ResponseWriter, op string, err error) {
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
}

// HandleLogin handles POST /admin/login.
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_login"
	var req loginRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	if err := h.deps.Authenticate(req.Password); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleCreateEvent handles POST /admin/events.
func (h *AdminHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req createEventRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	ev, err := h.deps.CreateEvent(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleUpdateEvent handles PATCH /admin/events/{id}.
func (h *AdminHandler) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_event"
	var req updateEventRequest
	if err := decode(w, r, nil, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	ev, err := h.deps.UpdateEvent(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleDeleteEvent handles DELETE /admin/events/{id}.
func (h *AdminHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRanking handles GET /admin/events/{id}/ranking.
func (h *AdminHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.deps.Ranking(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "api.ranking", err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// HandleAddGroup handles POST /admin/events/{id}/groups.
func (h *AdminHandler) HandleAddGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_group"
	var req nameIconRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	g, err := h.deps.AddGroup(r.Context(), r.PathValue("id"), req.Name, req.Icon)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleUpdateGroup handles PATCH /admin/groups/{id}.
func (h *AdminHandler) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_group"
	var req patchNameIconRequest
	if err := decode(w, r, nil, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	g, err := h.deps.UpdateGroup(r.Context(), r.PathValue("id"), service.GroupPatch{Name: req.Name, Icon: req.Icon})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleDeleteGroup handles DELETE /admin/groups/{id}.
func (h *AdminHandler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteGroup(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddMember handles POST /admin/groups/{id}/members.
func (h *AdminHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_member"
	var req nameIconRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	m, err := h.deps.AddMember(r.Context(), r.PathValue("id"), req.Name, req.Icon)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleUpdateMember handles PATCH /admin/groups/{id}/members/{memberId}.
func (h *AdminHandler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_member"
	var req patchNameIconRequest
	if err := decode(w, r, nil, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	m, err := h.deps.UpdateMember(r.Context(), r.PathValue("id"), r.PathValue("memberId"),
		service.MemberPatch{Name: req.Name, Icon: req.Icon})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleRemoveMember handles DELETE /admin/groups/{id}/members/{memberId}.
func (h *AdminHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("memberId")); err != nil {
		writeServiceError(w, "api.remove_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddCriterion handles POST /admin/events/{id}/criteria.
func (h *AdminHandler) HandleAddCriterion(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_criterion"
	var req criterionRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	c, err := h.deps.AddCriterion(r.Context(), r.PathValue("id"), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleDeleteCriterion handles DELETE /admin/criteria/{id}.
func (h *AdminHandler) HandleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteCriterion(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_criterion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangePassword handles PUT /admin/password.
func (h *AdminHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	const op = "api.change_password"
	var req passwordRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		h.badRequest(w, op, err)
		return
	}
	if err := h.deps.ChangePassword(r.Context(), req.Current, req.Next, req.Confirm); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleReset handles POST /admin/reset.
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Reset(r.Context()); err != nil {
		writeServiceError(w, "api.reset", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset"})
}
