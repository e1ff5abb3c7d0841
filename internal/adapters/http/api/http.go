// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/avalia/internal/app"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/notice"
	"github.com/okian/avalia/internal/domain/types"
)

// maxBodyBytes bounds request bodies; icons may be embedded images.
const maxBodyBytes = 2 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Authenticator
	SyncStatusProvider
	StatsProvider

	// Reads
	ListEvents() types.EventList
	EventDetail(id string) (types.EventDetail, error)
	Ranking(eventID string) (types.Ranking, error)
	ListEvaluations(eventID, groupID, evaluator string) []model.Evaluation
	Preferences() types.Preferences
	Notices(afterID int64, limit int) []notice.Notice

	// Evaluator writes
	SubmitEvaluation(ctx context.Context, in service.EvaluationInput) (model.Evaluation, bool, error)
	SetPreferences(ctx context.Context, p types.Preferences) (types.Preferences, error)

	// Admin writes
	CreateEvent(ctx context.Context, in service.EventInput) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch service.EventPatch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	AddGroup(ctx context.Context, eventID, name, icon string) (model.Group, error)
	UpdateGroup(ctx context.Context, id string, patch service.GroupPatch) (model.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID, name, icon string) (model.Member, error)
	UpdateMember(ctx context.Context, groupID, memberID string, patch service.MemberPatch) (model.Member, error)
	RemoveMember(ctx context.Context, groupID, memberID string) error
	AddCriterion(ctx context.Context, eventID, name, description string) (model.Criterion, error)
	DeleteCriterion(ctx context.Context, id string) error
	ChangePassword(ctx context.Context, current, next, confirm string) error
	Reset(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps          Dependencies
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
	adminHandler  *AdminHandler
	syncHandler   *SyncHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &Server{
		deps:          deps,
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		eventsHandler: NewEventsHandler(deps, v),
		adminHandler:  NewAdminHandler(deps, v),
		syncHandler:   NewSyncHandler(deps, v),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.HandlerFunc { return AdminMiddleware(s.deps, h) }

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /sync", MetricsMiddleware(s.syncHandler.HandleStatus, "sync"))
	mux.HandleFunc("GET /notices", MetricsMiddleware(s.syncHandler.HandleNotices, "notices"))
	mux.HandleFunc("GET /preferences", MetricsMiddleware(s.syncHandler.HandleGetPreferences, "preferences"))
	mux.HandleFunc("PUT /preferences", MetricsMiddleware(s.syncHandler.HandlePutPreferences, "preferences"))

	mux.HandleFunc("GET /events", MetricsMiddleware(s.eventsHandler.HandleList, "events"))
	mux.HandleFunc("GET /events/{id}", MetricsMiddleware(s.eventsHandler.HandleGet, "event"))
	mux.HandleFunc("GET /events/{id}/evaluations", MetricsMiddleware(s.eventsHandler.HandleListEvaluations, "evaluations"))
	mux.HandleFunc("POST /events/{id}/evaluations", MetricsMiddleware(s.eventsHandler.HandleSubmitEvaluation, "evaluations"))

	mux.HandleFunc("POST /admin/login", MetricsMiddleware(s.adminHandler.HandleLogin, "admin_login"))
	mux.HandleFunc("POST /admin/events", MetricsMiddleware(admin(s.adminHandler.HandleCreateEvent), "admin_events"))
	mux.HandleFunc("PATCH /admin/events/{id}", MetricsMiddleware(admin(s.adminHandler.HandleUpdateEvent), "admin_event"))
	mux.HandleFunc("DELETE /admin/events/{id}", MetricsMiddleware(admin(s.adminHandler.HandleDeleteEvent), "admin_event"))
	mux.HandleFunc("GET /admin/events/{id}/ranking", MetricsMiddleware(admin(s.adminHandler.HandleRanking), "admin_ranking"))
	mux.HandleFunc("POST /admin/events/{id}/groups", MetricsMiddleware(admin(s.adminHandler.HandleAddGroup), "admin_groups"))
	mux.HandleFunc("PATCH /admin/groups/{id}", MetricsMiddleware(admin(s.adminHandler.HandleUpdateGroup), "admin_group"))
	mux.HandleFunc("DELETE /admin/groups/{id}", MetricsMiddleware(admin(s.adminHandler.HandleDeleteGroup), "admin_group"))
	mux.HandleFunc("POST /admin/groups/{id}/members", MetricsMiddleware(admin(s.adminHandler.HandleAddMember), "admin_members"))
	mux.HandleFunc("PATCH /admin/groups/{id}/members/{memberId}", MetricsMiddleware(admin(s.adminHandler.HandleUpdateMember), "admin_member"))
	mux.HandleFunc("DELETE /admin/groups/{id}/members/{memberId}", MetricsMiddleware(admin(s.adminHandler.HandleRemoveMember), "admin_member"))
	mux.HandleFunc("POST /admin/events/{id}/criteria", MetricsMiddleware(admin(s.adminHandler.HandleAddCriterion), "admin_criteria"))
	mux.HandleFunc("DELETE /admin/criteria/{id}", MetricsMiddleware(admin(s.adminHandler.HandleDeleteCriterion), "admin_criterion"))
	mux.HandleFunc("PUT /admin/password", MetricsMiddleware(admin(s.adminHandler.HandleChangePassword), "admin_password"))
	mux.HandleFunc("POST /admin/reset", MetricsMiddleware(admin(s.adminHandler.HandleReset), "admin_reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates a service error into a response. Internal
// errors never leak their message.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, fmt.Errorf("%s: %w", op, err))
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %s", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}
