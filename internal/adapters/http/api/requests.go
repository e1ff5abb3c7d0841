package api

import (
	service "github.com/okian/avalia/internal/app"
	"github.com/okian/avalia/internal/domain/model"
)

type createEventRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	ResponseDeadline string `json:"responseDeadline" validate:"omitempty,datetime=2006-01-02"`
	Icon             string `json:"icon"`
	Description      string `json:"description" validate:"max=5000"`
}

func (r createEventRequest) input() service.EventInput {
	return service.EventInput{
		Name:             r.Name,
		Date:             r.Date,
		ResponseDeadline: r.ResponseDeadline,
		Icon:             r.Icon,
		Description:      r.Description,
	}
}

// updateEventRequest fields are optional. An empty responseDeadline resets
// it to the event date, so it is checked by the service rather than here.
type updateEventRequest struct {
	Name             *string `json:"name"`
	Date             *string `json:"date"`
	ResponseDeadline *string `json:"responseDeadline"`
	Icon             *string `json:"icon"`
	Description      *string `json:"description"`
}

func (r updateEventRequest) patch() service.EventPatch {
	return service.EventPatch{
		Name:             r.Name,
		Date:             r.Date,
		ResponseDeadline: r.ResponseDeadline,
		Icon:             r.Icon,
		Description:      r.Description,
	}
}

type nameIconRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Icon string `json:"icon"`
}

type patchNameIconRequest struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
}

type criterionRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type evaluationRequest struct {
	GroupID          string             `json:"groupId" validate:"required"`
	EvaluatorName    string             `json:"evaluatorName" validate:"required,max=200"`
	Scores           map[string]float64 `json:"scores" validate:"omitempty,dive,gte=0,lte=10"`
	IndividualScores map[string]float64 `json:"individualScores" validate:"omitempty,dive,gte=0,lte=10"`
	GroupComment     string             `json:"groupComment" validate:"max=5000"`
}

func (r evaluationRequest) input(eventID string) service.EvaluationInput {
	return service.EvaluationInput{
		EventID:          eventID,
		GroupID:          r.GroupID,
		EvaluatorName:    r.EvaluatorName,
		Scores:           r.Scores,
		IndividualScores: r.IndividualScores,
		GroupComment:     r.GroupComment,
	}
}

type evaluationResponse struct {
	Evaluation model.Evaluation `json:"evaluation"`
	Updated    bool             `json:"updated"`
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type passwordRequest struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required"`
	Confirm string `json:"confirm" validate:"required"`
}

type preferencesRequest struct {
	LastEvaluatorName string `json:"lastEvaluatorName" validate:"max=200"`
	Theme             string `json:"theme" validate:"omitempty,oneof=light dark"`
}
