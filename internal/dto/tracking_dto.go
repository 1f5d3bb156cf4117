package dto

import (
	"canvasthink-be/internal/model"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/emotion"
	"canvasthink-be/pkg/tracking"
)

type StartSessionRequest struct {
	// VisitorToken is the visitor_token of an earlier session. Without a
	// valid one the session gets a new visitor.
	VisitorToken string   `json:"visitor_token"`
	Path         string   `json:"path" validate:"required,startswith=/"`
	Referrer     string   `json:"referrer"`
	UserAgent    string   `json:"user_agent"`
	Capabilities []string `json:"capabilities" validate:"omitempty,dive,oneof=history intersection_observer"`
}

type StartSessionResponse struct {
	SessionID    string `json:"session_id"`
	VisitorID    string `json:"visitor_id"`
	Token        string `json:"token"`
	VisitorToken string `json:"visitor_token"`
}

type EventBatchRequest struct {
	Events []browser.Event `json:"events" validate:"required,min=1,max=500,dive"`
}

type EventBatchResponse struct {
	Accepted int `json:"accepted"`
	Handled  int `json:"handled"`
}

type PageViewRequest struct {
	Path string `json:"path" validate:"required,startswith=/"`
}

type SetEmotionRequest struct {
	State      string  `json:"state" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type EmotionResponse struct {
	emotion.Insights
	Forecast *tracking.Forecast `json:"forecast,omitempty"`
}

type SummaryResponse struct {
	behavior.Summary
	VisitorID        string           `json:"visitorId"`
	EmotionalJourney []emotion.Sample `json:"emotionalJourney"`
}

type ArchiveQuery struct {
	Kind string `query:"kind"`
	// Since is a unix millisecond timestamp; zero means from the start.
	Since int64 `query:"since" validate:"gte=0"`
	Limit int   `query:"limit" validate:"gte=0,lte=500"`
}

type ArchiveResponse struct {
	SessionID    string                    `json:"session_id"`
	Interactions []model.InteractionRecord `json:"interactions"`
	Samples      []model.EmotionalSample   `json:"samples"`
}
