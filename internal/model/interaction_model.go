package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InteractionRecord is an archived behavioral interaction.
type InteractionRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID     string         `gorm:"type:varchar(64);not null;index:idx_interactions_session_time,priority:1" json:"session_id"`
	Kind          string         `gorm:"type:varchar(32);not null;index" json:"kind"`
	Path          string         `gorm:"type:varchar(512)" json:"path,omitempty"`
	Data          datatypes.JSON `gorm:"type:jsonb" json:"data"`
	SessionTimeMs int64          `gorm:"not null" json:"session_time_ms"`
	OccurredAt    time.Time      `gorm:"not null;index:idx_interactions_session_time,priority:2" json:"occurred_at"`
	CreatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InteractionRecord) TableName() string {
	return "interaction_records"
}

// EmotionalSample is an archived classifier sample.
type EmotionalSample struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID     string    `gorm:"type:varchar(64);not null;index:idx_samples_session_time,priority:1" json:"session_id"`
	State         string    `gorm:"type:varchar(20);not null;index" json:"state"`
	PreviousState string    `gorm:"type:varchar(20)" json:"previous_state,omitempty"`
	Confidence    float64   `gorm:"not null" json:"confidence"`
	Path          string    `gorm:"type:varchar(512)" json:"path,omitempty"`
	OccurredAt    time.Time `gorm:"not null;index:idx_samples_session_time,priority:2" json:"occurred_at"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (EmotionalSample) TableName() string {
	return "emotional_samples"
}

// AdaptationLog records every adaptation pushed to a session.
type AdaptationLog struct {
	ID         uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID  string                      `gorm:"type:varchar(64);not null;index" json:"session_id"`
	State      string                      `gorm:"type:varchar(20);not null" json:"state"`
	Classes    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"classes"`
	Confidence float64                     `gorm:"not null" json:"confidence"`
	OccurredAt time.Time                   `gorm:"not null" json:"occurred_at"`
}

func (AdaptationLog) TableName() string {
	return "adaptation_logs"
}
