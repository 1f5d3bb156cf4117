package specification

import (
	"time"

	"gorm.io/gorm"
)

// BySession filters archived rows of one tracking session.
type BySession struct {
	SessionID string
}

func (s BySession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByKind filters interactions by record kind. An empty kind matches all.
type ByKind struct {
	Kind string
}

func (s ByKind) Apply(db *gorm.DB) *gorm.DB {
	if s.Kind == "" {
		return db
	}
	return db.Where("kind = ?", s.Kind)
}

// OccurredAfter keeps rows strictly after At. A zero At matches all.
type OccurredAfter struct {
	At time.Time
}

func (s OccurredAfter) Apply(db *gorm.DB) *gorm.DB {
	if s.At.IsZero() {
		return db
	}
	return db.Where("occurred_at > ?", s.At)
}

// Chronological orders by occurrence, oldest first.
type Chronological struct{}

func (Chronological) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("occurred_at ASC")
}

// Limit caps the result size. Non-positive values leave it uncapped.
type Limit struct {
	N int
}

func (s Limit) Apply(db *gorm.DB) *gorm.DB {
	if s.N <= 0 {
		return db
	}
	return db.Limit(s.N)
}
