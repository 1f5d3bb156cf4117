package repository

import (
	"context"

	"canvasthink-be/internal/model"
	"canvasthink-be/internal/repository/specification"
)

type ArchiveRepository interface {
	CreateInteraction(ctx context.Context, record *model.InteractionRecord) error
	CreateSample(ctx context.Context, sample *model.EmotionalSample) error
	CreateAdaptation(ctx context.Context, log *model.AdaptationLog) error

	FindInteractions(ctx context.Context, specs ...specification.Specification) ([]model.InteractionRecord, error)
	FindSamples(ctx context.Context, specs ...specification.Specification) ([]model.EmotionalSample, error)
}
