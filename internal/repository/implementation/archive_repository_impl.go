package implementation

import (
	"context"

	"canvasthink-be/internal/model"
	"canvasthink-be/internal/repository"
	"canvasthink-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ArchiveRepositoryImpl struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) repository.ArchiveRepository {
	return &ArchiveRepositoryImpl{db: db}
}

func (r *ArchiveRepositoryImpl) CreateInteraction(ctx context.Context, record *model.InteractionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *ArchiveRepositoryImpl) CreateSample(ctx context.Context, sample *model.EmotionalSample) error {
	return r.db.WithContext(ctx).Create(sample).Error
}

func (r *ArchiveRepositoryImpl) CreateAdaptation(ctx context.Context, log *model.AdaptationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *ArchiveRepositoryImpl) FindInteractions(ctx context.Context, specs ...specification.Specification) ([]model.InteractionRecord, error) {
	var records []model.InteractionRecord
	err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&records).Error
	return records, err
}

func (r *ArchiveRepositoryImpl) FindSamples(ctx context.Context, specs ...specification.Specification) ([]model.EmotionalSample, error) {
	var samples []model.EmotionalSample
	err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&samples).Error
	return samples, err
}
