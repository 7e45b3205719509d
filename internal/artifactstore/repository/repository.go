package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/rebateplan/internal/artifactstore/domain"
)

type artifactRepository struct{}

// NewArtifactRepository creates the gorm-backed artifact repository.
func NewArtifactRepository() domain.Repository {
	return &artifactRepository{}
}

func (r *artifactRepository) List(ctx context.Context, db *gorm.DB, namespace string, keys []string) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	q := db.WithContext(ctx).Where("namespace = ?", namespace)
	if len(keys) > 0 {
		q = q.Where("key IN ?", keys)
	}
	if err := q.Order("key asc").Find(&artifacts).Error; err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepository) Get(ctx context.Context, db *gorm.DB, namespace, key string) (*domain.Artifact, error) {
	var artifact domain.Artifact
	err := db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		First(&artifact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepository) Insert(ctx context.Context, db *gorm.DB, artifact *domain.Artifact) error {
	return db.WithContext(ctx).Create(artifact).Error
}

// UpdateVersioned bumps value and version only when the stored version still
// matches expectedVersion. Returns the number of rows touched.
func (r *artifactRepository) UpdateVersioned(ctx context.Context, db *gorm.DB, artifact *domain.Artifact, expectedVersion int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Artifact{}).
		Where("namespace = ? AND key = ? AND version = ?", artifact.Namespace, artifact.Key, expectedVersion).
		Updates(map[string]any{
			"value":   artifact.Value,
			"version": artifact.Version,
		})
	return res.RowsAffected, res.Error
}
