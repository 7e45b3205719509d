// Package domain defines the versioned key/value store that persists
// per-customer planning artifacts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Artifact is one stored record. A (namespace, key) pair holds an opaque
// encoded value and a version that advances on every successful write.
type Artifact struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	Namespace string            `gorm:"not null;uniqueIndex:ux_artifacts_namespace_key,priority:1"`
	Key       string            `gorm:"not null;uniqueIndex:ux_artifacts_namespace_key,priority:2"`
	Value     string            `gorm:"type:text;not null"`
	Version   int64             `gorm:"not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Artifact) TableName() string { return "artifacts" }

// Record is the wire shape of one artifact.
type Record struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Version int64  `json:"version"`
}

// WriteRequest is one optimistic write. Version 0 means the key is expected
// to be new; any other value must match the stored version exactly.
type WriteRequest struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Version int64  `json:"version"`
}

// Service is the store contract consumed by the planning engine.
type Service interface {
	// Fetch returns the stored records for the given keys; missing keys
	// are simply absent from the result.
	Fetch(ctx context.Context, namespace string, keys []string) ([]Record, error)

	// Write applies the batch atomically. A single stale version rejects
	// the whole batch.
	Write(ctx context.Context, namespace string, requests []WriteRequest) ([]Record, error)
}

// Repository is the persistence layer under the service.
type Repository interface {
	List(ctx context.Context, db *gorm.DB, namespace string, keys []string) ([]Artifact, error)
	Get(ctx context.Context, db *gorm.DB, namespace, key string) (*Artifact, error)
	Insert(ctx context.Context, db *gorm.DB, artifact *Artifact) error
	UpdateVersioned(ctx context.Context, db *gorm.DB, artifact *Artifact, expectedVersion int64) (int64, error)
}

var (
	ErrInvalidNamespace = errors.New("invalid_namespace")
	ErrInvalidKey       = errors.New("invalid_artifact_key")
	ErrVersionConflict  = errors.New("artifact_version_conflict")
)
