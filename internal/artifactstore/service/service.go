package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/rebateplan/internal/artifactstore/domain"
)

// ServiceParam is the service dependency.
type ServiceParam struct {
	fx.In
	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	GenID *snowflake.Node
}

type artifactService struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

// NewService creates artifact store service.
func NewService(p ServiceParam) domain.Service {
	return &artifactService{
		db:    p.DB,
		log:   p.Log.Named("artifactstore.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *artifactService) Fetch(ctx context.Context, namespace string, keys []string) ([]domain.Record, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, domain.ErrInvalidNamespace
	}
	if len(keys) == 0 {
		return []domain.Record{}, nil
	}

	artifacts, err := s.repo.List(ctx, s.db, namespace, keys)
	if err != nil {
		s.log.Error("failed to list artifacts", zap.String("namespace", namespace), zap.Error(err))
		return nil, err
	}

	records := make([]domain.Record, 0, len(artifacts))
	for _, a := range artifacts {
		records = append(records, domain.Record{
			Key:     a.Key,
			Value:   a.Value,
			Version: a.Version,
		})
	}
	return records, nil
}

func (s *artifactService) Write(ctx context.Context, namespace string, requests []domain.WriteRequest) ([]domain.Record, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, domain.ErrInvalidNamespace
	}
	if len(requests) == 0 {
		return []domain.Record{}, nil
	}
	for _, req := range requests {
		if strings.TrimSpace(req.Key) == "" {
			return nil, domain.ErrInvalidKey
		}
	}

	records := make([]domain.Record, 0, len(requests))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range requests {
			record, err := s.writeOne(ctx, tx, namespace, req)
			if err != nil {
				return err
			}
			records = append(records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *artifactService) writeOne(ctx context.Context, tx *gorm.DB, namespace string, req domain.WriteRequest) (*domain.Record, error) {
	existing, err := s.repo.Get(ctx, tx, namespace, req.Key)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if req.Version > 0 {
			s.log.Warn("stale write for missing artifact",
				zap.String("namespace", namespace),
				zap.String("key", req.Key),
				zap.Int64("version", req.Version),
			)
			return nil, domain.ErrVersionConflict
		}
		artifact := &domain.Artifact{
			ID:        s.genID.Generate(),
			Namespace: namespace,
			Key:       req.Key,
			Value:     req.Value,
			Version:   1,
		}
		if err := s.repo.Insert(ctx, tx, artifact); err != nil {
			return nil, err
		}
		return &domain.Record{Key: artifact.Key, Value: artifact.Value, Version: artifact.Version}, nil
	}

	next := &domain.Artifact{
		Namespace: namespace,
		Key:       req.Key,
		Value:     req.Value,
		Version:   req.Version + 1,
	}
	affected, err := s.repo.UpdateVersioned(ctx, tx, next, req.Version)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		s.log.Warn("artifact version conflict",
			zap.String("namespace", namespace),
			zap.String("key", req.Key),
			zap.Int64("expected_version", req.Version),
			zap.Int64("stored_version", existing.Version),
		)
		return nil, domain.ErrVersionConflict
	}
	return &domain.Record{Key: next.Key, Value: next.Value, Version: next.Version}, nil
}
