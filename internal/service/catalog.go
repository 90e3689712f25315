package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/garden-planner/internal/catalog"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// CatalogService serves the read-only plant catalog and imports new ones.
type CatalogService struct {
	repo   repository.CatalogRepository
	logger *slog.Logger
}

func NewCatalogService(repo repository.CatalogRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) List(ctx context.Context) ([]model.CatalogPlant, error) {
	plants, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	if plants == nil {
		plants = []model.CatalogPlant{}
	}
	return plants, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*model.CatalogPlant, error) {
	return s.repo.GetByID(ctx, id)
}

// Import upserts plants by id. Rows with a spacing the layout cannot model
// exactly are stored anyway and logged; the warnings are also returned.
func (s *CatalogService) Import(ctx context.Context, plants []model.CatalogPlant) ([]catalog.Warning, error) {
	warnings := catalog.Check(plants)
	for _, w := range warnings {
		s.logger.Warn("catalog check", slog.String("warning", w.String()))
	}
	if err := s.repo.Upsert(ctx, plants); err != nil {
		return nil, fmt.Errorf("importing catalog: %w", err)
	}
	s.logger.Info("catalog imported", slog.Int("plants", len(plants)), slog.Int("warnings", len(warnings)))
	return warnings, nil
}
