package artifactstore

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/rebateplan/internal/artifactstore/domain"
	"github.com/smallbiznis/rebateplan/internal/artifactstore/repository"
	"github.com/smallbiznis/rebateplan/internal/artifactstore/service"
)

// Module wires the artifact store.
var Module = fx.Module("artifactstore",
	fx.Provide(
		repository.NewArtifactRepository,
		service.NewService,
	),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Artifact{})
}
