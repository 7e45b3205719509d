package rebate

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/rebateplan/internal/rebate/service"
)

// Module wires the plan service.
var Module = fx.Module("rebate",
	fx.Provide(
		service.NewService,
	),
)
