package field

import "go.uber.org/fx"

// Module provides the hot-reloading field catalog.
var Module = fx.Module("field",
	fx.Provide(NewCatalogHolder),
)
