package field

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CatalogHolder serves the current catalog and swaps it atomically when the
// config file changes on disk.
type CatalogHolder struct {
	current atomic.Value // holds Catalog
	log     *zap.Logger
}

// NewCatalogHolder loads rebateplan.yml if present, falling back to the
// built-in catalog, and watches the file for changes.
func NewCatalogHolder(log *zap.Logger) (*CatalogHolder, error) {
	h := &CatalogHolder{log: log.Named("field.catalog")}

	v := viper.New()
	v.SetConfigName("rebateplan")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/rebateplan/config") // Volume-mounted config
	v.AddConfigPath("/etc/rebateplan")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("REBATEPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		h.current.Store(DefaultCatalog())
		return h, nil
	}

	catalog, err := unmarshalCatalog(v)
	if err != nil {
		return nil, err
	}
	h.current.Store(catalog)

	v.OnConfigChange(func(e fsnotify.Event) {
		reloaded, err := unmarshalCatalog(v)
		if err != nil {
			h.log.Warn("catalog reload failed, keeping previous", zap.String("file", e.Name), zap.Error(err))
			return
		}
		h.current.Store(reloaded)
		h.log.Info("catalog reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return h, nil
}

// Current returns the active catalog.
func (h *CatalogHolder) Current() Catalog {
	return h.current.Load().(Catalog)
}

func unmarshalCatalog(v *viper.Viper) (Catalog, error) {
	catalog := DefaultCatalog()

	// Only limits are file-tunable; field definitions are part of the
	// persisted-value contract and stay compiled in.
	limits := DefaultLimits()
	if err := v.UnmarshalKey("catalog.limits", &limits); err != nil {
		return Catalog{}, err
	}
	if limits.MaxRatedSKUs <= 0 {
		limits.MaxRatedSKUs = DefaultLimits().MaxRatedSKUs
	}
	if limits.SaveDebounceMs <= 0 {
		limits.SaveDebounceMs = DefaultLimits().SaveDebounceMs
	}
	if limits.FetchChunkSize <= 0 {
		limits.FetchChunkSize = DefaultLimits().FetchChunkSize
	}
	if limits.SavedStateResetMs <= 0 {
		limits.SavedStateResetMs = DefaultLimits().SavedStateResetMs
	}
	catalog.Limits = limits
	return catalog, nil
}
