// Package config loads the YAML configuration of the data loader and provides it through Fx.
package config

import (
	"go.uber.org/fx"
)

// Module provides *Config built from the supplied config file path.
var Module = fx.Module("config",
	fx.Provide(LoadConfig),
)
