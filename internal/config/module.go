package config

import "go.uber.org/fx"

// Module loads *Config once from flags and the environment.
var Module = fx.Module("config", fx.Provide(Load))
