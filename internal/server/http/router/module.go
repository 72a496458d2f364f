package router

import "go.uber.org/fx"

// Module provides the operator API *gin.Engine.
var Module = fx.Module("router", fx.Provide(Setup))
