package order

import "go.uber.org/fx"

// Module exposes the order lifecycle service to the Fx graph.
var Module = fx.Provide(NewService)
