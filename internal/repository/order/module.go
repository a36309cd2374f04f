package order

import "go.uber.org/fx"

// Module exposes the order repository to the Fx graph.
var Module = fx.Provide(NewRepository)
