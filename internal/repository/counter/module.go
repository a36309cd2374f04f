package counter

import "go.uber.org/fx"

// Module provides the counter repository to Fx.
var Module = fx.Provide(NewRepository)
