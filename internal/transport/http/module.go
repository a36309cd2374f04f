package http

import (
	"go.uber.org/fx"

	analyticstransport "github.com/campus-canteen/canteen/internal/transport/http/analytics"
	menutransport "github.com/campus-canteen/canteen/internal/transport/http/menu"
	ordertransport "github.com/campus-canteen/canteen/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	menutransport.Module,
	analyticstransport.Module,
)
