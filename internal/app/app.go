package app

import (
	"go.uber.org/fx"

	"github.com/campus-canteen/canteen/internal/config"
	"github.com/campus-canteen/canteen/internal/idgen"
	"github.com/campus-canteen/canteen/internal/logger"
	"github.com/campus-canteen/canteen/internal/mirror"
	"github.com/campus-canteen/canteen/internal/notifier"
	"github.com/campus-canteen/canteen/internal/observability"
	repositorycounter "github.com/campus-canteen/canteen/internal/repository/counter"
	repositorymenu "github.com/campus-canteen/canteen/internal/repository/menu"
	repositoryorder "github.com/campus-canteen/canteen/internal/repository/order"
	repositoryuser "github.com/campus-canteen/canteen/internal/repository/user"
	grpcserver "github.com/campus-canteen/canteen/internal/server/grpc"
	httpserver "github.com/campus-canteen/canteen/internal/server/http"
	serviceanalytics "github.com/campus-canteen/canteen/internal/service/analytics"
	servicemenu "github.com/campus-canteen/canteen/internal/service/menu"
	serviceorder "github.com/campus-canteen/canteen/internal/service/order"
	"github.com/campus-canteen/canteen/internal/storage"
	transporthttp "github.com/campus-canteen/canteen/internal/transport/http"
	"github.com/campus-canteen/canteen/internal/worker"
	workernotification "github.com/campus-canteen/canteen/internal/worker/notification"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	storage.Module,
	mirror.Module,
	notifier.Module,
	repositoryorder.Module,
	repositorycounter.Module,
	repositoryuser.Module,
	repositorymenu.Module,
	idgen.Module,
	serviceorder.Module,
	servicemenu.Module,
	serviceanalytics.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background notification dispatching.
var Worker = fx.Options(
	Core,
	worker.Module,
	workernotification.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
