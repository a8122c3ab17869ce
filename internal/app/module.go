package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/packledger/internal/app/api/server"
	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/assignment"
	"github.com/fatflowers/packledger/internal/app/service/attemptlog"
	"github.com/fatflowers/packledger/internal/app/service/checkin"
	"github.com/fatflowers/packledger/internal/app/service/housekeeping"
	"github.com/fatflowers/packledger/internal/app/service/statistics"
	"github.com/fatflowers/packledger/internal/platform/catalog"
	"github.com/fatflowers/packledger/internal/platform/db"
	"github.com/fatflowers/packledger/internal/platform/directory"
	"github.com/fatflowers/packledger/pkg/config"
	"github.com/fatflowers/packledger/pkg/logger"
	"github.com/fatflowers/packledger/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,
	db.Module,
	repository.Module,
	catalog.Module,
	directory.Module,
	attemptlog.Module,
	assignment.Module,
	checkin.Module,
	housekeeping.Module,
	statistics.Module,
	server.Module,
)
