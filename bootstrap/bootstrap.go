package bootstrap

import (
	"go.uber.org/dig"

	"lsmkv/internal/application/service"
	"lsmkv/internal/domain"
	"lsmkv/internal/platform/config"
	"lsmkv/internal/platform/repository"
	"lsmkv/internal/platform/repository/lsmtree"
	"lsmkv/internal/platform/server"
	"lsmkv/internal/platform/server/handler/dbentry"
	"lsmkv/internal/platform/server/handler/stats"
)

// Run wires the engine, repository, services, and HTTP demo server via
// dig and starts serving.
func Run() error {
	container := dig.New()

	constructors := []interface{}{
		config.LoadConfig,
		engineFromConfig,
		repositoryFromEngine,
		service.NewSaveEntryService,
		service.NewDeleteEntryService,
		service.NewGetEntryService,
		service.NewRangeQueryService,
		service.NewStatsService,
		dbentry.NewDbEntryHandler,
		stats.NewStatsHandler,
		serverFromConfig,
	}
	for _, ctor := range constructors {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	return container.Invoke(func(s server.Server) error {
		return s.Run()
	})
}

func engineFromConfig(cfg config.Config) (*lsmtree.Engine, error) {
	return lsmtree.Open(cfg.DataDir, cfg.Engine)
}

func repositoryFromEngine(engine *lsmtree.Engine) domain.DbEntryRepository {
	return repository.NewLSMTreeRepository(engine)
}

func serverFromConfig(cfg config.Config, entryHandler *dbentry.DbEntryHandler, statsHandler *stats.StatsHandler) server.Server {
	return server.NewServer(cfg.ServerPort, entryHandler, statsHandler)
}
