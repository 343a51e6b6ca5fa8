package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lsmkv/internal/platform/server/handler/dbentry"
	"lsmkv/internal/platform/server/handler/health"
	"lsmkv/internal/platform/server/handler/stats"
)

// Server is the HTTP demo surface wired in front of the engine.
type Server struct {
	httpAddr string
	router   *chi.Mux
}

func NewServer(port int, entryHandler *dbentry.DbEntryHandler, statsHandler *stats.StatsHandler) Server {
	srv := Server{
		router:   chi.NewRouter(),
		httpAddr: fmt.Sprintf(":%d", port),
	}
	srv.router.Use(middleware.Logger)
	srv.registerRoutes(entryHandler, statsHandler)
	return srv
}

func (s *Server) Run() error {
	log.Println("lsmkv demo server listening on", s.httpAddr)
	return http.ListenAndServe(s.httpAddr, s.router)
}

func (s *Server) registerRoutes(entryHandler *dbentry.DbEntryHandler, statsHandler *stats.StatsHandler) {
	s.router.Get("/health", health.CheckHandler)
	s.router.Get("/db/{key}", entryHandler.GetEntry)
	s.router.Put("/db/{key}", entryHandler.SaveEntry)
	s.router.Delete("/db/{key}", entryHandler.DeleteEntry)
	s.router.Get("/range", entryHandler.RangeScan)
	s.router.Get("/stats", statsHandler.GetStats)
}
