package main

import (
	"context"
	"time"

	"github.com/jmcalloway/claimward/internal/config"
	"github.com/jmcalloway/claimward/internal/infrastructure"
)

type Server struct {
	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
	)

	return &Server{
		cfg:     cfg,
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
		s.recover()
	}()

	return nil
}

// recover surfaces claims left in a non-terminal stage by a previous run.
// No stage is re-executed; each claim resumes from its latest checkpoint
// when an operator or API caller picks it back up.
func (s *Server) recover() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.cfg.CatalogSeed != "" {
		if err := s.modules.Domain.SeedCatalog(ctx, s.cfg.CatalogSeed); err != nil {
			s.infra.Logger.Error("catalog seed failed", "error", err)
		}
	}

	ids, err := s.modules.Domain.Claims.ListResumable(ctx)
	if err != nil {
		s.infra.Logger.Error("resumable scan failed", "error", err)
		return
	}

	if len(ids) > 0 {
		s.infra.Logger.Info("resumable claims found", "count", len(ids))
		for _, id := range ids {
			s.infra.Logger.Info("claim awaiting resume", "claim_id", id)
		}
	}
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
