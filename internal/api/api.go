// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/jmcalloway/claimward/internal/config"
	"github.com/jmcalloway/claimward/internal/infrastructure"
	"github.com/jmcalloway/claimward/pkg/middleware"
	"github.com/jmcalloway/claimward/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
