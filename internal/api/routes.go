package api

import (
	"net/http"

	"github.com/jmcalloway/claimward/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(mux, domain.Claims.Handler().Routes())
	routes.Register(mux, domain.Policies.Handler().Routes())
}
