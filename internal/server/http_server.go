package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matcha-engine/internal/config"
)

// StartHTTPServer boots the HTTP listener and registers all provided
// route sets. Blocks until the listener fails.
func StartHTTPServer(cfg *config.Config, registrars ...Registrar) error {
	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	for _, r := range registrars {
		r.Register(router)
	}

	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return router.Run(addr)
}
