package server

import "github.com/gin-gonic/gin"

// Registrar is a common interface for everything that attaches routes to
// the HTTP server.
type Registrar interface {
	Register(r *gin.Engine)
}
