package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows origins (local dev origins when empty) to call the API with a
// property scope header.
func CORS(origins ...string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", HeaderPropertyID, headerRequestID},
		ExposeHeaders:    []string{headerTraceID, headerRequestID},
		AllowCredentials: true,
	})
}
