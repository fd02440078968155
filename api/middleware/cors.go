package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",        // local dev
	"https://wedshare.app",         // production site
	"https://www.wedshare.app",     // www alias
	"https://wedshare.vercel.app",  // Vercel deployment URL
}

// CORS returns middleware that applies the API's allowed origin policy. The
// gallery is intentionally open to guests, so no credentialed headers are
// exposed.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Range", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
