package gateway

import (
	"net/http"

	"github.com/rs/cors"
)

// Handler assembles the gateway's HTTP surface behind CORS middleware.
func Handler(manager *Manager, picks *PickRouter, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", manager.HandleSession)
	mux.HandleFunc("/picks", picks.HandleSubmit)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         86400,
	})
	return c.Handler(mux)
}
