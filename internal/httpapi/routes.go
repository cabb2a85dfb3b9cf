package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/sketch-party-backend/internal/hub"
	"github.com/DoyleJ11/sketch-party-backend/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(h *hub.Hub, results store.Repository, ws http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/rooms", CreateRoom(h, logger))
	r.Get("/rooms/{code}", GetRoom(h))
	r.Get("/rooms/{code}/results", RoomResults(results, logger))
	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/ws", ws)
	return r
}
