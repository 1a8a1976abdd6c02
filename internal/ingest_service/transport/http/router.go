package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the ingestion API the way the mobile clients expect it.
func NewRouter(handler *IngestHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", handler.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/register-device", handler.HandleRegisterDevice)
		r.Post("/send-sms", handler.HandleSendSms)
		r.Post("/send-all-sms", handler.HandleSendAllSms)
	})

	return r
}
