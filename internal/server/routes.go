package server

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-signpdf/docs"
	"go-signpdf/internal/storage"
)

// Only allow requests from localhost to /swagger/*
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	h := s.APIHandler()
	r.Get(storage.FilesPrefix+"*", h.ServeFile)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/pdf/upload", h.UploadPDF)
		api.Get("/pdf/preview", h.PreviewPDF)
		api.Post("/register", h.Register)
		api.Post("/login", h.Login)
		api.Get("/logout", h.Logout)
		api.Post("/password/forgot", h.ForgotPassword)
		api.Put("/password/reset/{token}", h.ResetPassword)

		api.Group(func(priv chi.Router) {
			priv.Use(s.Auth.Middleware)
			priv.Post("/pdf/sign/{id}", h.SignPDF)
			priv.Delete("/pdf/delete/{documentId}", h.DeletePDF)
			priv.Post("/pdf/email", h.EmailPDF)
			priv.Get("/pdf/list", h.ListSignedPDFs)
			priv.Get("/me", h.Me)
			priv.Put("/password/update", h.UpdatePassword)
			priv.Put("/me/update", h.UpdateProfile)
		})
	})

	return r
}
