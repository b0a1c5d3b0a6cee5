// Package server wires the go-signpdf backends together and builds the HTTP
// server.
//
// Open constructs every backend selected by the configuration (database pool,
// redis client, object store, mailer, signing service) and returns the Server
// together with a teardown function releasing them.
//
// Usage:
//
//	srv, teardown, err := server.Open(ctx, cfg)
//	defer teardown()
//	srv.HTTPServer().ListenAndServe()
//
// See internal/server/routes.go for route registration.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go-signpdf/internal/auth"
	"go-signpdf/internal/config"
	"go-signpdf/internal/database"
	"go-signpdf/internal/handlers"
	"go-signpdf/internal/kv"
	"go-signpdf/internal/mail"
	"go-signpdf/internal/records"
	"go-signpdf/internal/signing"
	"go-signpdf/internal/storage"
	"go-signpdf/internal/users"
)

type Server struct {
	Config   *config.Config
	Files    *storage.FileStore
	Records  records.Store
	Users    users.Store
	KV       kv.Store
	Mailer   mail.Sender
	Signer   *signing.Service
	Accounts *users.Accounts
	Auth     *auth.Authenticator
}

// Open builds a Server for cfg. The returned teardown closes every backend
// that was opened and must be called once the HTTP server has stopped.
func Open(ctx context.Context, cfg *config.Config) (*Server, func(), error) {
	var closers []func() error
	teardown := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Printf("[WARN] teardown: %v", err)
			}
		}
	}
	fail := func(err error) (*Server, func(), error) {
		teardown()
		return nil, func() {}, err
	}

	s := &Server{Config: cfg}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database.URI)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { pool.Close(); return nil })
		if err := database.MigratePostgres(ctx, pool); err != nil {
			return fail(err)
		}
		s.Records = records.NewPostgresStore(pool)
		s.Users = users.NewPostgresStore(pool)
	case config.DriverMySQL:
		db, err := database.OpenMySQL(ctx, cfg.Database.URI)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, db.Close)
		if err := database.MigrateMySQL(ctx, db); err != nil {
			return fail(err)
		}
		s.Records = records.NewMySQLStore(db)
		s.Users = users.NewMySQLStore(db)
	case config.DriverMemory:
		log.Println("[WARN] using in-memory stores, data is lost on restart")
		s.Records = records.NewMemoryStore()
		s.Users = users.NewMemoryStore()
	default:
		return fail(fmt.Errorf("unknown database driver %q", cfg.Database.Driver))
	}

	if cfg.Redis.Addr != "" {
		rs, err := kv.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, rs.Close)
		s.KV = rs
	} else {
		s.KV = kv.NewMemoryStore()
	}

	files, err := storage.NewFileStore(cfg.StorageDir, cfg.PublicBaseURL)
	if err != nil {
		return fail(err)
	}
	s.Files = files

	if cfg.SMTP.Host != "" {
		s.Mailer = mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		s.Mailer = &mail.LogSender{}
	}

	s.Signer = signing.NewService(s.Files, s.Records)
	s.Accounts = users.NewAccounts(s.Users, s.KV, cfg.Auth.ResetExpire)
	s.Auth = auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTExpire, s.KV, s.Users)
	return s, teardown, nil
}

func (s *Server) APIHandler() *handlers.APIHandler {
	h := handlers.NewAPIHandler(s.Signer, s.Files, s.Accounts, s.Auth, s.Mailer)
	h.PublicBaseURL = s.Config.PublicBaseURL
	h.MaxUploadBytes = s.Config.MaxUploadBytes
	h.CookieExpire = time.Duration(s.Config.Auth.CookieExpire) * 24 * time.Hour
	h.ResetExpire = s.Config.Auth.ResetExpire
	return h
}

func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.Config.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
}
