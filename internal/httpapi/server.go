package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arawak/thankyou/internal/config"
	"github.com/arawak/thankyou/internal/media"
	"github.com/arawak/thankyou/internal/store"
	"github.com/arawak/thankyou/internal/studio"
	"github.com/arawak/thankyou/internal/swaggerui"
)

type Server struct {
	cfg      *config.Config
	sessions *studio.Manager
	index    store.Index
	media    *media.Manager
	apiKeys  *APIKeyStore
	logger   *slog.Logger
}

// Deps groups what the router needs beyond configuration.
type Deps struct {
	Sessions *studio.Manager
	Index    store.Index
	Media    *media.Manager
	APIKeys  *APIKeyStore
	Logger   *slog.Logger
}

var (
	openapiOnce sync.Once
	openapiData []byte
	openapiErr  error
)

func loadOpenAPI() ([]byte, error) {
	openapiOnce.Do(func() {
		path := filepath.Clean("openapi.yaml")
		openapiData, openapiErr = os.ReadFile(path)
	})
	return openapiData, openapiErr
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	s := &Server{
		cfg:      cfg,
		sessions: deps.Sessions,
		index:    deps.Index,
		media:    deps.Media,
		apiKeys:  deps.APIKeys,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(loggingMiddleware(logger))

	if len(cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{apiKeyHeader, "Content-Type", "Accept"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
		})
		r.Use(c.Handler)
	}

	r.Get("/healthz", s.GetHealthz)
	r.Get("/readyz", s.GetReadyz)
	r.Get(cfg.OpenAPIPath, s.serveOpenAPI)
	r.Mount(cfg.SwaggerUIPath, swaggerui.Handler(cfg.OpenAPIPath))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware())
		r.Get("/options", s.GetOptions)

		r.With(s.requirePermissions(PermCanSearch)).Post("/sessions", s.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.With(s.requirePermissions(PermCanSearch)).Delete("/", s.DeleteSession)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermissions(PermCanSearch))
				r.Get("/images", s.GetImages)
				r.Put("/query", s.PutQuery)
				r.Post("/clear", s.ClearSearch)
				r.Post("/page", s.ChangePage)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermissions(PermCanDesign))
				r.Get("/design", s.GetDesign)
				r.Put("/design", s.PutDesign)
				r.Get("/card.png", s.GetCardPreview)
			})

			r.With(s.requirePermissions(PermCanExport)).Get("/card/export", s.ExportCard)
		})
	})

	return r
}

func (s *Server) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := loadOpenAPI()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "unable to load openapi.yaml", map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) GetHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{Status: Ok})
}

func (s *Server) GetReadyz(w http.ResponseWriter, _ *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if s.index != nil {
		if err := s.index.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", map[string]any{"error": err.Error()})
			return
		}
	}
	if s.media != nil {
		if err := s.media.IsWritable(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_ready", "cache not writable", map[string]any{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, Health{Status: Ok})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	e := Error{Code: code, Message: message}
	if details != nil {
		e.Details = &details
	}
	writeJSON(w, status, e)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start).String(),
			)
		})
	}
}
