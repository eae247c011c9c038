// Package api provides the Resilix HTTP surface: the Prometheus/Alertmanager
// webhook intake, incident list/detail views, the human approve-merge
// action, and a health endpoint. Grounded on
// original_source/src/resilix/api/{webhooks,incidents,health}.py, with the
// server/route-registration shape adapted from the teacher's
// cmd/tarsy/main.go and pkg/api/server.go (gin instead of echo/v5 — the
// teacher's go.mod declares gin as the real HTTP dependency even though its
// retrieved pkg/api snapshot imports echo/v5).
package api

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/resilix/orchestrator/pkg/config"
	"github.com/resilix/orchestrator/pkg/database"
	"github.com/resilix/orchestrator/pkg/notify"
	"github.com/resilix/orchestrator/pkg/orchestrator"
	"github.com/resilix/orchestrator/pkg/providers/code"
	"github.com/resilix/orchestrator/pkg/providers/ticket"
	"github.com/resilix/orchestrator/pkg/session"
)

// Server is the Resilix HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg   *config.Config
	store session.Store
	pool  *orchestrator.Pool
	db    *sql.DB // nil when running on MemoryStore

	ticketProvider     ticket.Provider
	ticketProviderName string
	codeProvider       code.Provider
	codeProviderName   string

	notifier *notify.Service // nil-safe; never nil-checked by callers
}

// NewServer wires a Server from its required collaborators and registers
// routes. All arguments are required except db and notifier, which may be
// nil (no relational store / no Slack notifications configured).
func NewServer(
	cfg *config.Config,
	store session.Store,
	pool *orchestrator.Pool,
	db *sql.DB,
	ticketProvider ticket.Provider,
	ticketProviderName string,
	codeProvider code.Provider,
	codeProviderName string,
	notifier *notify.Service,
) *Server {
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if len(cfg.CORSAllowOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	engine.Use(bodyLimitMiddleware(cfg.MaxRequestBytes))

	s := &Server{
		engine:             engine,
		cfg:                cfg,
		store:              store,
		pool:               pool,
		db:                 db,
		ticketProvider:     ticketProvider,
		ticketProviderName: ticketProviderName,
		codeProvider:       codeProvider,
		codeProviderName:   codeProviderName,
		notifier:           notifier,
	}
	s.setupRoutes()
	return s
}

// bodyLimitMiddleware caps request body size, matching the teacher's
// echo middleware.BodyLimit posture (adapted to gin's http.MaxBytesReader).
func bodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.POST("/webhook/prometheus", s.webhookHandler)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/incidents", s.listIncidentsHandler)
	v1.GET("/incidents/:id", s.getIncidentHandler)
	v1.POST("/incidents/:id/approve-merge", s.approveMergeHandler)
}

// Start starts the HTTP server on addr. It blocks the calling goroutine
// (ListenAndServe) until the server shuts down or fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Engine exposes the underlying gin engine, for tests that drive requests
// via httptest without a listening socket.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) dbHealth(ctx context.Context) dbHealthView {
	if s.db == nil {
		return dbHealthView{Connected: true}
	}
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status, err := database.Health(reqCtx, s.db)
	if err != nil {
		return dbHealthView{Connected: false, Error: err.Error()}
	}
	return dbHealthView{Connected: status.Status == "healthy"}
}
