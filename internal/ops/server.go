package ops

import (
	"context"
	"net/http"
	"os/exec"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Server exposes the bot's health over HTTP
type Server struct {
	db       *sqlx.DB
	peerTool string
	addr     string
	logger   *logrus.Logger
}

// NewServer creates a health server; peerTool is the binary the
// provisioner invokes
func NewServer(db *sqlx.DB, peerTool, addr string, logger *logrus.Logger) *Server {
	return &Server{
		db:       db,
		peerTool: peerTool,
		addr:     addr,
		logger:   logger,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok", "peer_tool": "ok"}

	if err := s.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if _, err := exec.LookPath(s.peerTool); err != nil {
		checks["peer_tool"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, checks)
}

// Start serves until the context is cancelled
func (s *Server) Start(ctx context.Context) {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("Health server listening on %s", s.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Errorf("Health server error: %v", err)
	}
}
