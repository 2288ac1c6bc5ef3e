package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/betbot/transferdesk/internal/metrics"
	"github.com/betbot/transferdesk/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var serverLog = logrus.WithField("module", "server")

// Session is the part of *session.Manager the API exposes.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	RequestAccess(ctx context.Context, mode session.AccessMode) error
	RefreshHistory(ctx context.Context) error
	UpdateDraftField(field, value string) error
	SubmitTransfer(ctx context.Context) error
}

type Config struct {
	// SubmitTimeout bounds a submission started by the API, 0 = no limit.
	SubmitTimeout time.Duration
	// PingInterval for the snapshot stream.
	PingInterval time.Duration
}

type Server struct {
	cfg     Config
	session Session

	bgCtx    context.Context
	bgCancel func()
	bgWG     sync.WaitGroup
}

func New(cfg Config, sess Session) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{cfg: cfg, session: sess, bgCtx: ctx, bgCancel: cancel}
}

// Close cancels background submissions and open streams and waits for them.
func (s *Server) Close() error {
	s.bgCancel()
	s.bgWG.Wait()
	return nil
}

func (s *Server) Router() (http.Handler, error) {
	schema, err := s.newSchema()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	r.GET("/debug/vars", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	sess := api.Group("/session")
	sess.GET("", s.wrap(s.handleSnapshot))
	sess.POST("/connect", s.wrap(s.handleConnect))
	sess.PUT("/draft", s.wrap(s.handleDraftUpdate))
	sess.POST("/submit", s.wrap(s.handleSubmit))
	sess.GET("/stream", s.wrap(s.handleStream))

	transfers := api.Group("/transfers")
	transfers.GET("", s.wrap(s.handleTransfersList))
	transfers.POST("/refresh", s.wrap(s.handleTransfersRefresh))

	api.POST("/graphql", s.wrap(s.handleGraphQL(schema)))

	return r, nil
}

// wrap adapts net/http handlers to gin.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c.Writer, c.Request)
	}
}

// goBackground runs fn on the server's lifetime context.
func (s *Server) goBackground(fn func(ctx context.Context)) {
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		fn(s.bgCtx)
	}()
}
