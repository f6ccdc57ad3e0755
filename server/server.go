package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/confidant/internal/profile"
	"github.com/hrygo/confidant/server/ai"
	"github.com/hrygo/confidant/server/internal/observability"
	"github.com/hrygo/confidant/server/middleware"
	apiv1 "github.com/hrygo/confidant/server/router/api/v1"
	"github.com/hrygo/confidant/server/service/chat"
	"github.com/hrygo/confidant/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer  *echo.Echo
	metrics     *observability.Metrics
	summarizer  *chat.Summarizer
	sendLimiter *middleware.RateLimiter

	background *errgroup.Group
	cancel     context.CancelFunc
}

// HealthResponse is served on /health.
type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	persona, err := chat.LoadPersona(profile.PersonaFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load persona")
	}
	if !profile.IsAIConfigured() {
		slog.Warn("completion provider API key is not configured; chat replies will fail")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	provider := ai.NewProvider(&ai.Config{
		BaseURL: profile.AIBaseURL,
		APIKey:  profile.AIAPIKey,
		Model:   profile.AIModel,
		Timeout: profile.CompletionTimeout,
	})

	s := &Server{
		Profile: profile,
		Store:   store,
		metrics: metrics,
		summarizer: chat.NewSummarizer(store, provider, metrics, chat.SummarizerConfig{
			Workers: profile.SummaryWorkers,
			Timeout: profile.CompletionTimeout,
		}),
	}
	if profile.RateLimit > 0 {
		s.sendLimiter = middleware.NewRateLimiter(profile.RateLimit, profile.RateBurst)
	}

	chatService := chat.NewService(store, provider, s.summarizer, persona, metrics, chat.Config{
		Model:             profile.AIModel,
		HistoryWindow:     profile.HistoryWindow,
		SummaryInterval:   profile.SummaryInterval,
		CompletionTimeout: profile.CompletionTimeout,
	})
	apiV1Service := apiv1.NewAPIV1Service(profile, chatService, chat.NewPreferencesService(store), s.sendLimiter)

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.CORS())
	echoServer.Use(echomw.BodyLimit("1M"))

	echoServer.GET("/health", s.health)
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	apiV1Service.RegisterRoutes(echoServer)
	s.echoServer = echoServer

	return s, nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    s.metrics.Uptime().Seconds(),
	})
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start starts the background workers and serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.background, ctx = errgroup.WithContext(ctx)
	s.summarizer.Start(ctx)
	s.background.Go(func() error {
		s.drainSummaryErrors(ctx)
		return nil
	})
	if s.sendLimiter != nil {
		s.background.Go(func() error {
			s.sendLimiter.RunPruner(ctx, 10*time.Minute)
			return nil
		})
	}

	s.echoServer.Listener = listener
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()

	slog.Info("confidant server started",
		slog.String("address", listener.Addr().String()),
		slog.String("mode", s.Profile.Mode),
		slog.String("driver", s.Profile.Driver),
		slog.String("model", s.Profile.AIModel))
	return nil
}

// shutdownTimeout outlasts a send turn, which keeps running after its client
// is gone, so the store is not closed under its final writes.
func (s *Server) shutdownTimeout() time.Duration {
	return max(10*time.Second, s.Profile.CompletionTimeout+5*time.Second)
}

// drainSummaryErrors keeps the summarizer error channel empty.
func (s *Server) drainSummaryErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-s.summarizer.Errors():
			slog.Debug("summary error drained", slog.String("error", err.Error()))
		}
	}
}

// Shutdown stops accepting requests, waits for in-flight ones, stops the
// workers and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout())
	defer cancel()

	slog.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if s.cancel != nil {
		s.cancel()
	}
	if err := s.summarizer.Stop(); err != nil {
		slog.Error("failed to stop summarizer", slog.String("error", err.Error()))
	}
	if s.background != nil {
		_ = s.background.Wait()
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("server stopped properly")
}
