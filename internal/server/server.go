package server

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/errors"
	"github.com/victornm/battlebrains/internal/event"
	"github.com/victornm/battlebrains/internal/leaderboard"
	"github.com/victornm/battlebrains/internal/quiz"
	"github.com/victornm/battlebrains/internal/registry"
	"github.com/victornm/battlebrains/internal/relay"
	"github.com/victornm/battlebrains/internal/telemetry"
)

const leaderboardPageSize = 10

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	// Postgres.Questions is optional; when Addr is empty the built-in
	// question bank is used instead.
	Postgres struct {
		Questions struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Game struct {
		RoundSeconds int
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
		}

		postgres struct {
			questions *pgxpool.Pool
		}
	}

	service struct {
		leaderboard *leaderboard.Service
	}

	registry *registry.Registry
	relay    *relay.Relay

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	questions, err := s.loadQuestions()
	if err != nil {
		return nil, fmt.Errorf("server: load questions: %w", err)
	}

	s.initService()
	s.initRelay(questions)
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Leaderboard.Addrs,
		Password: s.c.Redis.Leaderboard.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.leaderboard = r
	return nil
}

func (s *Server) initPostgres() error {
	qc := s.c.Postgres.Questions
	if qc.Addr == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", qc.User, qc.Pass, qc.Addr, qc.Name))
	if err != nil {
		return fmt.Errorf("questions: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return fmt.Errorf("questions: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("questions: %w", err)
	}

	s.infra.postgres.questions = db
	return nil
}

func (s *Server) loadQuestions() ([]domain.Question, error) {
	var src quiz.Source = quiz.StaticSource(quiz.DefaultQuestions())
	if s.infra.postgres.questions != nil {
		src = quiz.NewPGSource(s.infra.postgres.questions)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return src.Questions(ctx)
}

func (s *Server) initService() {
	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})
}

func (s *Server) initRelay(questions []domain.Question) {
	s.registry = registry.New()

	s.relay = relay.New(relay.Config{
		Registry:      s.registry,
		EventBus:      s.eb,
		Questions:     questions,
		RoundDuration: time.Duration(s.c.Game.RoundSeconds) * time.Second,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	e.GET("/ws", gin.WrapF(s.relay.HandleWS))

	e.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  s.registry.Len(),
		})
	})

	e.GET("/api/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.registry.List())
	})

	e.GET("/api/leaderboard", func(c *gin.Context) {
		top, err := s.service.leaderboard.Top(c.Request.Context(), leaderboardPageSize)
		if err != nil {
			e := errors.Convert(err)
			c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Error()})
			return
		}
		c.JSON(http.StatusOK, top)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.postgres.questions != nil {
		s.infra.postgres.questions.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
