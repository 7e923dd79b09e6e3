package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/quizbot/internal/event"
	"github.com/victornm/quizbot/internal/progress"
	"github.com/victornm/quizbot/internal/question"
	"github.com/victornm/quizbot/internal/selector"
	"github.com/victornm/quizbot/internal/session"
	"github.com/victornm/quizbot/internal/telegram"
	"github.com/victornm/quizbot/internal/telemetry"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	connectTimeout = 10 * time.Second
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Storage struct {
		// Driver is postgres or memory. The memory driver loads SeedFile and keeps progress in process.
		Driver   string
		SeedFile string
	}

	Redis struct {
		// Lock is optional, without Addrs turns are serialized in process only.
		Lock struct {
			Addrs  []string
			Pass   string
			Prefix string
			TTL    time.Duration
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Telegram struct {
		Token       string
		APIURL      string
		SecretToken string
	}

	Session struct {
		LockWait time.Duration
	}

	Event struct {
		PoolSize int
		Timeout  time.Duration
	}
}

// DefaultConfig holds the values used when neither the file nor env sets them.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Storage.Driver = StorageDriverPostgres
	c.Storage.SeedFile = "data/questions.yaml"
	c.Redis.Lock.Prefix = "quizbot"
	c.Redis.Lock.TTL = 10 * time.Second
	c.Telegram.APIURL = "https://api.telegram.org"
	c.Session.LockWait = 5 * time.Second
	c.Event.PoolSize = 100
	c.Event.Timeout = 30 * time.Second
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	store struct {
		bank     session.QuestionBank
		progress session.ProgressStore
		locker   session.Locker
	}

	service struct {
		session  *session.Service
		notifier *telegram.Notifier
	}

	health *health.Server
	http   *http.Server
	grpc   *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus(event.WithPoolSize(c.Event.PoolSize), event.WithTimeout(c.Event.Timeout))

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initStore(); err != nil {
		return nil, fmt.Errorf("server: init store: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if len(s.c.Redis.Lock.Addrs) > 0 {
		if err := s.initRedis(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	if s.c.Storage.Driver == StorageDriverPostgres {
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Lock.Addrs,
		Password: s.c.Redis.Lock.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := Connect(ctx, s.c.Postgres.Addr, s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Name)
	if err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

// Connect opens a pgx pool and checks it with a ping.
func Connect(ctx context.Context, addr, user, pass, name string) (*pgxpool.Pool, error) {
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", user, pass, addr, name))
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (s *Server) initStore() error {
	switch s.c.Storage.Driver {
	case StorageDriverPostgres:
		s.store.bank = question.NewPostgres(question.Config{DB: s.infra.postgres})
		s.store.progress = progress.NewPostgres(progress.Config{DB: s.infra.postgres})

	case StorageDriverMemory:
		qs, err := question.LoadFile(s.c.Storage.SeedFile)
		if err != nil {
			return err
		}

		s.store.bank = question.NewMemory(qs...)
		s.store.progress = progress.NewMemory()
		slog.Warn("server: memory storage, progress is lost on restart", "questions", len(qs))

	default:
		return fmt.Errorf("unknown storage driver %q", s.c.Storage.Driver)
	}

	if s.infra.redis != nil {
		s.store.locker = progress.NewRedisLocker(progress.LockerConfig{
			Redis:  s.infra.redis,
			Prefix: s.c.Redis.Lock.Prefix,
			TTL:    s.c.Redis.Lock.TTL,
		})
	} else {
		s.store.locker = progress.NewMemoryLocker()
	}

	return nil
}

func (s *Server) initService() {
	s.service.session = session.NewService(session.Config{
		Bank:     s.store.bank,
		Store:    s.store.progress,
		Selector: selector.New(nil),
		Locker:   s.store.locker,
		LockWait: s.c.Session.LockWait,
	})

	s.service.notifier = telegram.NewNotifier(telegram.NotifierConfig{
		EventBus: s.eb,
		Sender: telegram.NewClient(telegram.ClientConfig{
			Token:  s.c.Telegram.Token,
			APIURL: s.c.Telegram.APIURL,
		}),
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.GET("/healthz", s.healthz)

	telegram.NewWebhook(telegram.WebhookConfig{
		Turns:       s.service.session,
		Bus:         s.eb,
		SecretToken: s.c.Telegram.SecretToken,
	}).Register(e)

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.ping(c.Request.Context()); err != nil {
		slog.WarnContext(c.Request.Context(), "server: health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if s.infra.postgres != nil {
		if err := s.infra.postgres.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}

	if s.infra.redis != nil {
		if err := s.infra.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	return nil
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

// Shutdown stops accepting updates first, then waits for pending replies to be delivered.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}
	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
