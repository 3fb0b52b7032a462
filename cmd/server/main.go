package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/internal/handlers"
	appmiddleware "github.com/maynagashev/copypasta/internal/middleware"
	"github.com/maynagashev/copypasta/internal/repository"
	"github.com/maynagashev/copypasta/internal/services"
	"github.com/maynagashev/copypasta/internal/storage"
	"github.com/maynagashev/copypasta/internal/token"
	"github.com/maynagashev/copypasta/internal/version"
)

const (
	defaultReadTimeout = 10 * time.Second
	// Должен превышать максимальное время long-poll ожидания.
	defaultWriteTimeout = 75 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultShutdownTimeout = 15 * time.Second
)

// Подменяются в тестах.
var (
	newPostgresDB  = repository.NewPostgresDB
	newMinioClient = func(ctx context.Context, cfg storage.MinioConfig) (storage.FileStorage, error) {
		return storage.NewMinioClient(ctx, cfg)
	}
)

// dependencies хранит инициализированные зависимости сервера.
type dependencies struct {
	db          *sqlx.DB
	snapshotter *storage.Snapshotter
	listener    *repository.ChangeListener

	authHandler      *handlers.AuthHandler
	clipboardHandler *handlers.ClipboardHandler
	streamHandler    *handlers.StreamHandler
}

// close освобождает ресурсы, открытые в setupDependencies.
func (d *dependencies) close() {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Printf("Ошибка закрытия соединения с БД: %v", err)
		}
	}
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ошибка чтения .env: %v", err)
	}

	cfg, err := parseFlags()
	if err != nil {
		log.Printf("Ошибка конфигурации: %v", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		stop()
		os.Exit(1)
	}
}

// run запускает сервер и фоновые задачи, пока ctx не отменен.
func run(ctx context.Context, cfg *config) error {
	log.Printf("Запуск сервера CopyPasta %s...", version.String())

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer deps.close()

	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(deps, []byte(cfg.JWTSecret)),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
		// Ожидающие long-poll и websocket запросы завершаются вместе с gctx
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		var serveErr error
		if cfg.TLSEnabled() {
			log.Printf("Запуск HTTPS-сервера на порту %s (сертификат: %s)", cfg.Port, cfg.CertFile)
			serveErr = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Printf("Запуск HTTP-сервера на порту %s (TLS не настроен)", cfg.Port)
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("ошибка остановки сервера: %w", shutdownErr)
		}
		return nil
	})

	if deps.snapshotter != nil {
		g.Go(func() error { return deps.snapshotter.Run(gctx) })
	}
	if deps.listener != nil {
		g.Go(func() error { return deps.listener.Run(gctx) })
	}

	if err = g.Wait(); err != nil {
		return err
	}
	log.Println("Сервер остановлен")
	return nil
}

// setupDependencies инициализирует хранилище, сервисы и обработчики.
// Без DATABASE_DSN буфер хранится в памяти и, если задан MinIO, сохраняется снимками.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	notifier := clipboard.NewNotifier()

	var (
		store    clipboard.Store
		userRepo repository.UserRepository
	)

	if cfg.DatabaseDSN != "" {
		db, err := newPostgresDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
		}
		deps.db = db
		if err = repository.EnsureSchema(ctx, db); err != nil {
			deps.close()
			return nil, err
		}
		log.Println("Соединение с БД успешно установлено.")

		store = repository.NewPostgresClipboardRepository(db, notifier)
		userRepo = repository.NewPostgresUserRepository(db)
		deps.listener = repository.NewChangeListener(cfg.DatabaseDSN, notifier)
		if cfg.MinioEndpoint != "" {
			log.Println("MinIO задан, но снимки нужны только хранилищу в памяти; игнорируется")
		}
	} else {
		memStore := clipboard.NewMemoryStore(notifier)
		store = memStore
		userRepo = repository.NewMemoryUserRepository()
		log.Println("DATABASE_DSN не задан, буфер обмена хранится в памяти")

		if cfg.MinioEndpoint != "" {
			files, err := newMinioClient(ctx, storage.MinioConfig{
				Endpoint:        cfg.MinioEndpoint,
				AccessKeyID:     cfg.MinioUser,
				SecretAccessKey: cfg.MinioPassword,
				UseSSL:          cfg.MinioUseSSL,
				BucketName:      cfg.MinioBucket,
			})
			if err != nil {
				return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
			}
			deps.snapshotter = storage.NewSnapshotter(memStore, files, storage.DefaultSnapshotKey, cfg.SnapshotInterval)
			if err = deps.snapshotter.Load(ctx); err != nil {
				return nil, err
			}
		}
	}

	authService := services.NewAuthService(userRepo, []byte(cfg.JWTSecret), token.DefaultTTL)
	if cfg.Username != "" {
		if err := authService.EnsureUser(ctx, cfg.Username, cfg.Password); err != nil {
			deps.close()
			return nil, fmt.Errorf("ошибка создания пользователя %s: %w", cfg.Username, err)
		}
	}

	poller := clipboard.NewLongPoller(store, notifier, cfg.MaxWaiters)
	clipboardService := services.NewClipboardService(store, poller, cfg.MaxContentBytes)

	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.clipboardHandler = handlers.NewClipboardHandler(clipboardService, cfg.MaxContentBytes)
	deps.streamHandler = handlers.NewStreamHandler(clipboardService)
	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Служебные маршруты --- //
	r.Get("/ping", handlers.Ping)
	r.Get("/health", handlers.Health)
	r.Get("/version", handlers.BuildVersion)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Authenticator(jwtSecret))

			r.Post("/paste", deps.clipboardHandler.Paste)
			r.Get("/clipboard", deps.clipboardHandler.Current)
			r.Get("/history", deps.clipboardHandler.History)
			r.Get("/version", deps.clipboardHandler.Version)
			r.Get("/poll", deps.clipboardHandler.Poll)
			r.Get("/ws", deps.streamHandler.Serve)
		})
	})
	return r
}
