package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"taskPlanner/internal/broadcast"
	"taskPlanner/internal/config"
	"taskPlanner/internal/handlers"
	"taskPlanner/internal/kv"
	"taskPlanner/internal/kv/inmemory"
	"taskPlanner/internal/kv/postgres"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"
	"taskPlanner/internal/models/category"
	"taskPlanner/internal/service"
	"taskPlanner/internal/storage"
	"taskPlanner/internal/suggest"
	"taskPlanner/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type App struct {
	config *config.Config
	server *http.Server
	router *chi.Mux

	tasks      *storage.TaskStore
	categories *storage.CategoryStore
	settings   *storage.SettingsStore

	worker    *worker.BackupWorker
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	store, err := a.initKV(ctx)
	if err != nil {
		return err
	}

	hub := broadcast.NewHub()

	a.tasks = storage.NewTaskStore(store, hub)
	a.categories = storage.NewCategoryStore(store, hub)
	a.settings = storage.NewSettingsStore(store, hub)

	for _, init := range []interface {
		Initialize(ctx context.Context) error
		Close()
	}{a.tasks, a.categories, a.settings} {
		if err := init.Initialize(ctx); err != nil {
			return fmt.Errorf("инициализация хранилища коллекции: %w", err)
		}
		a.shutdowns = append(a.shutdowns, init.Close)
	}

	a.seedCategories(ctx)

	settingsService := service.NewSettingsService(a.settings)
	taskService := service.NewTaskService(a.tasks, settingsService)
	categoryService := service.NewCategoryService(a.categories, a.tasks)

	suggestService := a.initSuggest(ctx)

	taskHandler := handlers.NewTaskHandler(taskService, categoryService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	suggestHandler := handlers.NewSuggestHandler(suggestService)

	a.router = newRouter(taskHandler, categoryHandler, settingsHandler, suggestHandler)
	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: a.router,
	}

	if a.config.Backup.Enabled {
		a.worker = worker.NewBackupWorker(&a.config.Backup.Interval, a.tasks, a.categories)
	}

	return nil
}

func (a *App) initKV(ctx context.Context) (kv.Store, error) {
	switch a.config.Storage.Type {
	case "postgres":
		pg, err := postgres.New(ctx, a.config.Storage.URL)
		if err != nil {
			return nil, fmt.Errorf("подключение к postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("миграция схемы postgres: %w", err)
		}
		if err := pg.Listen(ctx); err != nil {
			return nil, fmt.Errorf("подписка на уведомления postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, pg.Close)
		return pg, nil
	case "inmemory", "":
		return inmemory.New().NewHandle(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", a.config.Storage.Type)
	}
}

// seedCategories кладёт встроенный набор при первом запуске
func (a *App) seedCategories(ctx context.Context) {
	if a.categories.Info(ctx).Exists {
		return
	}
	if !a.categories.Save(ctx, category.Defaults(time.Now())) {
		logger.Warn("App: Не удалось записать встроенные категории")
	}
}

func (a *App) initSuggest(ctx context.Context) handlers.SuggestService {
	if !a.config.AI.Enabled {
		return nil
	}

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		logger.Warn("App: AI включён, но GOOGLE_API_KEY не задан")
		return nil
	}

	client, err := suggest.NewGeminiClient(ctx, apiKey, a.config.AI.Model)
	if err != nil {
		logger.Error("App: Клиент gemini не создан", err)
		return nil
	}
	a.shutdowns = append(a.shutdowns, func() { client.Close() })

	return suggest.NewService(client)
}

func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		go a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("App: Сервер запущен на " + a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("работа сервера: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка сервера: %w", err)
	}
	return nil
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}

func newRouter(taskHandler handlers.TaskHandler, categoryHandler handlers.CategoryHandler,
	settingsHandler handlers.SettingsHandler, suggestHandler handlers.SuggestHandler) *chi.Mux {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.RateLimit(100))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.GetTasks)       // GET /api/tasks
			r.Post("/", taskHandler.PostTask)      // POST /api/tasks
			r.Delete("/", taskHandler.ClearTasks)  // DELETE /api/tasks
			r.Get("/stats", taskHandler.GetStats)  // GET /api/tasks/stats
			r.Get("/export", taskHandler.ExportTasks)
			r.Post("/import", taskHandler.ImportTasks)
			r.Get("/info", taskHandler.GetInfo)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTaskByID)       // GET /api/tasks/{id}
				r.Put("/", taskHandler.UpdateTaskByID)    // PUT /api/tasks/{id}
				r.Delete("/", taskHandler.DeleteTaskByID) // DELETE /api/tasks/{id}
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.GetCategories)
			r.Post("/", categoryHandler.PostCategory)
			r.Post("/reset", categoryHandler.ResetCategories)
			r.Get("/export", categoryHandler.ExportCategories)
			r.Post("/import", categoryHandler.ImportCategories)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", categoryHandler.GetCategoryByID)
				r.Put("/", categoryHandler.UpdateCategoryByID)
				r.Delete("/", categoryHandler.DeleteCategoryByID)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.GetSettings)
			r.Put("/", settingsHandler.UpdateSettings)
		})

		r.Post("/generate-subtasks", suggestHandler.GenerateSubtasks)
	})

	r.Get("/health", taskHandler.HealthCheck)

	return r
}
