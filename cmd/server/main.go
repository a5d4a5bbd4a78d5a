package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/email"
	"github.com/taskvault/taskvault/internal/events"
	"github.com/taskvault/taskvault/internal/handlers"
	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/search"
	"github.com/taskvault/taskvault/internal/service"
	"github.com/taskvault/taskvault/internal/storage"
	"github.com/taskvault/taskvault/internal/token"
	httpserver "github.com/taskvault/taskvault/internal/transport/http"

	"github.com/elastic/go-elasticsearch/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := repository.SeedRoles(db); err != nil {
		log.Fatalf("role seed error: %v", err)
	}

	uow := repository.NewUnitOfWork(db)
	signer := token.NewSigner([]byte(cfg.SECRET))

	var sender email.Sender = &email.LogSender{Logger: logger}
	if cfg.SMTP_HOST != "" {
		sender = &email.SMTPSender{
			Host:     cfg.SMTP_HOST,
			Port:     cfg.SMTP_PORT,
			Username: cfg.SMTP_USER,
			Password: cfg.SMTP_PASSWORD,
			From:     cfg.SMTP_FROM,
		}
	}

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
	}

	var esClient *elasticsearch.Client
	if cfg.ES_URL != "" {
		esClient, err = search.NewClient(cfg.ES_URL, cfg.ES_USER, cfg.ES_PASSWORD)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	}

	ctx := context.Background()

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:  cfg.S3_ENDPOINT,
		Region:    cfg.S3_REGION,
		AccessKey: cfg.S3_ACCESS_KEY,
		SecretKey: cfg.S3_SECRET_KEY,
		Bucket:    cfg.S3_BUCKET,
	})
	if err != nil {
		log.Fatalf("object store init error: %v", err)
	}

	accountSvc, err := service.NewAccountService(ctx, uow, signer, sender, producer, cfg.REFRESH_TOKEN_TTL_DAYS)
	if err != nil {
		log.Fatalf("account service init error: %v", err)
	}
	taskSvc := service.NewTaskService(uow, esClient, "tasks", producer)
	solutionSvc := service.NewSolutionService(uow)
	fileSvc := service.NewFileService(uow, store)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), logger)))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		UoW:       uow,
		Signer:    signer,
		Accounts:  &handlers.AccountHandler{Service: accountSvc},
		Tasks:     &handlers.TaskHandler{Service: taskSvc},
		Solutions: &handlers.SolutionHandler{Service: solutionSvc},
		Files:     &handlers.FileHandler{Service: fileSvc},
		Subjects:  handlers.NewReferenceHandler(service.NewReferenceService[models.Subject](uow, "subject")),
		Years:     handlers.NewReferenceHandler(service.NewReferenceService[models.AcademicYear](uow, "academic year")),
		TaskTypes: handlers.NewReferenceHandler(service.NewReferenceService[models.TaskType](uow, "task type")),
		Authors:   handlers.NewReferenceHandler(service.NewReferenceService[models.Author](uow, "author")),
		Tags:      handlers.NewReferenceHandler(service.NewReferenceService[models.Tag](uow, "tag")),
		Roles:     handlers.NewReferenceHandler(service.NewReferenceService[models.Role](uow, "role")),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.SERVER_ADDRESS,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
