package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/pkg/utils"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	cipher, err := utils.NewCipher([]byte(cfg.SecretKey))
	if err != nil {
		log.Fatalf("Invalid SECRET_KEY: %v", err)
	}

	policy, err := service.ParseMarkPolicy(cfg.PublishMarkPolicy)
	if err != nil {
		log.Fatalf("Invalid PUBLISH_MARK_POLICY: %v", err)
	}

	var mediaResolver service.MediaURLResolver
	if cfg.R2.AccountID != "" {
		r2Service, err := service.NewR2Service(context.Background(), *cfg)
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		mediaResolver = r2Service
	} else {
		log.Println("R2 is not configured, r2:// media references will be rejected")
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	postRepo := repository.NewPostRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	postingHistoryRepo := repository.NewPostingHistoryRepository(db)

	httpClient := &http.Client{}
	publishService := service.NewPublishService(
		postRepo,
		channelRepo,
		service.NewCredentialResolver(cipher),
		mediaResolver,
		policy,
		service.NewFacebookService(*cfg, httpClient),
		service.NewInstagramService(*cfg, httpClient),
		service.NewTiktokService(*cfg, httpClient),
		service.NewXService(*cfg, httpClient),
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	publish := handlers.NewPublishHandler(publishService, channelRepo, client)
	api.Post("/posts/publish", publish.Publish)
	api.Post("/posts/enqueue", publish.Enqueue)

	post := handlers.NewPostHandler(service.NewPostService(postRepo, postingHistoryRepo), channelRepo)
	api.Get("/channels/:channelId/posts/:postId/history", post.ListHistory)

	// cron jobs
	duePostJob := job.NewDuePostJob(postRepo, client, cfg.DuePostsBatchSize)

	c := cron.New()
	if err := c.AddFunc(cfg.DuePostsSchedule, func() { duePostJob.EnqueueDuePosts() }); err != nil {
		log.Fatalf("Invalid DUE_POSTS_SCHEDULE: %v", err)
	}
	c.Start()

	//queue
	queueW := queue.NewQueue(publishService, postingHistoryRepo)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, c, server, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, server *asynq.Server, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	closeDB(db)
	log.Println("Server shutdown complete.")
}
