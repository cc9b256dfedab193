package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-auto-reply-go/internal/ai"
	"social-auto-reply-go/internal/config"
	"social-auto-reply-go/internal/handlers"
	"social-auto-reply-go/internal/mail"
	"social-auto-reply-go/internal/metrics"
	"social-auto-reply-go/internal/pipeline"
	"social-auto-reply-go/internal/platform"
	"social-auto-reply-go/internal/scheduler"
	"social-auto-reply-go/internal/store"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Social Auto Reply Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	db, err := store.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.New(db)

	m := metrics.NewMetrics()

	var aiClient ai.Client
	if c := ai.NewOpenAIClient(&cfg.OpenAI); c != nil {
		aiClient = c
		logrus.Info("AI enrichment enabled")
	} else {
		logrus.Warn("No AI API key configured, enrichment disabled")
	}

	graph := platform.NewGraphClient(&cfg.Webhook)
	webhookPipeline := pipeline.NewWebhookPipeline(st, aiClient, graph, cfg.Webhook.PageID, m)

	var (
		fetcher mail.Fetcher
		sender  mail.Sender
		sched   *scheduler.Scheduler
	)
	if cfg.Mailbox.Enabled() {
		if cfg.Mailbox.UseGmailAPI {
			fetcher, err = mail.NewGmailFetcher(&cfg.Mailbox)
			if err != nil {
				return fmt.Errorf("failed to create Gmail fetcher: %w", err)
			}
			sender, err = mail.NewGmailSender(&cfg.Mailbox)
			if err != nil {
				return fmt.Errorf("failed to create Gmail sender: %w", err)
			}
			logrus.Info("Using Gmail API for the mailbox path")
		} else {
			fetcher, err = mail.NewIMAPFetcher(&cfg.Mailbox)
			if err != nil {
				return fmt.Errorf("failed to create IMAP fetcher: %w", err)
			}
			sender = mail.NewSMTPSender(&cfg.Mailbox)
			logrus.Info("Using IMAP/SMTP for the mailbox path")
		}

		mailboxPipeline := pipeline.NewMailboxPipeline(st, aiClient, fetcher, sender, m)
		sched = scheduler.New(&cfg.Scheduler, mailboxPipeline)

		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		logrus.Warn("Mailbox credentials not configured, poll loop disabled")
	}

	h := handlers.New(db, st, webhookPipeline, sched, cfg.Webhook.VerifyToken)

	router := setupRouter(h)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			logrus.Errorf("Failed to stop scheduler: %v", err)
		}
		sched.Wait()
	}

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if fetcher != nil {
		if err := fetcher.Close(); err != nil {
			logrus.Errorf("Failed to close fetcher: %v", err)
		}
	}
	if sender != nil {
		if err := sender.Close(); err != nil {
			logrus.Errorf("Failed to close sender: %v", err)
		}
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

// setupRouter sets up the HTTP router with middleware
func setupRouter(h *handlers.Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware())

	h.SetupRoutes(router)

	return router
}

// loggerMiddleware adds logging middleware
func loggerMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	})
}
