package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/dsavelev/reviewpress/internal/article"
	"github.com/dsavelev/reviewpress/internal/author"
	"github.com/dsavelev/reviewpress/internal/authflow"
	"github.com/dsavelev/reviewpress/internal/config"
	"github.com/dsavelev/reviewpress/internal/review"
	"github.com/dsavelev/reviewpress/internal/server"
	"github.com/dsavelev/reviewpress/internal/session"
	"github.com/dsavelev/reviewpress/internal/storage/memory"
	"github.com/dsavelev/reviewpress/internal/storage/postgres"
)

func main() {
	storageType := flag.String("storage", "postgres", "storage backend: postgres or memory")
	flag.Parse()

	config.LoadEnv()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	var authorStore author.AuthorStorage
	var articleStore article.ArticleStorage
	var reviewStore review.ReviewStorage

	switch *storageType {
	case "postgres":
		if err := postgres.InitDB(); err != nil {
			sugar.Fatalw("failed to connect to database", "error", err)
		}

		// DB_RESET wipes the whole schema. Never set it on a database whose
		// contents you care about.
		if config.GetEnvBool("DB_RESET") {
			sugar.Warnw("DB_RESET is set, dropping and recreating the schema")
			if err := postgres.ResetSchema(); err != nil {
				sugar.Fatalw("failed to reset schema", "error", err)
			}
		}

		if err := postgres.Migrate(); err != nil {
			sugar.Fatalw("failed to migrate database", "error", err)
		}

		sugar.Infow("using PostgreSQL storage")
		authorStore = postgres.NewAuthorPostgresStorage()
		articleStore = postgres.NewArticlePostgresStorage()
		reviewStore = postgres.NewReviewPostgresStorage()

	case "memory":
		sugar.Infow("using in-memory storage")
		memAuthors := memory.NewAuthorMemoryStorage()
		memArticles := memory.NewArticleMemoryStorage(memAuthors)
		authorStore = memAuthors
		articleStore = memArticles
		reviewStore = memory.NewReviewMemoryStorage(memArticles, memAuthors)

	default:
		sugar.Fatalw("unknown storage backend", "storage", *storageType)
	}

	baseURL := strings.TrimRight(config.GetEnvDefault("BASE_URL", "http://localhost:8080"), "/")
	redirectPath := config.GetEnvDefault("REDIRECT_PATH", "/getAToken")

	flowClient := authflow.New(authflow.Config{
		ClientID:     config.GetEnv("CLIENT_ID"),
		ClientSecret: config.GetEnv("CLIENT_SECRET"),
		Authority:    config.GetEnv("AUTHORITY"),
		RedirectURL:  baseURL + redirectPath,
		Scopes:       strings.Fields(config.GetEnvDefault("SCOPE", "")),
	})

	sessionManager := session.NewManager(session.NewStoreFromEnv())

	app, err := server.New(sugar, sessionManager, flowClient, authorStore, articleStore, reviewStore, server.Config{
		BaseURL:      baseURL,
		RedirectPath: redirectPath,
	})
	if err != nil {
		sugar.Fatalw("failed to build server", "error", err)
	}

	srv := &http.Server{
		Addr:    config.GetEnvDefault("ADDR", ":8080"),
		Handler: app.Router(),
	}

	go func() {
		sugar.Infow("server listening", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("shutting down")

	if err := srv.Shutdown(context.Background()); err != nil {
		sugar.Fatalw("shutdown failed", "error", err)
	}

	if *storageType == "postgres" {
		if err := postgres.CloseDB(); err != nil {
			sugar.Errorw("failed to close database", "error", err)
		}
	}

	sugar.Infow("server stopped")
}
