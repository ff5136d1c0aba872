package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"compass-api/internal/credentials"
	"compass-api/internal/gateway"
	"compass-api/internal/handlers/categories"
	"compass-api/internal/handlers/coach"
	"compass-api/internal/handlers/goals"
	"compass-api/internal/handlers/journal"
	"compass-api/internal/middleware"
	"compass-api/internal/routers"
	"compass-api/internal/shared"
	"compass-api/internal/tools"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Flags / ENV Variables
	writeDSN := flag.String("dsn", "", "Write DSN")
	readDSN := flag.String("read-dsn", "", "Read replica DSN")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	redisAddr := flag.String("redis-addr", "", "Redis host:port")
	debug := flag.Bool("debug", false, "Debug enabled")
	sessionSecret := flag.String("session-secret", "", "HS256 secret for UI session tokens")
	modelURL := flag.String("model-url", "", "Hosted model base URL")
	modelAPIKey := flag.String("model-api-key", "", "Hosted model API key")
	modelName := flag.String("model-name", "", "Hosted model name")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	if *sessionSecret == "" {
		panic("session secret is required")
	}

	// Write DB init
	writeDB, err := sql.Open("mysql", *writeDSN)
	if err != nil {
		panic(fmt.Sprintf("failed initializing sqlClient: %s", err))
	}
	err = writeDB.Ping()
	if err != nil {
		panic(fmt.Sprintf("failed ping to sql db: %s", err))
	}

	// Read db init
	readDB, err := sql.Open("mysql", *readDSN)
	if err != nil {
		panic(fmt.Sprintf("failed initializing readSqlClient: %s", err))
	}
	err = readDB.Ping()
	if err != nil {
		panic(fmt.Sprintf("failed to ping read replica sql db: %s", err))
	}

	// Load Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     *redisAddr,
		Password: "",
		DB:       0,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		panic(fmt.Sprintf("failed ping to redis db: %s", err))
	}

	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if writeDB != nil {
			_ = writeDB.Close()
		}
		if readDB != nil {
			_ = readDB.Close()
		}
	}()

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": shared.ServerName,
			"version": shared.ServerVersion,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey, err := shared.ExtractAPIKey(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}

			if apiKey != *metricsAPIKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	})
	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))

	// Credential store and the fixed tool catalog, built once and injected.
	credStore := credentials.NewStore(credentials.NewMySQLRepository(writeDB, readDB), redisClient, log)
	registry := tools.NewRegistry()

	goalSvc := goals.NewHandler(writeDB, readDB, log)
	journalSvc := journal.NewHandler(writeDB, readDB, log)
	categorySvc := categories.NewHandler(readDB, log)

	dispatcher := tools.NewDispatcher(registry, goalSvc, journalSvc, categorySvc, log)
	gw := gateway.NewHandler(credStore, registry, dispatcher, log)

	coachHandler := coach.NewHandler(
		coach.NewClient(coach.ModelConfig{URL: *modelURL, APIKey: *modelAPIKey, Model: *modelName}),
		goalSvc,
		journalSvc,
		log,
	)

	// Register routes
	routers.RegisterGatewayRoutes(base, gw, shared.HeartbeatInterval, log)
	routers.RegisterKeyRoutes(base, credStore, []byte(*sessionSecret))
	routers.RegisterCoachRoutes(base, coachHandler, []byte(*sessionSecret))

	go func() {
		if err := e.Start(":80"); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server.
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
