package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"ecommerce-pipeline/ingest-api/api"
	"ecommerce-pipeline/ingest-api/domain"
	"ecommerce-pipeline/ingest-api/publisher"
	"ecommerce-pipeline/sink"
)

func main() {
	godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())

	queueConn := os.Getenv("EVENTS_QUEUE_CONNECTION_STRING")
	queueName := os.Getenv("EVENTS_QUEUE")
	pub, err := publisher.New(queueConn, queueName, logger)
	if err != nil {
		log.Fatalf("publisher: %v", err)
	}

	sqlDriver := os.Getenv("SQL_DRIVER")
	if sqlDriver == "" {
		sqlDriver = "postgres"
	}
	sqlConn := os.Getenv("SQL_CONNECTION_STRING")
	if sqlConn == "" {
		log.Warn("SQL connection string not configured, sink running in degraded mode")
	}
	store, err := sink.New(sqlDriver, sqlConn, logger)
	if err != nil {
		log.Fatalf("sink: %v", err)
	}
	defer store.Close()

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		opts, err := redis.ParseURL(redisConn)
		if err != nil {
			log.Fatalf("invalid REDIS_CONNECTION_STRING: %v", err)
		}
		rc = redis.NewClient(opts)
	} else {
		log.Warn("redis not configured, recent events cache disabled")
	}
	cacheTTL := 5 * time.Second
	if v := os.Getenv("RECENT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid RECENT_CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cache := api.NewRecentCache(rc, cacheTTL, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoprometheus.NewMiddleware("ingest_api"))
	e.GET("/metrics", echoprometheus.NewHandler())

	counter := api.NewRequestCounter()
	api.Register(e, pub, store, domain.NewGenerator(), counter, cache, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
