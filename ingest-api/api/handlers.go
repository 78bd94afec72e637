package api

import (
	"errors"
	"io"
	"math"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"ecommerce-pipeline/ingest-api/domain"
	"ecommerce-pipeline/ingest-api/publisher"
)

const (
	serviceName      = "ecommerce-event-pipeline"
	postEventMaxSize = 1 << 20
	maxBulkCount     = 1000
	maxStressSeconds = 60
)

var startedAt = time.Now()

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, pub Publisher, store EventStore, gen *domain.Generator, counter *RequestCounter, cache *RecentCache, logger *log.Logger) {
	e.GET("/health", health(counter))
	e.GET("/health/ready", ready(pub, store))
	e.GET("/stats", stats(counter))
	e.GET("/generate-load", generateLoad(counter))
	e.POST("/events", postEvent(pub, store, counter, logger))
	e.GET("/simulate/pageview", simulatePageView(pub, gen, counter, logger))
	e.GET("/generate-bulk", generateBulk(pub, gen, counter, logger))
	e.GET("/stress-test", stressTest(counter))
	e.GET("/events/recent", recentEvents(store, cache))
}

func health(counter *RequestCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":            "healthy",
			"timestamp":         time.Now().UTC(),
			"service":           serviceName,
			"requestsProcessed": counter.Total(),
		})
	}
}

func ready(pub Publisher, store EventStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		queueConfigured := pub.Configured()
		queueOK := pub.TestConnection(ctx)
		dbOK := store.TestConnection(ctx)
		status := "ready"
		if !dbOK {
			status = "degraded"
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"checks": map[string]bool{
				"queue":           queueOK,
				"queueConfigured": queueConfigured,
				"database":        dbOK,
			},
		})
	}
}

func stats(counter *RequestCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		hostname, _ := os.Hostname()
		return c.JSON(http.StatusOK, map[string]any{
			"totalRequests": counter.Total(),
			"uptime":        time.Since(startedAt).Round(time.Second).String(),
			"systemInfo": map[string]any{
				"processorCount": runtime.NumCPU(),
				"goroutines":     runtime.NumGoroutine(),
				"heapMB":         mem.HeapAlloc / 1024 / 1024,
				"hostname":       hostname,
			},
		})
	}
}

func generateLoad(counter *RequestCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		intensity := 5
		if v := c.QueryParam("intensity"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid intensity"})
			}
			intensity = n
		}

		start := time.Now()
		result := 0.0
		for i := 0; i < intensity*1000000; i++ {
			f := float64(i)
			result += math.Sqrt(f) * math.Sin(f) * math.Cos(f)
		}
		requestNumber := counter.Inc()

		return c.JSON(http.StatusOK, map[string]any{
			"message":       "load generated successfully",
			"intensity":     intensity,
			"durationMs":    durationToMillis(time.Since(start)),
			"result":        strconv.FormatFloat(result, 'f', 2, 64),
			"timestamp":     time.Now().UTC(),
			"requestNumber": requestNumber,
		})
	}
}

func postEvent(pub Publisher, store EventStore, counter *RequestCounter, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newEventRequestMetrics(ctx, logger, "/events")
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		decodeStart := time.Now()
		lr := io.LimitReader(c.Request().Body, postEventMaxSize)
		var ev domain.Event
		if decErr := sonic.ConfigStd.NewDecoder(lr).Decode(&ev); decErr != nil {
			metrics.SetErrorStage("decode")
			err = c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid body"})
			return err
		}
		metrics.ObserveDecode(time.Since(decodeStart))

		ev = ev.Normalize(time.Now())
		metrics.SetEventType(ev.EventType)
		requestNumber := counter.Inc()

		publishStart := time.Now()
		sendErr := pub.Send(ctx, ev)
		metrics.ObservePublish(time.Since(publishStart))
		if sendErr != nil {
			if errors.Is(sendErr, publisher.ErrPayloadTooLarge) {
				metrics.SetErrorStage("payload_too_large")
				err = c.JSON(http.StatusRequestEntityTooLarge, map[string]any{"error": sendErr.Error()})
				return err
			}
			metrics.SetErrorStage("publish")
			logger.WithError(sendErr).Error("publish event")
			err = c.JSON(http.StatusBadGateway, map[string]any{"error": "event could not be published"})
			return err
		}
		eventsPublishedTotal.WithLabelValues(ev.EventType).Inc()

		resp := map[string]any{
			"eventId":       ev.EventID,
			"eventType":     ev.EventType,
			"userId":        ev.UserID,
			"processedAt":   time.Now().UTC(),
			"status":        "Processed",
			"requestNumber": requestNumber,
		}

		// direct=true bypasses the stream and persists synchronously,
		// the demo path for exercising the sink without a consumer.
		if c.QueryParam("direct") == "true" {
			payload, mErr := sonic.ConfigStd.Marshal(ev)
			saved := false
			if mErr == nil {
				saved = store.Save(ctx, ev.EventType, payload)
			}
			if saved {
				eventsSavedTotal.Inc()
			} else {
				metrics.SetErrorStage("save")
			}
			resp["saved"] = saved
		}

		err = c.JSON(http.StatusOK, resp)
		return err
	}
}

func simulatePageView(pub Publisher, gen *domain.Generator, counter *RequestCounter, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ev := gen.PageView()
		counter.Inc()
		if err := pub.Send(ctx, ev); err != nil {
			logger.WithError(err).Error("publish simulated event")
			return c.JSON(http.StatusBadGateway, map[string]any{"error": "event could not be published"})
		}
		eventsPublishedTotal.WithLabelValues(ev.EventType).Inc()
		return c.JSON(http.StatusOK, ev)
	}
}

func generateBulk(pub Publisher, gen *domain.Generator, counter *RequestCounter, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		count := 10
		if v := c.QueryParam("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid count"})
			}
			count = n
		}
		if count > maxBulkCount {
			count = maxBulkCount
		}
		counter.Inc()

		sent, failed := 0, 0
		for ev := range gen.Bulk(count) {
			if err := pub.Send(ctx, ev); err != nil {
				logger.WithError(err).Warn("publish bulk event")
				failed++
				continue
			}
			eventsPublishedTotal.WithLabelValues(ev.EventType).Inc()
			sent++
		}
		return c.JSON(http.StatusOK, map[string]any{
			"requested": count,
			"sent":      sent,
			"failed":    failed,
			"timestamp": time.Now().UTC(),
		})
	}
}

func stressTest(counter *RequestCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		duration := 10
		if v := c.QueryParam("duration"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid duration"})
			}
			duration = n
		}
		if duration > maxStressSeconds {
			duration = maxStressSeconds
		}

		deadline := time.Now().Add(time.Duration(duration) * time.Second)
		iterations := 0
		for time.Now().Before(deadline) && ctx.Err() == nil {
			result := 0.0
			for i := 0; i < 100000; i++ {
				f := float64(i)
				result += math.Sqrt(f) * math.Log(f+1)
			}
			_ = result
			iterations++
			time.Sleep(10 * time.Millisecond)
		}
		requestNumber := counter.Inc()

		return c.JSON(http.StatusOK, map[string]any{
			"message":         "stress test completed",
			"durationSeconds": duration,
			"iterations":      iterations,
			"timestamp":       time.Now().UTC(),
			"requestNumber":   requestNumber,
		})
	}
}

func recentEvents(store EventStore, cache *RecentCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		limit := 10
		if v := c.QueryParam("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			}
			limit = n
		}

		if rows, ok := cache.Get(ctx, limit); ok {
			return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "events": rows, "cached": true})
		}
		rows := store.GetRecent(ctx, limit)
		cache.Set(ctx, limit, rows)
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "events": rows, "cached": false})
	}
}
