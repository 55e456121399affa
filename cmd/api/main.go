package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/checkin"
	"rollcall/internal/config"
	"rollcall/internal/docstore"
	"rollcall/internal/fines"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/metrics"
	"rollcall/internal/notify"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var (
		docs docstore.Store
		pg   *docstore.Postgres
	)
	if cfg.DocstoreBackend == "memory" {
		docs = docstore.NewMemory()
		log.Println("docstore: in-memory backend (data is not persisted)")
	} else {
		var err error
		pg, err = docstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return err
		}
		docs = pg
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:notices")
	}

	schedule := fines.DefaultSchedule()
	if cfg.PenaltySchedulePath != "" {
		loaded, err := fines.LoadSchedule(cfg.PenaltySchedulePath)
		if err != nil {
			return err
		}
		schedule = loaded
		log.Printf("penalty schedule loaded from %s (max %d absences)", cfg.PenaltySchedulePath, schedule.Max())
	}

	repo := roster.NewRepository(docs, cfg.ReconcileWorkers)
	swipes := checkin.NewService(repo)
	reconciler := fines.NewReconciler(repo, schedule, cfg.ReconcileWorkers)
	publisher := notify.NewPublisher(q)

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsCfg))

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := pg == nil || pg.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	v1 := r.Group("/v1")

	v1.POST("/checkins", func(c *gin.Context) {
		var req struct {
			UserID    string `json:"user_id" binding:"required"`
			EventName string `json:"event_name" binding:"required"`
			Date      string `json:"date"`
			Time      string `json:"time"`
			Location  string `json:"location"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, created, err := swipes.Record(c.Request.Context(), checkin.Request{
			UserID:    req.UserID,
			EventName: req.EventName,
			Date:      req.Date,
			Time:      req.Time,
			Location:  req.Location,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, checkin.ErrUnknownUser) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if !created {
			metrics.CheckinsTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"record": rec, "duplicate": true})
			return
		}
		metrics.CheckinsTotal.WithLabelValues("created").Inc()
		c.JSON(http.StatusCreated, gin.H{"record": rec, "duplicate": false})
	})

	v1.GET("/attendance", func(c *gin.Context) {
		var (
			recs    []roster.AttendanceRecord
			removed int
			err     error
		)
		if userID := c.Query("user_id"); userID != "" {
			recs, removed, err = repo.ListAttendanceForUser(c.Request.Context(), userID)
		} else {
			recs, removed, err = repo.ListAttendance(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if removed > 0 {
			metrics.DuplicatesRemovedTotal.Add(float64(removed))
		}
		c.JSON(http.StatusOK, gin.H{"attendance": recs, "duplicates_removed": removed})
	})

	v1.GET("/users", func(c *gin.Context) {
		users, err := repo.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	})

	v1.POST("/users", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			Name      string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := repo.CreateUser(c.Request.Context(), roster.User{StudentID: req.StudentID, Name: req.Name})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
	})

	v1.GET("/events", func(c *gin.Context) {
		events, err := repo.ListEvents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	v1.POST("/events", func(c *gin.Context) {
		var req struct {
			Name     string `json:"name" binding:"required"`
			Date     string `json:"date"`
			Location string `json:"location"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := repo.CreateEvent(c.Request.Context(), roster.Event{Name: req.Name, Date: req.Date, Location: req.Location})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"event": event})
	})

	v1.GET("/fines", func(c *gin.Context) {
		records, err := repo.ListFines(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"fines": records})
	})

	v1.GET("/notifications", func(c *gin.Context) {
		notes, err := repo.ListNotifications(c.Request.Context(), c.Query("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notes})
	})

	v1.POST("/reconcile", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.ReconcileBudget)
		defer cancel()

		total := cfg.TotalRequiredEvents
		if cfg.RequiredFromEvents {
			events, err := repo.ListEvents(ctx)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			total = len(events)
		}

		summary, err := reconciler.Run(ctx, total)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, fines.ErrStoreNotCleared) {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error(), "summary": summary})
			return
		}

		published, pubErr := publisher.PublishFineNotices(ctx, summary.Fines)
		if pubErr != nil {
			log.Printf("notice publish failed after %d message(s): %v", published, pubErr)
		}

		c.JSON(http.StatusOK, gin.H{
			"message":           reconcileMessage(summary),
			"summary":           summary,
			"required_events":   total,
			"notices_published": published,
		})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func reconcileMessage(s fines.Summary) string {
	msg := fmt.Sprintf("%d of %d fine records updated successfully", s.Succeeded, s.Total)
	if len(s.FailedStudentIDs) > 0 {
		msg += "; failed: " + strings.Join(s.FailedStudentIDs, ", ")
	}
	return msg
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
