// Package health serves the liveness and stats HTTP endpoints.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tbaldin/ferro/internal/models"
	"github.com/tbaldin/ferro/internal/session"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the health server.
type StartOpts struct {
	DB       *gorm.DB
	Sessions *session.Manager
	Port     int
	Version  string
	Out      io.Writer
}

// Start launches the health HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("health: db is required")
	}
	if opts.Sessions == nil {
		return fmt.Errorf("health: session manager is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	started := time.Now()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", handleHealthz(opts.DB, opts.Version, started))
	router.GET("/api/stats", handleStats(opts.DB, opts.Sessions))

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Health endpoint at http://localhost:%d/healthz\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// handleHealthz pings the database and reports process liveness.
func handleHealthz(db *gorm.DB, version string, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if err := pingDB(db); err != nil {
			status = http.StatusServiceUnavailable
			dbState = err.Error()
		}
		c.JSON(status, gin.H{
			"status":         dbState,
			"version":        version,
			"uptime_seconds": int(time.Since(started).Seconds()),
		})
	}
}

// handleStats reports row counts and the number of active sessions.
func handleStats(db *gorm.DB, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := tableCounts(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		counts["active_sessions"] = sessions.ActiveCount()
		c.JSON(http.StatusOK, counts)
	}
}

// pingDB checks database connectivity.
func pingDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// tableCounts returns total row counts for the main tables.
func tableCounts(db *gorm.DB) (map[string]int64, error) {
	counts := make(map[string]int64)
	tables := map[string]interface{}{
		"users":     &models.User{},
		"sessions":  &models.WorkoutSession{},
		"exercises": &models.Exercise{},
	}
	for name, model := range tables {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, nil
}
