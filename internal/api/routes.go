package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmlago/habitloop/internal/config"
)

// HealthChecker reports storage health for the health endpoint.
type HealthChecker interface {
	Health() error
}

// RegisterRoutes wires all API routes onto the engine.
func RegisterRoutes(r *gin.Engine, h *Handler, db HealthChecker, cfg *config.Config) {
	r.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		habits := v1.Group("/habits")
		{
			habits.POST("", h.CreateHabit)
			habits.GET("", h.ListHabits)
			habits.GET("/:id", h.GetHabit)
			habits.PUT("/:id", h.UpdateHabit)
			habits.DELETE("/:id", h.DeleteHabit)
			habits.POST("/:id/archive", h.ArchiveHabit)
			habits.POST("/:id/logs", h.LogCompletion)
			habits.GET("/:id/logs", h.ListLogs)
			habits.GET("/:id/streak", h.GetStreak)
		}

		v1.GET("/streaks", h.ListStreaks)

		achievements := v1.Group("/achievements")
		{
			achievements.GET("", h.GetAchievementBoard)
			achievements.POST("/viewed", h.MarkAchievementsViewed)
		}

		goals := v1.Group("/goals")
		{
			goals.POST("", h.CreateGoal)
			goals.GET("", h.ListGoals)
			goals.POST("/:id/habits/:habitId", h.LinkGoalHabit)
			goals.DELETE("/:id/habits/:habitId", h.UnlinkGoalHabit)
		}
	}
}
