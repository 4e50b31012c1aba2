package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/application"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

type StatsProvider interface {
	Stats() application.Stats
	Cities() []string
}

type HealthResponse struct {
	Status                  string    `json:"status"`
	Time                    time.Time `json:"time"`
	ConsecutiveFailedCycles int       `json:"consecutive_failed_cycles"`
	LastSuccessAt           time.Time `json:"last_success_at"`
	LastError               string    `json:"last_error,omitempty"`
}

type StatsResponse struct {
	Cities []string          `json:"cities"`
	Stats  application.Stats `json:"stats"`
}

type StatusHandler struct {
	provider       StatsProvider
	unhealthyAfter int
	logger         logger.Logger
}

// NewStatusHandler reports unhealthy once unhealthyAfter cycles in a row
// have written nothing. Zero disables that check.
func NewStatusHandler(provider StatsProvider, unhealthyAfter int, log logger.Logger) *StatusHandler {
	return &StatusHandler{
		provider:       provider,
		unhealthyAfter: unhealthyAfter,
		logger:         log.WithField("component", "status_handler"),
	}
}

func (h *StatusHandler) HealthCheck(c *gin.Context) {
	stats := h.provider.Stats()

	resp := HealthResponse{
		Status:                  "ok",
		Time:                    time.Now(),
		ConsecutiveFailedCycles: stats.ConsecutiveFailedCycles,
		LastSuccessAt:           stats.LastSuccessAt,
		LastError:               stats.LastError,
	}

	if h.unhealthyAfter > 0 && stats.ConsecutiveFailedCycles >= h.unhealthyAfter {
		resp.Status = "unhealthy"
		h.logger.Warnf("Reporting unhealthy after %d failed cycles", stats.ConsecutiveFailedCycles)
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *StatusHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Cities: h.provider.Cities(),
		Stats:  h.provider.Stats(),
	})
}
