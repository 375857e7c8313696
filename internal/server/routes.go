package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/spi2wb/internal/auth"
	"github.com/danmuck/spi2wb/internal/bench"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

// ScenarioInfo is the listing form of a scenario.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Mode        string `json:"mode"`
	Steps       int    `json:"steps"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.Name,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/scenarios", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"scenarios": s.Scenarios()})
	})

	s.router.GET("/scenarios/:name/report", func(c *gin.Context) {
		rep, ok := s.LastReport(c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no report for scenario"})
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	s.router.POST("/scenarios/:name/run", auth.Require(s.guard), func(c *gin.Context) {
		name := c.Param("name")
		rep, err := s.Run(c.Request.Context(), name)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, bench.ErrUnknownScenario):
				status = http.StatusNotFound
			case errors.Is(err, ErrBusy):
				status = http.StatusConflict
			}
			s.logger.Error().Str("scenario", name).Err(err).Msg("scenario run failed")
			c.JSON(status, gin.H{"error": err.Error(), "report": rep})
			return
		}
		c.JSON(http.StatusOK, rep)
	})
}

func (s *Server) Scenarios() []ScenarioInfo {
	suite := s.runner.Suite()
	out := make([]ScenarioInfo, 0, len(suite.Scenarios))
	for _, sc := range suite.Scenarios {
		info := ScenarioInfo{Name: sc.Name, Description: sc.Description, Steps: len(sc.Steps)}
		if settings, err := suite.Settings(sc); err == nil {
			info.Mode = settings.Mode.String()
		}
		out = append(out, info)
	}
	return out
}
