package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quantrack/quantrack/internal/models"
	"github.com/quantrack/quantrack/internal/sysinfo"
)

// SystemInfoResponse contains host metrics and record counts
type SystemInfoResponse struct {
	Version   string           `json:"version"`
	Host      sysinfo.Metrics  `json:"host"`
	MailQueue bool             `json:"mail_queue"`
	Counts    map[string]int64 `json:"counts"`
}

// getSystemInfo reports how the dev server is running
func (s *Server) getSystemInfo(c *gin.Context) {
	metrics, err := sysinfo.GetMetrics(s.config.DevServer.DatabaseURL)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Host metrics incomplete")
	}

	tables := map[string]any{
		"users":          &models.User{},
		"organizations":  &models.Organization{},
		"events":         &models.Event{},
		"participations": &models.Participation{},
	}

	counts := make(map[string]int64, len(tables))
	for name, model := range tables {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			s.internalError(c, err, "Failed to count records")
			return
		}
		counts[name] = n
	}

	c.JSON(http.StatusOK, SystemInfoResponse{
		Version:   s.version,
		Host:      metrics,
		MailQueue: s.queue != nil,
		Counts:    counts,
	})
}
