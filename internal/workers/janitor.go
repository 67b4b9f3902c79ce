package workers

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/quantrack/quantrack/internal/models"
)

// PurgeExpiredResets deletes password reset tokens that were used or have
// expired as of now
func PurgeExpiredResets(db *gorm.DB, now time.Time, logger zerolog.Logger) (int64, error) {
	result := db.Where("used_at IS NOT NULL OR expires_at < ?", now).Delete(&models.PasswordReset{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		logger.Info().Int64("deleted", result.RowsAffected).Msg("Purged password reset tokens")
	}
	return result.RowsAffected, nil
}

// StartJanitor runs PurgeExpiredResets on a cron schedule (standard five
// fields or a descriptor such as @hourly). Stop the returned scheduler on
// shutdown.
func StartJanitor(schedule string, db *gorm.DB, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		if _, err := PurgeExpiredResets(db, time.Now(), logger); err != nil {
			logger.Error().Err(err).Msg("Cleanup run failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Debug().Str("schedule", schedule).Msg("Cleanup scheduler started")
	return c, nil
}
