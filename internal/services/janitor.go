package services

import (
	"fmt"

	"github.com/google/logger"
	"github.com/robfig/cron/v3"
)

// StartJanitor runs CleanUpInactiveSessions on schedule (a cron spec such as
// "@every 1m"). Stop the returned cron to end it.
func (s *SpinService) StartJanitor(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		expired, removed := s.CleanUpInactiveSessions()
		if expired > 0 || removed > 0 {
			logger.Infof("Session cleanup: %d expired, %d removed, %d live", expired, removed, s.SessionCount())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
