package cooldown

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval matches how often the bot used to clean its caches.
const DefaultSweepInterval = time.Hour

// RunSweeper removes expired cooldowns every interval until ctx is done.
// Run it as a housekeeping job from main or the app lifecycle.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				t.logger.Debug("Swept expired cooldowns", zap.Int("removed", n), zap.Int("left", t.Len()))
			}
		}
	}
}
