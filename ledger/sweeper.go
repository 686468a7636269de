package ledger

import "time"

// StartRetentionSweeper launches a background goroutine that periodically
// applies the spin record retention policy. Best-effort: a spin request
// never waits on it, and failures only log.
func (s *Store) StartRetentionSweeper(retention, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			if err := s.CleanupOldRecords(retention); err != nil {
				s.log.Warnf("retention sweep failed: %v", err)
			}
		}
	}()
}
