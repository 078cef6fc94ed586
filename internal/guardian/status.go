package guardian

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/sentra-safety/sentra-platform/internal/sos"
	"github.com/sentra-safety/sentra-platform/pkg/redis"
)

// TTL for countdown status mirrors; a stale mirror is useless long before this
const statusTTL = 24 * time.Hour

// StatusMirror keeps a device's live countdown state in Redis so observers
// can show remaining time without talking to the guardian directly
type StatusMirror struct {
	redis  redis.Client
	logger *slog.Logger
}

// NewStatusMirror creates a new status mirror
func NewStatusMirror(redisClient redis.Client, logger *slog.Logger) *StatusMirror {
	return &StatusMirror{
		redis:  redisClient,
		logger: logger,
	}
}

// MirrorCountdown writes the current SOS countdown state for a device
func (m *StatusMirror) MirrorCountdown(ctx context.Context, deviceID string, c *sos.Countdown) {
	key := redis.SosStatusKey(deviceID)
	m.write(ctx, key, c.Phase().String(), c.Remaining(), c.Total())
}

// MirrorCheckIn writes the current check-in timer state for a device
func (m *StatusMirror) MirrorCheckIn(ctx context.Context, deviceID string, c *sos.CheckIn) {
	key := redis.CheckInStatusKey(deviceID)
	m.write(ctx, key, c.Phase().String(), c.Remaining(), c.Total())
}

func (m *StatusMirror) write(ctx context.Context, key, phase string, remaining, total int) {
	fields := map[string]string{
		"phase":     phase,
		"remaining": strconv.Itoa(remaining),
		"total":     strconv.Itoa(total),
		"updatedAt": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}

	for field, value := range fields {
		if err := m.redis.HSet(ctx, key, field, value); err != nil {
			m.logger.Warn("Failed to mirror countdown status", "key", key, "field", field, "error", err)
			return
		}
	}

	if err := m.redis.Expire(ctx, key, statusTTL); err != nil {
		m.logger.Warn("Failed to set TTL on countdown status", "key", key, "error", err)
	}
}
