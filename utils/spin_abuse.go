package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"spinledger/config"
)

func spinKey(parts ...string) string {
	out := "spin"
	for _, p := range parts {
		out += ":" + p
	}
	return out
}

// SpinCooldownTry enforces a short per-identity cooldown between spin
// attempts, damping double-clicks and retry storms before they reach the
// database. The atomic ledger write stays the real guard; this is cheap
// front-line filtering. Fails open on Redis trouble.
func SpinCooldownTry(identityKey string) bool {
	cfg := config.Get()
	sec := cfg.SpinCooldownSec
	if sec <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := spinKey("cooldown", identityKey)
	ok, err := cli.SetNX(ctx, key, "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// SpinDailyLimitCheck allows up to N spin attempts per day per IP.
func SpinDailyLimitCheck(ip string) bool {
	cfg := config.Get()
	limit := cfg.SpinMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := spinKey("ipday", ip, time.Now().Format("20060102"))
	n, err := cli.Get(ctx, key).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true
	}
	return n < limit
}

// SpinDailyIncrement increments the per-IP attempt counter for today.
func SpinDailyIncrement(ip string) {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := spinKey("ipday", ip, time.Now().Format("20060102"))
	if err := cli.Incr(ctx, key).Err(); err == nil {
		ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
		_ = cli.Expire(ctx, key, ttl).Err()
	}
}
