// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	StatsKey = "newsletter-assassin:stats"

	fieldDetected     = "newsletters_detected"
	fieldUnsubscribed = "unsubscribed"
	fieldLastScan     = "last_scan"
)

// RedisStats keeps the counters in a redis hash, for setups that share them between machines.
type RedisStats struct {
	client *redis.Client
	key    string
	l      *logrus.Logger
}

func NewRedisStats(addr, password string, db int) (*RedisStats, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	err := client.Ping(context.TODO()).Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not ping redis: %w", err)
	}

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("addr", addr).Info("Connected")

	return &RedisStats{
		client: client,
		key:    StatsKey,
		l:      l,
	}, nil
}

func (rs *RedisStats) Close() error {
	err := rs.client.Close()
	if err != nil {
		return fmt.Errorf("could not close redis: %w", err)
	}
	rs.l.Info("Disconnected")
	return nil
}

func (rs *RedisStats) GetStats() (*domain.Stats, error) {
	values, err := rs.client.HGetAll(context.TODO(), rs.key).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read stats: %w", err)
	}

	return parseStatsHash(values)
}

// UpdateStats merges inside a WATCH transaction so concurrent writers do not lose updates.
func (rs *RedisStats) UpdateStats(update domain.StatsUpdate) (*domain.Stats, error) {
	ctx := context.TODO()
	var merged *domain.Stats

	err := rs.client.Watch(ctx, func(tx *redis.Tx) error {
		values, err := tx.HGetAll(ctx, rs.key).Result()
		if err != nil {
			return fmt.Errorf("could not read stats: %w", err)
		}
		current, err := parseStatsHash(values)
		if err != nil {
			return err
		}

		merged = merge(current, update)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rs.key, statsHash(merged))
			return nil
		})
		return err
	}, rs.key)
	if err != nil {
		return nil, fmt.Errorf("could not update stats: %w", err)
	}

	rs.l.WithFields(logrus.Fields{"detected": merged.NewslettersDetected, "unsubscribed": merged.Unsubscribed}).Debug("Persisted stats")
	return merged, nil
}

func parseStatsHash(values map[string]string) (*domain.Stats, error) {
	stats := &domain.Stats{}
	var err error

	if v, ok := values[fieldDetected]; ok {
		stats.NewslettersDetected, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldDetected, err)
		}
	}
	if v, ok := values[fieldUnsubscribed]; ok {
		stats.Unsubscribed, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldUnsubscribed, err)
		}
	}
	if v, ok := values[fieldLastScan]; ok && len(v) > 0 {
		lastScan, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldLastScan, err)
		}
		lastScan = lastScan.UTC()
		stats.LastScan = &lastScan
	}

	return stats, nil
}

func statsHash(stats *domain.Stats) map[string]interface{} {
	lastScan := ""
	if stats.LastScan != nil {
		lastScan = stats.LastScan.UTC().Format(time.RFC3339)
	}
	return map[string]interface{}{
		fieldDetected:     stats.NewslettersDetected,
		fieldUnsubscribed: stats.Unsubscribed,
		fieldLastScan:     lastScan,
	}
}
