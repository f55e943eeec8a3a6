// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

//go:generate mockgen -destination=mocks/stats.go -package=mocks . StatsStore

type Stats struct {
	NewslettersDetected int
	Unsubscribed        int
	LastScan            *time.Time
}

// StatsUpdate is merged into the stored Stats, nil fields keep their current value.
type StatsUpdate struct {
	NewslettersDetected *int
	Unsubscribed        *int
	LastScan            *time.Time
}

type StatsStore interface {
	GetStats() (*Stats, error)
	UpdateStats(update StatsUpdate) (*Stats, error)
	Close() error
}
