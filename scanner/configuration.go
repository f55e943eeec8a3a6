// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"fmt"
	"time"
)

const (
	DefaultBatchSize     = 5
	DefaultBatchPause    = 200 * time.Millisecond
	DefaultQuickScanSize = 50
)

type ConfigFunc func(c *configuration) error

func BatchSize(size int) ConfigFunc {
	return func(c *configuration) error {
		if size <= 0 {
			return fmt.Errorf("BatchSize must be positive, got %d", size)
		}

		c.BatchSize = size
		return nil
	}
}

// BatchPause sets the pause between two batches, zero disables it.
func BatchPause(pause time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if pause < 0 {
			return fmt.Errorf("BatchPause cannot be negative, got %s", pause)
		}

		c.BatchPause = pause
		return nil
	}
}

func GroupBySender() ConfigFunc {
	return func(c *configuration) error {
		c.GroupBySender = true
		return nil
	}
}

// MaxCandidates limits how many candidates a scan looks at, zero means no limit for a full scan and
// DefaultQuickScanSize for a quick scan.
func MaxCandidates(max int) ConfigFunc {
	return func(c *configuration) error {
		if max < 0 {
			return fmt.Errorf("MaxCandidates cannot be negative, got %d", max)
		}

		c.MaxCandidates = max
		return nil
	}
}

type configuration struct {
	BatchSize  int
	BatchPause time.Duration

	GroupBySender bool
	MaxCandidates int
}

func defaultConfiguration() *configuration {
	return &configuration{
		BatchSize:  DefaultBatchSize,
		BatchPause: DefaultBatchPause,
	}
}
