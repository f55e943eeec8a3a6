// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i(val int) *int {
	return &val
}

func newTestPersistence(t *testing.T) *Persistence {
	log.InitLogging("error")
	log.Discard()

	p, err := NewPersistence(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPersistence_DefaultStats(t *testing.T) {
	p := newTestPersistence(t)

	stats, err := p.GetStats()
	assert.NoError(t, err)
	assert.Equal(t, &domain.Stats{}, stats)
}

func TestPersistence_UpdateStatsMerges(t *testing.T) {
	p := newTestPersistence(t)
	lastScan := time.Date(2025, 6, 2, 8, 30, 15, 0, time.UTC)

	stats, err := p.UpdateStats(domain.StatsUpdate{NewslettersDetected: i(12), LastScan: &lastScan})
	assert.NoError(t, err)
	assert.Equal(t, &domain.Stats{NewslettersDetected: 12, LastScan: &lastScan}, stats)

	stats, err = p.UpdateStats(domain.StatsUpdate{Unsubscribed: i(3)})
	assert.NoError(t, err)
	assert.Equal(t, &domain.Stats{NewslettersDetected: 12, Unsubscribed: 3, LastScan: &lastScan}, stats)

	stats, err = p.GetStats()
	assert.NoError(t, err)
	assert.Equal(t, 12, stats.NewslettersDetected)
	assert.Equal(t, 3, stats.Unsubscribed)
	require.NotNil(t, stats.LastScan)
	assert.True(t, lastScan.Equal(*stats.LastScan))
}

func TestPersistence_ReopenKeepsStats(t *testing.T) {
	log.InitLogging("error")
	log.Discard()
	db := filepath.Join(t.TempDir(), "test.db")

	p, err := NewPersistence(db)
	require.NoError(t, err)
	_, err = p.UpdateStats(domain.StatsUpdate{Unsubscribed: i(7)})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	p, err = NewPersistence(db)
	require.NoError(t, err)
	defer p.Close()

	stats, err := p.GetStats()
	assert.NoError(t, err)
	assert.Equal(t, 7, stats.Unsubscribed)
}

func TestMerge(t *testing.T) {
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 2, 10, 0, 0, 500, time.FixedZone("CEST", 2*60*60))
	current := &domain.Stats{NewslettersDetected: 1, Unsubscribed: 2, LastScan: &old}

	merged := merge(current, domain.StatsUpdate{LastScan: &now})

	assert.Equal(t, 1, merged.NewslettersDetected)
	assert.Equal(t, 2, merged.Unsubscribed)
	assert.Equal(t, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), *merged.LastScan)
	assert.Equal(t, old, *current.LastScan, "current stats must not be modified")
}
