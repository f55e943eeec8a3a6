// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_stats",
			Up: []string{
				`CREATE TABLE stats (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					newsletters_detected INTEGER NOT NULL DEFAULT 0,
					unsubscribed INTEGER NOT NULL DEFAULT 0,
					last_scan DATETIME NULL
				)`,
				`INSERT INTO stats (id) VALUES (1)`,
			},
			Down: []string{`DROP TABLE stats`},
		},
	},
}

type Persistence struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewPersistence(datasource string) (*Persistence, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db: db,
		l:  l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

type dbStats struct {
	NewslettersDetected int          `db:"newsletters_detected"`
	Unsubscribed        int          `db:"unsubscribed"`
	LastScan            sql.NullTime `db:"last_scan"`
}

func (s *dbStats) toDomain() *domain.Stats {
	stats := &domain.Stats{
		NewslettersDetected: s.NewslettersDetected,
		Unsubscribed:        s.Unsubscribed,
	}
	if s.LastScan.Valid {
		lastScan := s.LastScan.Time.UTC()
		stats.LastScan = &lastScan
	}
	return stats
}

func (p *Persistence) GetStats() (*domain.Stats, error) {
	stats := &dbStats{}
	err := p.db.Get(stats, `SELECT newsletters_detected, unsubscribed, last_scan FROM stats WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return stats.toDomain(), nil
}

// UpdateStats merges the non-nil fields of update into the stored stats and returns the result.
func (p *Persistence) UpdateStats(update domain.StatsUpdate) (*domain.Stats, error) {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	current := &dbStats{}
	err = tx.Get(current, `SELECT newsletters_detected, unsubscribed, last_scan FROM stats WHERE id = 1`)
	if err != nil {
		return nil, txEnd(tx, fmt.Errorf("could not query db: %w", err))
	}

	merged := merge(current.toDomain(), update)

	var lastScan interface{}
	if merged.LastScan != nil {
		lastScan = merged.LastScan.UTC()
	}
	_, err = tx.Exec(
		`UPDATE stats SET newsletters_detected = ?, unsubscribed = ?, last_scan = ? WHERE id = 1`,
		merged.NewslettersDetected, merged.Unsubscribed, lastScan,
	)
	if err != nil {
		return nil, txEnd(tx, fmt.Errorf("could not update stats: %w", err))
	}

	err = txEnd(tx, nil)
	if err != nil {
		return nil, err
	}

	p.l.WithFields(logrus.Fields{"detected": merged.NewslettersDetected, "unsubscribed": merged.Unsubscribed}).Debug("Persisted stats")
	return merged, nil
}

func merge(current *domain.Stats, update domain.StatsUpdate) *domain.Stats {
	merged := *current
	if update.NewslettersDetected != nil {
		merged.NewslettersDetected = *update.NewslettersDetected
	}
	if update.Unsubscribed != nil {
		merged.Unsubscribed = *update.Unsubscribed
	}
	if update.LastScan != nil {
		lastScan := update.LastScan.UTC().Truncate(time.Second)
		merged.LastScan = &lastScan
	}
	return &merged
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
