// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"context"
	"fmt"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"

	"github.com/sirupsen/logrus"
)

const (
	UnsubscribedMessage = "Unsubscribe processed (placeholder)"
	NoLinkMessage       = "No unsubscribe link found"
)

type UnsubscribeResult struct {
	Sender  string
	Link    string
	Success bool
	Message string
}

// Unsubscribe does not contact anyone yet. It reports every aggregate with a link as unsubscribed and
// adds them to the Unsubscribed counter of store.
func Unsubscribe(ctx context.Context, aggregates []*domain.SenderAggregate, store domain.StatsStore) ([]*UnsubscribeResult, error) {
	l := log.Logger(log.LOG_SCANNER)

	results := make([]*UnsubscribeResult, 0, len(aggregates))
	unsubscribed := 0
	for _, a := range aggregates {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if len(a.UnsubscribeLink) == 0 {
			l.WithField("sender", a.Sender).Info("No unsubscribe link, skipping")
			results = append(results, &UnsubscribeResult{Sender: a.Sender, Message: NoLinkMessage})
			continue
		}

		l.WithFields(logrus.Fields{"sender": a.Sender, "link": a.UnsubscribeLink, "count": a.Count}).Info("Unsubscribing")
		results = append(results, &UnsubscribeResult{
			Sender:  a.Sender,
			Link:    a.UnsubscribeLink,
			Success: true,
			Message: UnsubscribedMessage,
		})
		unsubscribed++
	}

	if unsubscribed == 0 {
		return results, nil
	}

	stats, err := store.GetStats()
	if err != nil {
		return results, fmt.Errorf("could not read stats: %w", err)
	}
	total := stats.Unsubscribed + unsubscribed
	_, err = store.UpdateStats(domain.StatsUpdate{Unsubscribed: &total})
	if err != nil {
		return results, fmt.Errorf("could not update stats: %w", err)
	}

	return results, nil
}
