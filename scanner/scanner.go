// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/CrawX/go-newsletter-assassin/mail"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scanner walks the candidates of a source and collects the newsletters among them. The classifier
// may carry session state (see classifier.HybridClassifier), so a Scanner should not run two scans at
// the same time.
type Scanner struct {
	source     domain.CandidateSource
	extractor  domain.RecordExtractor
	classifier domain.Classifier
	rules      domain.Classifier

	configuration *configuration

	l *logrus.Logger
}

func NewScanner(source domain.CandidateSource, extractor domain.RecordExtractor, classifier, rules domain.Classifier, configFunc ...ConfigFunc) (*Scanner, error) {
	config := defaultConfiguration()
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Scanner{
		source:        source,
		extractor:     extractor,
		classifier:    classifier,
		rules:         rules,
		configuration: config,
		l:             log.Logger(log.LOG_SCANNER),
	}, nil
}

// Scan classifies all candidates batch by batch, one at a time, and reports progress to sink after
// every extracted record. When ctx is cancelled the aggregates collected so far are returned together
// with the context error.
func (s *Scanner) Scan(ctx context.Context, sink domain.ProgressSink) ([]*domain.SenderAggregate, error) {
	l := s.l.WithField("scan", uuid.New().String())
	if sink == nil {
		sink = SinkFunc(func(domain.ScanProgress) {})
	}

	start := time.Now()
	candidates, err := s.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate candidates: %w", err)
	}
	candidates = limitCandidates(candidates, s.configuration.MaxCandidates)

	total := len(candidates)
	batches := partitionCandidates(candidates, s.configuration.BatchSize)
	l.WithFields(logrus.Fields{"candidates": total, "batches": len(batches), "duration": time.Since(start)}).Info("Found candidates to scan")

	results := newAggregation(s.configuration.GroupBySender)
	processed := 0
	for i, batch := range batches {
		if i > 0 {
			err = pause(ctx, s.configuration.BatchPause)
		} else {
			err = ctx.Err()
		}
		if err != nil {
			l.WithFields(logrus.Fields{"processed": processed, "total": total, "found": results.len()}).Warn("Scan cancelled")
			return results.aggregates(), fmt.Errorf("scan cancelled: %w", err)
		}

		batchStart := time.Now()
		for _, candidate := range batch {
			processed++

			record := s.extractor.ExtractRecord(candidate)
			if record == nil {
				l.WithField("candidate", candidate.Source).Debug("Could not extract record, skipping")
				continue
			}

			result := s.classifier.Classify(ctx, record)
			l.WithFields(logrus.Fields{
				"sender":       record.Sender,
				"subject":      mail.ShortSubject(record.Subject),
				"isNewsletter": result.IsNewsletter,
				"method":       result.Method,
			}).Debug("Classified mail")
			if result.IsNewsletter {
				results.add(s.aggregationKey(record), candidate, record, result, s.extractor)
			}

			sink.Progress(domain.ScanProgress{
				Processed:     processed,
				Total:         total,
				FoundCount:    results.len(),
				StatusMessage: statusMessage(processed, total, results.len()),
			})
		}
		l.WithFields(logrus.Fields{"batch": i + 1, "batchsize": len(batch), "duration": time.Since(batchStart)}).Debug("Scanned batch")
	}

	l.WithFields(logrus.Fields{"total": total, "found": results.len(), "duration": time.Since(start)}).Info("Scan finished")
	return results.aggregates(), nil
}

// QuickScan classifies the candidates with the rules only, without batching or progress, and groups
// the newsletters by sender.
func (s *Scanner) QuickScan(ctx context.Context) ([]*domain.SenderAggregate, error) {
	l := s.l.WithField("scan", uuid.New().String())
	if s.rules == nil {
		return nil, fmt.Errorf("quick scan needs a rule classifier")
	}

	candidates, err := s.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate candidates: %w", err)
	}
	max := s.configuration.MaxCandidates
	if max == 0 {
		max = DefaultQuickScanSize
	}
	candidates = limitCandidates(candidates, max)

	results := newAggregation(true)
	for _, candidate := range candidates {
		record := s.extractor.ExtractRecord(candidate)
		if record == nil {
			continue
		}

		result := s.rules.Classify(ctx, record)
		if result.IsNewsletter {
			results.add(record.SenderKey(), candidate, record, result, s.extractor)
		}
	}

	l.WithFields(logrus.Fields{"total": len(candidates), "found": results.len()}).Info("Quick scan finished")
	return results.aggregates(), nil
}

func (s *Scanner) aggregationKey(record *domain.EmailRecord) string {
	if s.configuration.GroupBySender {
		return record.SenderKey()
	}
	return record.DedupKey()
}

func statusMessage(processed, total, found int) string {
	return fmt.Sprintf("Analyzed %d of %d emails, found %d newsletters", processed, total, found)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// limitCandidates keeps the first max candidates in source order.
func limitCandidates(candidates []*domain.Candidate, max int) []*domain.Candidate {
	if max > 0 && len(candidates) > max {
		return candidates[:max]
	}
	return candidates
}

// taken from https://github.com/golang/go/wiki/SliceTricks
func partitionCandidates(candidates []*domain.Candidate, partitionSize int) [][]*domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	batches := make([][]*domain.Candidate, 0, (len(candidates)+partitionSize-1)/partitionSize)

	for partitionSize < len(candidates) {
		candidates, batches = candidates[partitionSize:], append(batches, candidates[0:partitionSize:partitionSize])
	}
	batches = append(batches, candidates)

	return batches
}
