// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import "github.com/CrawX/go-newsletter-assassin/domain"

// aggregation is an insertion-ordered map of aggregates.
type aggregation struct {
	bySender bool

	keys  []string
	byKey map[string]*domain.SenderAggregate
}

func newAggregation(bySender bool) *aggregation {
	return &aggregation{
		bySender: bySender,
		byKey:    map[string]*domain.SenderAggregate{},
	}
}

func (a *aggregation) add(key string, candidate *domain.Candidate, record *domain.EmailRecord, result *domain.ClassificationResult, extractor domain.RecordExtractor) {
	aggregate, ok := a.byKey[key]
	if ok {
		aggregate.Count++
		if len(aggregate.UnsubscribeLink) == 0 {
			aggregate.UnsubscribeLink = extractor.FindUnsubscribeLink(candidate)
		}
		return
	}

	a.keys = append(a.keys, key)
	a.byKey[key] = &domain.SenderAggregate{
		Sender:          record.Sender,
		Subject:         record.Subject,
		Count:           1,
		UnsubscribeLink: extractor.FindUnsubscribeLink(candidate),
		Confidence:      result.Confidence,
		Method:          result.Method,
	}
}

func (a *aggregation) len() int {
	return len(a.keys)
}

func (a *aggregation) aggregates() []*domain.SenderAggregate {
	aggregates := make([]*domain.SenderAggregate, 0, len(a.keys))
	for _, key := range a.keys {
		aggregates = append(aggregates, a.byKey[key])
	}
	return aggregates
}
