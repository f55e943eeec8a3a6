// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"context"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/CrawX/go-newsletter-assassin/mail"
	"github.com/CrawX/go-newsletter-assassin/signals"

	"github.com/sirupsen/logrus"
)

const (
	RuleConfidence    = 0.7
	ModelConfidence   = 0.9
	UnclearConfidence = 0.3

	minMediumSignals = 2
)

// Decide applies the rule policy: any exclusion vetoes, any strong signal is sufficient, otherwise at
// least two medium signals are needed.
func Decide(signals domain.SignalSet) bool {
	for _, excluded := range signals.Exclusions {
		if excluded {
			return false
		}
	}

	for _, strong := range signals.Strong {
		if strong {
			return true
		}
	}

	medium := 0
	for _, m := range signals.Medium {
		if m {
			medium++
		}
	}
	return medium >= minMediumSignals
}

type RuleClassifier struct {
	extractor *signals.Extractor

	l *logrus.Logger
}

func NewRuleClassifier(extractor *signals.Extractor) *RuleClassifier {
	return &RuleClassifier{
		extractor: extractor,
		l:         log.Logger(log.LOG_CLASSIFIER),
	}
}

func (rc *RuleClassifier) Classify(_ context.Context, record *domain.EmailRecord) *domain.ClassificationResult {
	isNewsletter := Decide(rc.extractor.Extract(record))

	if rc.l.IsLevelEnabled(logrus.TraceLevel) {
		rc.l.WithFields(logrus.Fields{
			"sender":       record.Sender,
			"subject":      mail.ShortSubject(record.Subject),
			"matches":      rc.extractor.Matches(record),
			"isNewsletter": isNewsletter,
		}).Trace("Classified by rules")
	}

	return &domain.ClassificationResult{
		IsNewsletter: isNewsletter,
		Confidence:   RuleConfidence,
		Method:       domain.MethodRules,
	}
}
