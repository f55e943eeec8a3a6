// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/CrawX/go-newsletter-assassin/mail"

	"github.com/sirupsen/logrus"
)

const (
	DefaultModelTimeout = 2 * time.Second

	promptTemperature = 0.1
	promptNumPredict  = 10
)

// HybridClassifier prefers the model and falls back to the rules. The first failure of the model
// trips a latch that keeps the classifier on the rules for the rest of its lifetime, so one instance
// should be used per scan session. It is not safe for concurrent use.
type HybridClassifier struct {
	model domain.ModelClient
	rules *RuleClassifier

	probeTimeout     time.Duration
	inferenceTimeout time.Duration

	modelUnavailable bool

	l *logrus.Logger
}

func NewHybridClassifier(model domain.ModelClient, rules *RuleClassifier, probeTimeout, inferenceTimeout time.Duration) *HybridClassifier {
	if probeTimeout <= 0 {
		probeTimeout = DefaultModelTimeout
	}
	if inferenceTimeout <= 0 {
		inferenceTimeout = probeTimeout
	}

	return &HybridClassifier{
		model:            model,
		rules:            rules,
		probeTimeout:     probeTimeout,
		inferenceTimeout: inferenceTimeout,
		l:                log.Logger(log.LOG_CLASSIFIER),
	}
}

func (hc *HybridClassifier) ModelUnavailable() bool {
	return hc.modelUnavailable
}

func (hc *HybridClassifier) Classify(ctx context.Context, record *domain.EmailRecord) *domain.ClassificationResult {
	if hc.modelUnavailable {
		return hc.rules.Classify(ctx, record)
	}

	err := hc.probe(ctx)
	if err != nil {
		hc.markUnavailable(fmt.Errorf("model not reachable: %w", err))
		return hc.rules.Classify(ctx, record)
	}

	reply, err := hc.generate(ctx, record)
	if err != nil {
		hc.markUnavailable(fmt.Errorf("model classification failed: %w", err))
		return hc.rules.Classify(ctx, record)
	}

	result := ParseVerdict(reply)
	hc.l.WithFields(logrus.Fields{
		"sender":       record.Sender,
		"subject":      mail.ShortSubject(record.Subject),
		"method":       result.Method,
		"isNewsletter": result.IsNewsletter,
	}).Debug("Classified by model")

	return result
}

func (hc *HybridClassifier) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, hc.probeTimeout)
	defer cancel()

	return hc.model.Ping(probeCtx)
}

func (hc *HybridClassifier) generate(ctx context.Context, record *domain.EmailRecord) (string, error) {
	generateCtx, cancel := context.WithTimeout(ctx, hc.inferenceTimeout)
	defer cancel()

	return hc.model.Generate(generateCtx, &domain.GenerateRequest{
		Prompt:      Prompt(record),
		Temperature: promptTemperature,
		NumPredict:  promptNumPredict,
	})
}

func (hc *HybridClassifier) markUnavailable(err error) {
	hc.modelUnavailable = true
	hc.l.WithField("error", err).Warn("Model unavailable, using rules for the rest of the session")
}

// Prompt only carries sender and subject, the snippet is left out to keep the request small.
func Prompt(record *domain.EmailRecord) string {
	return fmt.Sprintf(
		"Classify this email as either \"newsletter\" or \"transactional\".\n"+
			"From: %s\n"+
			"Subject: %s\n"+
			"Answer with exactly one word: newsletter or transactional.",
		record.Sender,
		record.Subject,
	)
}

func ParseVerdict(reply string) *domain.ClassificationResult {
	lower := strings.ToLower(reply)
	switch {
	case strings.Contains(lower, "newsletter"):
		return &domain.ClassificationResult{IsNewsletter: true, Confidence: ModelConfidence, Method: domain.MethodModel}
	case strings.Contains(lower, "transactional"):
		return &domain.ClassificationResult{IsNewsletter: false, Confidence: ModelConfidence, Method: domain.MethodModel}
	default:
		return &domain.ClassificationResult{IsNewsletter: false, Confidence: UnclearConfidence, Method: domain.MethodModelUnclear}
	}
}
