// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/CrawX/go-newsletter-assassin/classifier"
	"github.com/CrawX/go-newsletter-assassin/classifier/ollama"
	"github.com/CrawX/go-newsletter-assassin/config"
	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/emlfolder"
	"github.com/CrawX/go-newsletter-assassin/imapconnection"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/CrawX/go-newsletter-assassin/mail"
	"github.com/CrawX/go-newsletter-assassin/persistence"
	"github.com/CrawX/go-newsletter-assassin/retry"
	"github.com/CrawX/go-newsletter-assassin/scanner"
	"github.com/CrawX/go-newsletter-assassin/signals"

	"github.com/sirupsen/logrus"
)

const (
	waitForModelAttempts = 15
	waitForModelInterval = 2 * time.Second
)

func main() {
	log.InitLogging("debug")
	logger := log.Logger(log.LOG_MAIN)

	conf, err := config.ReadConfig("config.toml")
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var stats domain.StatsStore
	if len(conf.Redis) > 0 {
		stats, err = persistence.NewRedisStats(conf.Redis, conf.RedisPassword, conf.RedisDB)
	} else {
		stats, err = persistence.NewPersistence(conf.Database)
	}
	if err != nil {
		logger.WithField("error", err).Fatal("Could not connect to stats store")
	}
	defer stats.Close()

	policy := signals.DefaultPolicy()
	if len(conf.PolicyFile) > 0 {
		policy, err = signals.LoadPolicyFile(conf.PolicyFile)
		if err != nil {
			logger.WithField("error", err).Fatal("Could not load policy")
		}
	}
	extractor, err := signals.NewExtractor(policy)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not compile policy")
	}
	logger.WithField("policy", extractor.Version()).Info("Loaded policy")

	var source domain.CandidateSource
	switch conf.Source {
	case config.SourceFolder:
		source = emlfolder.NewFolder(conf.MailFolder, conf.MaxCandidates)
	default:
		imapConn, err := imapconnection.NewImapConnection(ctx, conf.ImapHost, conf.User, conf.Password, conf.Folders, conf.MaxCandidates)
		if err != nil {
			logger.WithField("error", err).Fatal("Could not start imap connector")
		}
		defer imapConn.Close()
		source = imapConn
	}

	rules := classifier.NewRuleClassifier(extractor)
	var cl domain.Classifier = rules
	if conf.UseModel && !conf.Quick {
		model := ollama.NewOllama(conf.ModelHost, conf.ModelName)
		if conf.WaitForModel {
			waitForModel(ctx, logger, model, conf.ModelTimeout.Duration)
		}
		cl = classifier.NewHybridClassifier(model, rules, conf.ModelTimeout.Duration, conf.ModelTimeout.Duration)
	}

	configs := []scanner.ConfigFunc{
		scanner.BatchSize(conf.BatchSize),
		scanner.BatchPause(conf.BatchPause.Duration),
		scanner.MaxCandidates(conf.MaxCandidates),
	}
	if conf.GroupBySender {
		configs = append(configs, scanner.GroupBySender())
	}

	sc, err := scanner.NewScanner(source, mail.Extractor{}, cl, rules, configs...)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start scanner")
	}

	var aggregates []*domain.SenderAggregate
	if conf.Quick {
		logger.Info("Running quick scan with rules only")
		aggregates, err = sc.QuickScan(ctx)
	} else {
		logger.WithFields(logrus.Fields{"source": conf.Source, "batchsize": conf.BatchSize, "model": conf.UseModel}).Info("Scanning for newsletters")
		aggregates, err = sc.Scan(ctx, scanner.NewLogSink())
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.WithField("error", err).Fatal("Scan failed")
		}
		logger.WithField("found", len(aggregates)).Warn("Scan interrupted, keeping partial results")
	}

	for _, a := range aggregates {
		logger.WithFields(logrus.Fields{
			"count":      a.Count,
			"subject":    mail.ShortSubject(a.Subject),
			"method":     a.Method,
			"confidence": a.Confidence,
			"link":       a.UnsubscribeLink,
		}).Info(a.Sender)
	}

	detected := len(aggregates)
	now := time.Now()
	current, err := stats.UpdateStats(domain.StatsUpdate{NewslettersDetected: &detected, LastScan: &now})
	if err != nil {
		logger.WithField("error", err).Fatal("Could not update stats")
	}

	if conf.Unsubscribe {
		if conf.DryRun {
			logger.Warn("Skipping unsubscribe due to dry-run")
		} else {
			results, err := scanner.Unsubscribe(ctx, aggregates, stats)
			if err != nil {
				logger.WithField("error", err).Fatal("Unsubscribing failed")
			}
			logger.WithField("senders", len(results)).Info("Processed unsubscribe requests")

			current, err = stats.GetStats()
			if err != nil {
				logger.WithField("error", err).Fatal("Could not read stats")
			}
		}
	}

	logger.WithFields(logrus.Fields{"detected": current.NewslettersDetected, "unsubscribed": current.Unsubscribed}).Info("Done")
}

// waitForModel gives a model server that is still starting some time to come up. The scan continues
// with the rules if it never does.
func waitForModel(ctx context.Context, logger *logrus.Logger, model domain.ModelClient, timeout time.Duration) {
	err := retry.Do(ctx, waitForModelAttempts, waitForModelInterval, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := model.Ping(pingCtx)
		if err != nil {
			logger.WithField("error", err).Debug("Model not ready yet")
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		logger.WithField("error", err).Warn("Model did not become ready")
		return
	}
	logger.Info("Model is ready")
}
