// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"

	"github.com/sirupsen/logrus"
)

type SinkFunc func(progress domain.ScanProgress)

func (f SinkFunc) Progress(progress domain.ScanProgress) {
	f(progress)
}

// LogSink writes every snapshot to the scanner log.
type LogSink struct {
	l *logrus.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{l: log.Logger(log.LOG_SCANNER)}
}

func (ls *LogSink) Progress(progress domain.ScanProgress) {
	ls.l.WithFields(logrus.Fields{
		"processed": progress.Processed,
		"total":     progress.Total,
		"found":     progress.FoundCount,
	}).Info(progress.StatusMessage)
}

// ChannelSink hands snapshots to a consumer. Snapshots are dropped while the channel is full so a
// slow consumer never stalls a scan.
type ChannelSink chan domain.ScanProgress

func NewChannelSink(buffer int) ChannelSink {
	return make(ChannelSink, buffer)
}

func (cs ChannelSink) Progress(progress domain.ScanProgress) {
	select {
	case cs <- progress:
	default:
	}
}
