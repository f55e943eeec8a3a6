// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/scan.go -package=mocks . ProgressSink

type SenderAggregate struct {
	Sender          string
	Subject         string
	Count           int
	UnsubscribeLink string
	Confidence      float64
	Method          Method
}

type ScanProgress struct {
	Processed     int
	Total         int
	FoundCount    int
	StatusMessage string
}

// ProgressSink receives snapshots while a scan runs. Delivery is fire-and-forget.
type ProgressSink interface {
	Progress(progress ScanProgress)
}
