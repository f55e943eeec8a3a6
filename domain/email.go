// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "context"

//go:generate mockgen -destination=mocks/email.go -package=mocks . CandidateSource,RecordExtractor

// EmailRecord is the normalized view of a single mail the classifiers work on. Empty strings mean
// the value is absent.
type EmailRecord struct {
	Sender          string
	Subject         string
	Snippet         string
	UnsubscribeLink string
	ThreadId        string
}

// DedupKey identifies the record for deduplication: the thread id if known, sender+subject otherwise.
func (r *EmailRecord) DedupKey() string {
	if len(r.ThreadId) > 0 {
		return r.ThreadId
	}
	return r.Sender + r.Subject
}

func (r *EmailRecord) SenderKey() string {
	return r.Sender
}

// Candidate is a raw element handed out by a CandidateSource. Source is only used for logging.
type Candidate struct {
	Source  string
	RawMail []byte
}

type CandidateSource interface {
	Candidates(ctx context.Context) ([]*Candidate, error)
}

// RecordExtractor turns candidates into records. ExtractRecord returns nil for candidates that do not
// yield a usable record, FindUnsubscribeLink returns an empty string if there is no link.
type RecordExtractor interface {
	ExtractRecord(candidate *Candidate) *EmailRecord
	FindUnsubscribeLink(candidate *Candidate) string
}
