// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/domain/mocks"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	newsletter     = &domain.ClassificationResult{IsNewsletter: true, Confidence: 0.9, Method: domain.MethodModel}
	noNewsletter   = &domain.ClassificationResult{IsNewsletter: false, Confidence: 0.9, Method: domain.MethodModel}
	ruleNewsletter = &domain.ClassificationResult{IsNewsletter: true, Confidence: 0.7, Method: domain.MethodRules}
)

type fixture struct {
	ctrl       *gomock.Controller
	source     *mocks.MockCandidateSource
	extractor  *mocks.MockRecordExtractor
	classifier *mocks.MockClassifier
	rules      *mocks.MockClassifier
}

func newFixture(t *testing.T) *fixture {
	log.InitLogging("error")
	log.Discard()

	ctrl := gomock.NewController(t)
	return &fixture{
		ctrl:       ctrl,
		source:     mocks.NewMockCandidateSource(ctrl),
		extractor:  mocks.NewMockRecordExtractor(ctrl),
		classifier: mocks.NewMockClassifier(ctrl),
		rules:      mocks.NewMockClassifier(ctrl),
	}
}

func (f *fixture) scanner(t *testing.T, cfgs ...ConfigFunc) *Scanner {
	s, err := NewScanner(f.source, f.extractor, f.classifier, f.rules, append([]ConfigFunc{BatchPause(0)}, cfgs...)...)
	require.NoError(t, err)
	return s
}

// withRecords makes the extractor return the record stored for a candidate, nil records are
// unextractable. Links are keyed by candidate source as well.
func (f *fixture) withRecords(records map[string]*domain.EmailRecord, links map[string]string) {
	f.extractor.EXPECT().
		ExtractRecord(gomock.Any()).
		DoAndReturn(func(c *domain.Candidate) *domain.EmailRecord { return records[c.Source] }).
		AnyTimes()
	f.extractor.EXPECT().
		FindUnsubscribeLink(gomock.Any()).
		DoAndReturn(func(c *domain.Candidate) string { return links[c.Source] }).
		AnyTimes()
}

func candidates(n int) []*domain.Candidate {
	c := make([]*domain.Candidate, n)
	for i := 0; i < n; i++ {
		c[i] = &domain.Candidate{Source: fmt.Sprintf("c%02d", i), RawMail: []byte{byte(i)}}
	}
	return c
}

func distinctRecords(n int) map[string]*domain.EmailRecord {
	records := map[string]*domain.EmailRecord{}
	for i := 0; i < n; i++ {
		records[fmt.Sprintf("c%02d", i)] = &domain.EmailRecord{
			Sender:   fmt.Sprintf("news%d@example.com", i),
			Subject:  "Weekly Digest",
			ThreadId: fmt.Sprintf("thread-%d", i),
		}
	}
	return records
}

func collect(snapshots *[]domain.ScanProgress) SinkFunc {
	return func(p domain.ScanProgress) {
		*snapshots = append(*snapshots, p)
	}
}

func TestNewScanner(t *testing.T) {
	log.InitLogging("error")
	tests := []struct {
		name string
		cfgs []ConfigFunc
		err  string
	}{
		{"ok", []ConfigFunc{}, ""},
		{"all options", []ConfigFunc{BatchSize(10), BatchPause(time.Second), GroupBySender(), MaxCandidates(20)}, ""},
		{"batch size", []ConfigFunc{BatchSize(0)}, "error applying configuration: BatchSize must be positive, got 0"},
		{"batch pause", []ConfigFunc{BatchPause(-time.Second)}, "error applying configuration: BatchPause cannot be negative, got -1s"},
		{"max candidates", []ConfigFunc{MaxCandidates(-1)}, "error applying configuration: MaxCandidates cannot be negative, got -1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewScanner(nil, nil, nil, nil, tc.cfgs...)
			if len(tc.err) == 0 {
				assert.NotNil(t, s)
				assert.NoError(t, err)
			} else {
				assert.Nil(t, s)
				assert.EqualError(t, err, tc.err)
			}
		})
	}
}

func TestNewScanner_Defaults(t *testing.T) {
	log.InitLogging("error")
	s, err := NewScanner(nil, nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, &configuration{BatchSize: 5, BatchPause: 200 * time.Millisecond}, s.configuration)
}

func TestScan_ProgressPerRecord(t *testing.T) {
	f := newFixture(t)
	f.withRecords(distinctRecords(12), nil)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(12), nil)
	f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(newsletter).Times(12)

	snapshots := []domain.ScanProgress{}
	aggregates, err := f.scanner(t).Scan(context.Background(), collect(&snapshots))

	assert.NoError(t, err)
	assert.Len(t, aggregates, 12)
	require.Len(t, snapshots, 12)
	for i, s := range snapshots {
		assert.Equal(t, i+1, s.Processed)
		assert.Equal(t, 12, s.Total)
		assert.Equal(t, i+1, s.FoundCount)
	}
	assert.Equal(t, "Analyzed 12 of 12 emails, found 12 newsletters", snapshots[11].StatusMessage)
}

func TestScan_Deduplicates(t *testing.T) {
	f := newFixture(t)
	records := map[string]*domain.EmailRecord{
		"c00": {Sender: "news@a.com", Subject: "Digest 1", ThreadId: "t1"},
		"c01": {Sender: "news@b.com", Subject: "Offers", ThreadId: "t2"},
		"c02": {Sender: "news@a.com", Subject: "Digest 1", ThreadId: "t1"},
		"c03": nil,
		"c04": {Sender: "promo@c.com", Subject: "Sale"},
		"c05": {Sender: "billing@d.com", Subject: "Your invoice"},
		"c06": {Sender: "promo@c.com", Subject: "Sale"},
		"c07": {Sender: "news@a.com", Subject: "Digest 1", ThreadId: "t1"},
	}
	links := map[string]string{"c02": "https://a.com/unsub", "c01": "https://b.com/unsub"}
	f.withRecords(records, links)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(8), nil)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.EmailRecord) *domain.ClassificationResult {
			if strings.HasPrefix(r.Sender, "billing") {
				return noNewsletter
			}
			return newsletter
		}).
		Times(7)

	snapshots := []domain.ScanProgress{}
	aggregates, err := f.scanner(t).Scan(context.Background(), collect(&snapshots))

	assert.NoError(t, err)
	assert.Equal(t, []*domain.SenderAggregate{
		{Sender: "news@a.com", Subject: "Digest 1", Count: 3, UnsubscribeLink: "https://a.com/unsub", Confidence: 0.9, Method: domain.MethodModel},
		{Sender: "news@b.com", Subject: "Offers", Count: 1, UnsubscribeLink: "https://b.com/unsub", Confidence: 0.9, Method: domain.MethodModel},
		{Sender: "promo@c.com", Subject: "Sale", Count: 2, Confidence: 0.9, Method: domain.MethodModel},
	}, aggregates)

	// the unextractable candidate does not produce a snapshot
	require.Len(t, snapshots, 7)
	assert.Equal(t, domain.ScanProgress{Processed: 8, Total: 8, FoundCount: 3, StatusMessage: "Analyzed 8 of 8 emails, found 3 newsletters"}, snapshots[6])
	for i := 1; i < len(snapshots); i++ {
		assert.GreaterOrEqual(t, snapshots[i].Processed, snapshots[i-1].Processed)
	}
}

func TestScan_GroupBySender(t *testing.T) {
	f := newFixture(t)
	records := map[string]*domain.EmailRecord{
		"c00": {Sender: "news@a.com", Subject: "Digest 1", ThreadId: "t1"},
		"c01": {Sender: "news@a.com", Subject: "Digest 2", ThreadId: "t2"},
		"c02": {Sender: "news@b.com", Subject: "Offers", ThreadId: "t3"},
	}
	f.withRecords(records, nil)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(3), nil)
	f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(newsletter).Times(3)

	aggregates, err := f.scanner(t, GroupBySender()).Scan(context.Background(), nil)

	assert.NoError(t, err)
	require.Len(t, aggregates, 2)
	assert.Equal(t, "news@a.com", aggregates[0].Sender)
	assert.Equal(t, "Digest 1", aggregates[0].Subject)
	assert.Equal(t, 2, aggregates[0].Count)
	assert.Equal(t, 1, aggregates[1].Count)
}

func TestScan_MaxCandidates(t *testing.T) {
	f := newFixture(t)
	f.withRecords(distinctRecords(12), nil)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(12), nil)
	f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(noNewsletter).Times(3)

	snapshots := []domain.ScanProgress{}
	aggregates, err := f.scanner(t, MaxCandidates(3)).Scan(context.Background(), collect(&snapshots))

	assert.NoError(t, err)
	assert.Empty(t, aggregates)
	require.Len(t, snapshots, 3)
	assert.Equal(t, 3, snapshots[2].Total)
	assert.Equal(t, 0, snapshots[2].FoundCount)
}

func TestScan_Empty(t *testing.T) {
	f := newFixture(t)
	f.source.EXPECT().Candidates(gomock.Any()).Return([]*domain.Candidate{}, nil)
	sink := mocks.NewMockProgressSink(f.ctrl)

	aggregates, err := f.scanner(t).Scan(context.Background(), sink)

	assert.NoError(t, err)
	assert.Empty(t, aggregates)
}

func TestScan_EnumerationFails(t *testing.T) {
	f := newFixture(t)
	f.source.EXPECT().Candidates(gomock.Any()).Return(nil, errors.New("connection reset"))

	aggregates, err := f.scanner(t).Scan(context.Background(), nil)

	assert.Nil(t, aggregates)
	assert.EqualError(t, err, "could not enumerate candidates: connection reset")
}

func TestScan_CancelBetweenBatches(t *testing.T) {
	f := newFixture(t)
	f.withRecords(distinctRecords(12), nil)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(12), nil)
	f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(newsletter).Times(5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := SinkFunc(func(p domain.ScanProgress) {
		if p.Processed == 5 {
			cancel()
		}
	})

	s := f.scanner(t, BatchPause(time.Hour))
	aggregates, err := s.Scan(ctx, sink)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, aggregates, 5)
}

func TestScan_AlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aggregates, err := f.scanner(t).Scan(ctx, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, aggregates)
}

func TestScan_PausesBetweenBatches(t *testing.T) {
	f := newFixture(t)
	f.withRecords(distinctRecords(3), nil)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(3), nil)
	f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(noNewsletter).Times(3)

	start := time.Now()
	_, err := f.scanner(t, BatchSize(1), BatchPause(20*time.Millisecond)).Scan(context.Background(), nil)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestQuickScan(t *testing.T) {
	f := newFixture(t)
	records := distinctRecords(60)
	records["c01"].Sender = "news0@example.com"
	f.withRecords(records, map[string]string{"c00": "https://example.com/unsub"})
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(60), nil)
	f.rules.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(ruleNewsletter).Times(DefaultQuickScanSize)

	aggregates, err := f.scanner(t).QuickScan(context.Background())

	assert.NoError(t, err)
	require.Len(t, aggregates, DefaultQuickScanSize-1)
	assert.Equal(t, &domain.SenderAggregate{
		Sender:          "news0@example.com",
		Subject:         "Weekly Digest",
		Count:           2,
		UnsubscribeLink: "https://example.com/unsub",
		Confidence:      0.7,
		Method:          domain.MethodRules,
	}, aggregates[0])
}

func TestQuickScan_MaxCandidates(t *testing.T) {
	f := newFixture(t)
	f.withRecords(distinctRecords(10), nil)
	f.source.EXPECT().Candidates(gomock.Any()).Return(candidates(10), nil)
	f.rules.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(noNewsletter).Times(4)

	aggregates, err := f.scanner(t, MaxCandidates(4)).QuickScan(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, aggregates)
}

func TestQuickScan_EnumerationFails(t *testing.T) {
	f := newFixture(t)
	f.source.EXPECT().Candidates(gomock.Any()).Return(nil, errors.New("no such folder"))

	_, err := f.scanner(t).QuickScan(context.Background())

	assert.EqualError(t, err, "could not enumerate candidates: no such folder")
}

func TestPartitionCandidates(t *testing.T) {
	sizes := func(batches [][]*domain.Candidate) []int {
		s := []int{}
		for _, b := range batches {
			s = append(s, len(b))
		}
		return s
	}

	assert.Equal(t, []int{5, 5, 2}, sizes(partitionCandidates(candidates(12), 5)))
	assert.Equal(t, []int{5}, sizes(partitionCandidates(candidates(5), 5)))
	assert.Equal(t, []int{3}, sizes(partitionCandidates(candidates(3), 5)))
	assert.Nil(t, partitionCandidates(nil, 5))
}
