// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"context"
	"fmt"
	"io/ioutil"
	"sort"
	"time"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"
	"github.com/CrawX/go-newsletter-assassin/retry"

	"github.com/emersion/go-imap"
	compress "github.com/emersion/go-imap-compress"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

const (
	FetchBatchSize = 50

	ConnectAttempts = 5
	ConnectInterval = 2 * time.Second
)

// ImapConnection is a read-only candidate source: folders are selected read-only and bodies are
// fetched with BODY.PEEK so no flags change on the server.
type ImapConnection struct {
	connection *client.Client

	server  string
	folders []string
	limit   int

	l *logrus.Logger
}

func NewImapConnection(ctx context.Context, server, user, password string, folders []string, limit int) (*ImapConnection, error) {
	l := log.Logger(log.LOG_IMAP)

	var imapClient *client.Client
	err := retry.Do(ctx, ConnectAttempts, ConnectInterval, func(ctx context.Context) error {
		c, err := client.DialTLS(server, nil)
		if err != nil {
			l.WithFields(logrus.Fields{"server": server, "error": err}).Debug("Dial failed")
			return retry.Retryable(fmt.Errorf("could not dial to imap: %w", err))
		}
		imapClient = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = imapClient.Login(user, password)
	if err != nil {
		return nil, fmt.Errorf("could not login to imap: %w", err)
	}

	conn := &ImapConnection{
		connection: imapClient,
		server:     server,
		folders:    folders,
		limit:      limit,
		l:          l,
	}

	baseLogger := conn.l.WithFields(logrus.Fields{"server": server})
	baseLogger.Debug("Logged in to server")

	compressClient := compress.NewClient(imapClient)
	compressSupported, err := compressClient.SupportCompress(compress.Deflate)
	if err != nil {
		return nil, fmt.Errorf("could not check for COMPRESS support: %w", err)
	}
	if compressSupported {
		err = compressClient.Compress(compress.Deflate)
		if err != nil {
			return nil, fmt.Errorf("could not enable compression: %w", err)
		}
		baseLogger.Debug("COMPRESS=DEFLATE enabled")
	} else {
		baseLogger.Info("COMPRESS not supported on server, fetching uncompressed")
	}

	return conn, nil
}

// Candidates returns the newest mails of every configured folder, newest first.
func (ic *ImapConnection) Candidates(ctx context.Context) ([]*domain.Candidate, error) {
	candidates := []*domain.Candidate{}
	for _, folder := range ic.folders {
		_, err := ic.connection.Select(folder, true)
		if err != nil {
			return nil, fmt.Errorf("could not select folder %s: %w", folder, err)
		}

		uids, err := ic.listUids()
		if err != nil {
			return nil, fmt.Errorf("could not list folder %s: %w", folder, err)
		}
		uids = newestUids(uids, ic.limit)

		batches := partitionUids(uids, FetchBatchSize)
		ic.l.WithFields(logrus.Fields{"folder": folder, "mails": len(uids), "batches": len(batches)}).Debug("Fetching candidates")

		for _, batch := range batches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if len(batch) == 0 {
				continue
			}

			mails, err := ic.fetchMails(batch)
			if err != nil {
				return nil, fmt.Errorf("could not fetch mails of %s: %w", folder, err)
			}

			for _, uid := range batch {
				rawMail, ok := mails[uid]
				if !ok {
					ic.l.WithFields(logrus.Fields{"folder": folder, "uid": uid}).Debug("Mail vanished while fetching")
					continue
				}
				candidates = append(candidates, &domain.Candidate{
					Source:  fmt.Sprintf("%s/%d", folder, uid),
					RawMail: rawMail,
				})
			}
		}
	}

	return candidates, nil
}

func (ic *ImapConnection) listUids() ([]uint32, error) {
	// Get all UIDs in folder (empty search criteria)
	criteria := imap.NewSearchCriteria()
	ids, err := ic.connection.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search uids: %w", err)
	}

	return ids, nil
}

func (ic *ImapConnection) fetchMails(uids []uint32) (map[uint32][]byte, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	fullBodySection := &imap.BodySectionName{
		Peek: true,
	}

	fetchItems := []imap.FetchItem{fullBodySection.FetchItem()}
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	mails := map[uint32][]byte{}
	var readErr error
	for msg := range messages {
		r := msg.GetBody(fullBodySection)
		if r == nil || readErr != nil {
			continue
		}
		rawBody, err := ioutil.ReadAll(r)
		if err != nil {
			// Keep draining, UidFetch blocks until the channel is consumed
			readErr = fmt.Errorf("could not read mail body: %w", err)
			continue
		}

		mails[msg.Uid] = rawBody
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return mails, nil
}

func (ic *ImapConnection) Close() error {
	return ic.connection.Logout()
}

// newestUids sorts descending and keeps at most limit uids, limit <= 0 keeps all.
func newestUids(uids []uint32, limit int) []uint32 {
	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// taken from https://github.com/golang/go/wiki/SliceTricks
func partitionUids(uids []uint32, partitionSize int) [][]uint32 {
	batches := make([][]uint32, 0, (len(uids)+partitionSize-1)/partitionSize)

	for partitionSize < len(uids) {
		uids, batches = uids[partitionSize:], append(batches, uids[0:partitionSize:partitionSize])
	}
	batches = append(batches, uids)

	return batches
}
