// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailRecord_DedupKey(t *testing.T) {
	tests := []struct {
		name     string
		record   *EmailRecord
		expected string
	}{
		{"thread id", &EmailRecord{Sender: "news@a.com", Subject: "Digest", ThreadId: "abc@a.com"}, "abc@a.com"},
		{"sender and subject", &EmailRecord{Sender: "news@a.com", Subject: "Digest"}, "news@a.comDigest"},
		{"empty", &EmailRecord{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.record.DedupKey())
		})
	}
}

func TestEmailRecord_SenderKey(t *testing.T) {
	assert.Equal(t, "news@a.com", (&EmailRecord{Sender: "news@a.com", Subject: "Digest", ThreadId: "x"}).SenderKey())
}
