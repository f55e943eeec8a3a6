// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"unicode/utf8"

	"github.com/CrawX/go-newsletter-assassin/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

const (
	MaxSnippetLength = 200
	NoSubject        = "No Subject"
)

type parsedMail struct {
	header gomail.Header
	text   string
	html   string
}

func parse(rawMail []byte) (*parsedMail, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(rawMail))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}
	defer mr.Close()

	parsed := &parsedMail{header: mr.Header}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// Keep what was read so far, a broken part should not discard the headers
			break
		}

		inline, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		body, err := ioutil.ReadAll(p.Body)
		if err != nil {
			continue
		}

		switch {
		case contentType == "text/plain" && len(parsed.text) == 0:
			parsed.text = string(body)
		case contentType == "text/html" && len(parsed.html) == 0:
			parsed.html = string(body)
		}
	}

	return parsed, nil
}

// ParseRecord reads sender, subject, snippet, thread id and unsubscribe link from a raw mail.
func ParseRecord(rawMail []byte) (*domain.EmailRecord, error) {
	parsed, err := parse(rawMail)
	if err != nil {
		return nil, err
	}

	sender := senderOf(parsed.header)
	if len(sender) == 0 {
		return nil, fmt.Errorf("could not find a sender")
	}

	subject, err := parsed.header.Subject()
	if err != nil {
		subject = parsed.header.Get("Subject")
	}
	subject = strings.TrimSpace(subject)
	if len(subject) == 0 {
		subject = NoSubject
	}

	snippet := parsed.text
	if len(strings.TrimSpace(snippet)) == 0 && len(parsed.html) > 0 {
		snippet = htmlText(parsed.html)
	}

	return &domain.EmailRecord{
		Sender:          sender,
		Subject:         subject,
		Snippet:         Snippet(snippet),
		UnsubscribeLink: unsubscribeLink(parsed),
		ThreadId:        threadId(parsed.header),
	}, nil
}

func senderOf(header gomail.Header) string {
	from, err := header.AddressList("From")
	if err == nil && len(from) > 0 {
		if len(from[0].Address) > 0 {
			return strings.ToLower(from[0].Address)
		}
		return strings.TrimSpace(from[0].Name)
	}

	return strings.TrimSpace(header.Get("From"))
}

// threadId is the root of the References chain, the replied-to message or the message itself.
func threadId(header gomail.Header) string {
	for _, field := range []string{"References", "In-Reply-To"} {
		ids, err := header.MsgIDList(field)
		if err == nil && len(ids) > 0 {
			return ids[0]
		}
	}

	id, err := header.MessageID()
	if err != nil {
		return ""
	}
	return id
}

func unsubscribeLink(parsed *parsedMail) string {
	link := ListUnsubscribeURL(parsed.header.Get("List-Unsubscribe"))
	if len(link) > 0 {
		return link
	}

	return htmlUnsubscribeLink(parsed.html)
}

// ListUnsubscribeURL returns the first http(s) URL of a List-Unsubscribe header value.
func ListUnsubscribeURL(header string) string {
	for _, p := range strings.Split(header, ",") {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "<>")
		p = strings.TrimSpace(p)
		lower := strings.ToLower(p)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return p
		}
	}
	return ""
}

func htmlUnsubscribeLink(html string) string {
	if len(html) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	link := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		text := strings.ToLower(a.Text())
		if strings.Contains(text, "unsubscribe") || strings.Contains(strings.ToLower(href), "unsubscribe") {
			link = href
			return false
		}
		return true
	})

	return link
}

func htmlText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, head").Remove()
	return doc.Text()
}

// Snippet collapses whitespace and shortens the text to MaxSnippetLength runes.
func Snippet(text string) string {
	snippet := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(snippet) > MaxSnippetLength {
		snippet = string([]rune(snippet)[:MaxSnippetLength])
	}
	return snippet
}

func ShortSubject(subject string) string {
	if utf8.RuneCountInString(subject) > 30 {
		subject = string([]rune(subject)[:30]) + "..."
	}
	return subject
}

// Extractor implements domain.RecordExtractor for candidates carrying raw RFC 5322 mails.
type Extractor struct{}

func (Extractor) ExtractRecord(candidate *domain.Candidate) *domain.EmailRecord {
	record, err := ParseRecord(candidate.RawMail)
	if err != nil {
		return nil
	}
	return record
}

func (Extractor) FindUnsubscribeLink(candidate *domain.Candidate) string {
	parsed, err := parse(candidate.RawMail)
	if err != nil {
		return ""
	}
	return unsubscribeLink(parsed)
}
