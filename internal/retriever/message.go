package retriever

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/caaa-research/engine/internal/types"
)

// fetchMessage invokes the upstream's JS message loader for one row
// and parses the rendered container into a normalized Message.
func (r *Retriever) fetchMessage(ctx context.Context, row resultRow) (types.Message, error) {
	loadJS := fmt.Sprintf(`b_loadmsgjson(%s,'','responsive');`, row.messageID)

	waitCtx, cancel := context.WithTimeout(ctx, r.timeouts.MessageWait)
	defer cancel()

	if err := chromedp.Run(waitCtx,
		chromedp.Evaluate(loadJS, nil),
		chromedp.Sleep(2*time.Second),
		chromedp.WaitVisible(`#s_lyris_messagewindow`, chromedp.ByQuery),
	); err != nil {
		return types.Message{}, fmt.Errorf("loading message %s: %w", row.messageID, err)
	}

	var innerHTML string
	if err := chromedp.Run(ctx, chromedp.InnerHTML(`#s_lyris_messagewindow`, &innerHTML, chromedp.ByQuery)); err != nil {
		return types.Message{}, fmt.Errorf("reading message %s: %w", row.messageID, err)
	}

	cleaned, err := extractCleanMessageText(innerHTML)
	if err != nil {
		return types.Message{}, fmt.Errorf("parsing message %s: %w", row.messageID, err)
	}

	fromDisplay := row.fromField
	if cleaned.from != "" {
		fromDisplay = cleaned.from
	}
	subject := row.subject
	if cleaned.subject != "" {
		subject = cleaned.subject
	}

	postedAt := parseUpstreamDate(row.dateStr)

	return types.Message{
		UpstreamID:    row.messageID,
		PostedAt:      postedAt,
		FromDisplay:   fromDisplay,
		FromEmail:     extractEmail(fromDisplay),
		Listserv:      types.Listserv(strings.ToLower(row.listName)),
		Subject:       subject,
		Body:          cleaned.body,
		HasAttachment: row.hasAttachment,
	}, nil
}

type cleanedMessage struct {
	from    string
	date    string
	subject string
	body    string
}

var emailRe = regexp.MustCompile(`<([^>]+)>`)

// extractCleanMessageText pulls the From/Date/Subject header spans
// and the first non-quoted body paragraph out of the rendered message
// container, falling back to the full text with header lines stripped
// when the expected structure isn't present.
func extractCleanMessageText(html string) (cleanedMessage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return cleanedMessage{}, err
	}

	var out cleanedMessage
	doc.Find("span").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= 3 {
			return false
		}
		text := strings.TrimSpace(s.Text())
		switch {
		case strings.HasPrefix(text, "From:"):
			out.from = strings.TrimSpace(strings.TrimPrefix(text, "From:"))
		case strings.HasPrefix(text, "Date:"):
			out.date = strings.TrimSpace(strings.TrimPrefix(text, "Date:"))
		case strings.HasPrefix(text, "Subject:"):
			out.subject = strings.TrimSpace(strings.TrimPrefix(text, "Subject:"))
		}
		return true
	})

	doc.Find(`div[dir="ltr"]`).EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if div.ParentsFiltered("blockquote").Length() > 0 {
			return true
		}
		var parts []string
		div.Contents().Each(func(_ int, child *goquery.Selection) {
			if goquery.NodeName(child) == "blockquote" {
				return
			}
			if text := strings.TrimSpace(child.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		body := strings.TrimSpace(strings.Join(parts, " "))
		if body != "" {
			out.body = body
			return false
		}
		return true
	})

	if out.body == "" {
		out.body = fallbackBodyText(doc)
	}
	return out, nil
}

// fallbackBodyText strips the known header lines from the full
// container text when no div[dir=ltr] body paragraph was found.
func fallbackBodyText(doc *goquery.Document) string {
	lines := strings.Split(doc.Text(), "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "From:") || strings.HasPrefix(trimmed, "Date:") || strings.HasPrefix(trimmed, "Subject:") {
			continue
		}
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// extractEmail pulls an address out of a "Name <email>" display string.
func extractEmail(from string) string {
	match := emailRe.FindStringSubmatch(from)
	if match == nil {
		return ""
	}
	return match[1]
}

// parseUpstreamDate parses the upstream's MM/DD/YY date format,
// expanding a 2-digit year to the 2000s.
func parseUpstreamDate(dateStr string) time.Time {
	parts := strings.Split(strings.TrimSpace(dateStr), "/")
	if len(parts) != 3 {
		return time.Time{}
	}
	month, errM := strconv.Atoi(parts[0])
	day, errD := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errM != nil || errD != nil || errY != nil {
		return time.Time{}
	}
	if year < 100 {
		year += 2000
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
