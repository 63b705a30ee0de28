package retriever

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

// resultRow is one upstream result-table row before the message body
// is fetched.
type resultRow struct {
	messageID     string
	dateStr       string
	fromField     string
	listName      string
	hasAttachment bool
	subject       string
	position      int
	page          int
}

var loadMsgJSONRe = regexp.MustCompile(`b_loadmsgjson\((\d+)`)

// collectRows walks pagination, extracting rows from the results
// table page by page, preserving upstream row order (position is
// assigned 1..N across all pages).
func (r *Retriever) collectRows(ctx context.Context, spec types.SearchSpec, onProgress interfaces.ProgressFunc) ([]resultRow, error) {
	var all []resultRow
	page := 1

	for page <= spec.MaxPages && len(all) < spec.MaxMessages {
		rows, err := r.extractPageRows(ctx, page, len(all))
		if err != nil {
			// Per-page failure aborts pagination but keeps collected rows.
			return all, appErrors.New(appErrors.KindRetrievalTimeout, err)
		}
		all = append(all, rows...)
		if onProgress != nil {
			onProgress(interfaces.PageProgress{Page: page, RowsThisPage: len(rows), TotalSoFar: len(all)})
		}
		if len(all) >= spec.MaxMessages {
			break
		}
		if page >= spec.MaxPages {
			break
		}
		if !r.goToNextPage(ctx, page) {
			break
		}
		page++
		time.Sleep(r.timeouts.PageBackoff)
	}

	if len(all) > spec.MaxMessages {
		all = all[:spec.MaxMessages]
	}
	return all, nil
}

func (r *Retriever) extractPageRows(ctx context.Context, page, alreadyCollected int) ([]resultRow, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.timeouts.ResultsWait)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(`table.table-striped tbody tr`, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("no results table on page %d: %w", page, err)
	}

	var tableHTML string
	if err := chromedp.Run(ctx, chromedp.OuterHTML(`table.table-striped`, &tableHTML, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("reading results table on page %d: %w", page, err)
	}

	return parseResultRows(tableHTML, page, alreadyCollected)
}

// parseResultRows turns one results-table page into resultRows,
// skipping the header row and any row whose subject anchor carries no
// message id.
func parseResultRows(tableHTML string, page, alreadyCollected int) ([]resultRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing results table: %w", err)
	}

	var rows []resultRow
	doc.Find("tbody tr").Each(func(_ int, sel *goquery.Selection) {
		if sel.Find("b").Length() > 0 {
			return // header row
		}
		cells := sel.Find("td")
		if cells.Length() < 5 {
			return
		}
		anchor := cells.Eq(4).Find("a").First()
		href, _ := anchor.Attr("href")
		match := loadMsgJSONRe.FindStringSubmatch(href)
		if match == nil {
			return
		}
		rows = append(rows, resultRow{
			messageID:     match[1],
			dateStr:       strings.TrimSpace(cells.Eq(0).Text()),
			fromField:     strings.TrimSpace(cells.Eq(1).Text()),
			listName:      strings.TrimSpace(cells.Eq(2).Text()),
			hasAttachment: strings.TrimSpace(cells.Eq(3).Text()) != "",
			subject:       strings.TrimSpace(anchor.Text()),
			position:      alreadyCollected + len(rows) + 1,
			page:          page,
		})
	})
	return rows, nil
}

// goToNextPage tries, in order: a direct numeric link for the next
// page, a "next page" control (executing its javascript: href
// directly if that's what it is), then a text "Next" link.
func (r *Retriever) goToNextPage(ctx context.Context, currentPage int) bool {
	nextPage := currentPage + 1

	if clickPaginationLinkByText(ctx, fmt.Sprintf("%d", nextPage)) {
		r.waitAfterPageChange(ctx)
		return true
	}

	if href := paginationHref(ctx, `#seachResultsPaginationBar a[title='Next Page']`); href != "" {
		if strings.HasPrefix(href, "javascript:") {
			js := strings.TrimPrefix(href, "javascript:")
			if chromedp.Run(ctx, chromedp.Evaluate(js, nil)) == nil {
				r.waitAfterPageChange(ctx)
				return true
			}
		} else if clickPaginationLink(ctx, `#seachResultsPaginationBar a[title='Next Page']`) {
			r.waitAfterPageChange(ctx)
			return true
		}
	}

	if clickPaginationLinkByText(ctx, "Next") {
		r.waitAfterPageChange(ctx)
		return true
	}

	return false
}

func (r *Retriever) waitAfterPageChange(ctx context.Context) {
	_ = chromedp.Run(ctx, chromedp.Sleep(r.timeouts.PageBackoff))
}

func clickPaginationLink(ctx context.Context, selector string) bool {
	return chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery)) == nil
}

// clickPaginationLinkByText clicks the first anchor in the pagination
// bar whose text equals text. querySelector has no text matcher, so
// the lookup runs in the page's script context.
func clickPaginationLinkByText(ctx context.Context, text string) bool {
	js := fmt.Sprintf(`(function(){
		var bar = document.querySelector('#seachResultsPaginationBar');
		if (!bar) { return false; }
		var links = bar.querySelectorAll('a');
		for (var i = 0; i < links.length; i++) {
			if (links[i].textContent.trim() === %q) { links[i].click(); return true; }
		}
		return false;
	})()`, text)
	var clicked bool
	if chromedp.Run(ctx, chromedp.Evaluate(js, &clicked)) != nil {
		return false
	}
	return clicked
}

func paginationHref(ctx context.Context, selector string) string {
	var href string
	if chromedp.Run(ctx, chromedp.AttributeValue(selector, "href", &href, nil, chromedp.ByQuery)) != nil {
		return ""
	}
	return href
}
