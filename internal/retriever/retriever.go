// Package retriever drives a headless browser session against the
// gated archive's search UI via chromedp and normalizes the raw rows
// into Message records.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/caaa-research/engine/internal/common"
	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

const stage = "retrieve"

// Timeouts bundles the package's deadlines and page back-off into one
// value. The two-second settle pauses in executeSearch and fetchMessage
// are fixed constants, not read from it.
type Timeouts struct {
	PageLoad    time.Duration
	ResultsWait time.Duration
	MessageWait time.Duration
	PageBackoff time.Duration
}

// Retriever implements interfaces.Retriever over a chromedp browser
// context attached to an external, already-authenticated persistent
// browser.
type Retriever struct {
	searchURL    string
	allocatorURL string
	timeouts     Timeouts
}

// New builds a Retriever. allocatorURL is the remote-debugging
// endpoint of the warm browser pool the Retriever attaches to rather
// than launching its own Chrome process; the pool owns the cookie jar
// and may rotate it between searches, never during one.
func New(searchURL, allocatorURL string, timeouts Timeouts) *Retriever {
	return &Retriever{searchURL: searchURL, allocatorURL: allocatorURL, timeouts: timeouts}
}

// Retrieve executes one search and returns every row collected across
// pagination, in upstream row order, with Position assigned 1..N.
func (r *Retriever) Retrieve(ctx context.Context, spec types.SearchSpec, onProgress interfaces.ProgressFunc) ([]interfaces.RetrievedMessage, error) {
	allocCtx, cancelAlloc := r.newAllocatorContext(ctx)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := r.executeSearchWithCookieRetry(ctx, browserCtx, spec); err != nil {
		return nil, err
	}

	rows, err := r.collectRows(browserCtx, spec, onProgress)
	if err != nil && len(rows) == 0 {
		return nil, err
	}

	results := make([]interfaces.RetrievedMessage, 0, len(rows))
	for _, row := range rows {
		msg, ferr := r.fetchMessage(browserCtx, row)
		if ferr != nil {
			common.PipelineWarn(ctx, stage, "message_fetch_skipped", map[string]interface{}{
				"upstream_id": row.messageID, "error": ferr.Error(),
			})
			continue
		}
		results = append(results, interfaces.RetrievedMessage{Message: msg, Position: row.position, Page: row.page})
		time.Sleep(r.timeouts.PageBackoff)
	}
	return results, nil
}

func (r *Retriever) newAllocatorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.allocatorURL == "" {
		return chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	}
	return chromedp.NewRemoteAllocator(ctx, r.allocatorURL)
}

// executeSearch navigates to the search page, fills the form, and
// submits it, tolerating the known form quirks (duplicate field names,
// date fields that resist direct focus-and-type).
func (r *Retriever) executeSearch(ctx context.Context, spec types.SearchSpec) error {
	form := spec.ToUpstreamForm()

	actions := []chromedp.Action{
		chromedp.Navigate(r.searchURL),
		chromedp.Sleep(2 * time.Second),
	}
	for field, values := range form {
		value := values[0]
		if strings.Contains(field, "date") {
			actions = append(actions, chromedp.Evaluate(
				fmt.Sprintf(`(function(){var el=document.querySelector('input[name=%q]'); if(el){el.value=%q;}})()`, field, value),
				nil,
			))
			continue
		}
		actions = append(actions, setVisibleFieldValue(ctx, field, value))
	}
	actions = append(actions, submitSearch())

	ctx, cancel := context.WithTimeout(ctx, r.timeouts.PageLoad)
	defer cancel()
	if err := chromedp.Run(ctx, actions...); err != nil {
		return appErrors.New(appErrors.KindRetrievalTimeout, fmt.Errorf("executing search: %w", err))
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, r.timeouts.ResultsWait)
	defer waitCancel()
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(
		`table.table-striped tbody tr, .resultMsgExposition, .s_rnfne`, chromedp.ByQuery,
	))
	if err != nil {
		return appErrors.New(appErrors.KindRetrievalTimeout, fmt.Errorf("waiting for results: %w", err))
	}
	return nil
}

// setVisibleFieldValue writes value into the first settable element
// named field, text input or select alike. The upstream form
// duplicates some input names between the visible and hidden advanced
// panels, so every match is tried in document order until one takes.
// A missing or non-interactable field is skipped with a warning, never
// a submission failure.
func setVisibleFieldValue(logCtx context.Context, field, value string) chromedp.Action {
	selector := fmt.Sprintf(`input[name=%q], select[name=%q]`, field, field)
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll).Do(ctx); err != nil || len(nodes) == 0 {
			common.PipelineWarn(logCtx, stage, "form_field_skipped", map[string]interface{}{"field": field})
			return nil
		}
		for _, n := range nodes {
			if err := chromedp.SetValue(n.FullXPath(), value, chromedp.BySearch).Do(ctx); err == nil {
				return nil
			}
		}
		common.PipelineWarn(logCtx, stage, "form_field_not_interactable", map[string]interface{}{"field": field})
		return nil
	})
}

func submitSearch() chromedp.Action {
	selectors := []string{"#s_btn", `input[name="s_btn"]`, `button[type="submit"], input[type="submit"]`}
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var lastErr error
		for _, sel := range selectors {
			if err := chromedp.Click(sel, chromedp.ByQuery).Do(ctx); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		return lastErr
	})
}
