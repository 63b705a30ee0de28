package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/caaa-research/engine/internal/common"
	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/types"
)

// loginRedirectMarkers are substrings seen in the page when the
// upstream has redirected to its login form instead of the search
// page, indicating the shared cookie jar has rotated out from under
// this session.
var loginRedirectMarkers = []string{"pg=login", "id=\"login_form\"", "Please log in"}

// executeSearchWithCookieRetry retries the session attach exactly
// once when the upstream redirects to a login page, then surfaces
// CookieExpired as fatal. The warm browser pool restarts itself
// periodically and can rotate cookies out from under a search that
// begins right before a restart; the lasting remedy is the
// operator-facing cookie refresh, not a retry loop, so the engine
// gets exactly one chance to re-attach before giving up.
func (r *Retriever) executeSearchWithCookieRetry(ctx, browserCtx context.Context, spec types.SearchSpec) error {
	err := r.executeSearch(browserCtx, spec)
	if err == nil {
		return nil
	}
	if !isCookieExpired(browserCtx) {
		return err
	}

	common.PipelineWarn(ctx, stage, "cookie_expired_retry", nil)
	if retryErr := r.executeSearch(browserCtx, spec); retryErr == nil {
		return nil
	}

	return appErrors.New(appErrors.KindCookieExpired, fmt.Errorf("upstream redirected to login after retry"))
}

func isCookieExpired(ctx context.Context) bool {
	var pageText string
	if chromedp.Run(ctx, chromedp.OuterHTML("html", &pageText, chromedp.ByQuery)) != nil {
		return false
	}
	return containsLoginMarker(pageText)
}

func containsLoginMarker(html string) bool {
	for _, marker := range loginRedirectMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
