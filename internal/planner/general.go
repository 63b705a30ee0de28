package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/utils"
)

// generalSystemPrompt carries the full field catalog and planning
// heuristics as an LLM instruction.
const generalSystemPrompt = `You are a search-parameter planner for a California workers' compensation attorneys' listserv archive.
Given a REAL question, produce the SearchSpec fields that will retrieve the most useful messages.

Field catalog:
- keywords_all: comma-separated terms that must ALL appear (use only when multiple concepts must co-occur)
- keywords_phrase: an exact phrase to match verbatim (only when the REAL question requests an exact phrase)
- keywords_any: comma-separated terms where at least one must appear (prefer this broad form by default)
- keywords_exclude: comma-separated terms to exclude, from topics the REAL question excludes
- posted_by: sender's full display name, when the REAL question is about messages FROM a specific person
- author_first_name / author_last_name: expert/witness name fields (medical or legal expert searches), not the sender
- listserv: "lawnet" for applicant/worker's-side cues, "lavaaa" for defense/employer-side cues, otherwise omit
- date_from / date_to: ISO dates (YYYY-MM-DD); for "recent"/"latest"/"new" cues set date_from to 6 months before today and leave date_to empty

Rules: prefer keywords_any over keywords_all; never emit keywords_phrase unless an exact phrase is requested;
disambiguate a person's name as sender (posted_by) vs. expert/witness (author_first_name/author_last_name) from context,
defaulting to broad content keywords when ambiguous.

Reply with strict JSON using only these keys (omit any field that does not apply):
{"keywords_all": "...", "keywords_phrase": "...", "keywords_any": "...", "keywords_exclude": "...",
 "posted_by": "...", "author_first_name": "...", "author_last_name": "...",
 "listserv": "...", "date_from": "...", "date_to": "..."}`

// planGeneral is the LLM-driven planner used for query_type=general
// and, with a fixed preamble, for doctor_eval/adjuster_eval/ame_qme_search.
func (p *Planner) planGeneral(ctx context.Context, realQuestion string) (types.SearchSpec, error) {
	resp, err := p.backend.Complete(ctx, []chat.Message{
		{Role: "system", Content: generalSystemPrompt},
		{Role: "user", Content: realQuestion},
	}, &chat.Options{Temperature: 0.2, MaxTokens: 400, JSONMode: true})
	if err != nil {
		return types.SearchSpec{}, appErrors.New(appErrors.KindPlannerFailure, err)
	}

	island, ok := utils.ExtractJSONIsland(resp.Content)
	if !ok {
		return types.SearchSpec{}, appErrors.New(appErrors.KindPlannerFailure, fmt.Errorf("no JSON island in planner reply"))
	}

	spec := types.NewSearchSpec()
	spec.KeywordsAll = splitTerms(island.Get("keywords_all").String())
	spec.KeywordsPhrase = strings.TrimSpace(island.Get("keywords_phrase").String())
	spec.KeywordsAny = splitTerms(island.Get("keywords_any").String())
	spec.KeywordsExclude = splitTerms(island.Get("keywords_exclude").String())
	spec.PostedBy = strings.TrimSpace(island.Get("posted_by").String())
	spec.AuthorFirstName = strings.TrimSpace(island.Get("author_first_name").String())
	spec.AuthorLastName = strings.TrimSpace(island.Get("author_last_name").String())

	if ls := strings.TrimSpace(island.Get("listserv").String()); ls != "" {
		spec.Listserv = types.Listserv(strings.ToLower(ls))
	}
	applyTemporalCues(&spec, realQuestion)
	if from := parsePlannerDate(island.Get("date_from").String()); from != nil {
		spec.DateFrom = from
	}
	if to := parsePlannerDate(island.Get("date_to").String()); to != nil {
		spec.DateTo = to
	}

	return spec, nil
}

// splitTerms normalizes a planner-returned keyword field, which may
// come back comma-separated, space-separated, or (rarely, when the
// model ignores the schema and emits an array-looking string)
// bracketed, into a canonical comma-delimited term list. Canonicalize
// on SearchSpec handles de-duplication and trimming; this only picks
// the separator.
func splitTerms(raw string) []string {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	if raw == "" {
		return nil
	}
	sep := ","
	if !strings.Contains(raw, ",") && strings.Contains(raw, " ") {
		sep = " "
	}
	var terms []string
	for _, t := range strings.Split(raw, sep) {
		t = strings.Trim(strings.TrimSpace(t), `"'`)
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// temporalCueWords trigger the "date_from = now - 6 months" rule when
// the model's reply omits date_from despite the REAL question using a
// recency cue.
var temporalCueWords = []string{"recent", "latest", "new", "newest"}

func applyTemporalCues(spec *types.SearchSpec, realQuestion string) {
	if spec.DateFrom != nil {
		return
	}
	lower := strings.ToLower(realQuestion)
	for _, cue := range temporalCueWords {
		if strings.Contains(lower, cue) {
			from := time.Now().AddDate(0, -6, 0)
			spec.DateFrom = &from
			return
		}
	}
}

func parsePlannerDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
