package planner

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/caaa-research/engine/internal/types"
)

// judgeTitlePrefixes are stripped from the REAL question before the
// deterministic judge-eval planner builds its keyword variants.
var judgeTitlePrefixes = []string{
	"Workers' Compensation Judge", "Workers Compensation Judge", "Judge", "Hon.", "Hon", "Honorable", "WCJ",
}

var wsRe = regexp.MustCompile(`\s+`)

// planJudgeEval builds the deterministic SearchSpec for query_type =
// judge_eval: strip known titles, then build
// KeywordsAny as the deduplicated union of title-prefixed and bare
// name variants, for both the last-name-only and full-name forms.
func planJudgeEval(realQuestion string) types.SearchSpec {
	name := stripTitles(realQuestion, judgeTitlePrefixes)
	variants := nameVariants(name, []string{"Judge", "Hon.", "Hon", "WCJ", "Honorable"})

	spec := types.NewSearchSpec()
	spec.KeywordsAny = variants
	return spec
}

// stripTitles removes every known title prefix from s (case-insensitive,
// word-boundary, with any trailing period), collapsing the remaining
// whitespace.
func stripTitles(s string, titles []string) string {
	out := s
	for _, title := range titles {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSuffix(title, ".")) + `\b\.?`)
		out = re.ReplaceAllString(out, "")
	}
	out = wsRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// nameVariants builds the deduplicated set of {bare name, each
// title+" "+name, each name+" "+title} for both the full name and,
// when it has more than one word, the bare last-name form.
func nameVariants(name string, titles []string) []string {
	if name == "" {
		return nil
	}
	words := strings.Fields(name)
	forms := []string{name}
	if len(words) > 1 {
		forms = append(forms, words[len(words)-1])
	}

	var variants []string
	for _, form := range forms {
		variants = append(variants, form)
		for _, title := range titles {
			variants = append(variants, title+" "+form)
			variants = append(variants, form+" "+title)
		}
	}
	return lo.Uniq(variants)
}

// defenseAttorneyContextTerms are the evaluative-context keywords
// biasing the `any` slot of the defense-attorney-eval planner.
var defenseAttorneyContextTerms = []string{
	"defense", "defendant", "opposing", "counsel", "attorney",
	"negotiate", "settlement", "deposition", "lien",
}

// planDefenseAttorneyEval builds the deterministic SearchSpec for
// query_type = defense_attorney_eval: KeywordsAll fixes the subject's
// last name, KeywordsAny biases toward evaluative context.
func planDefenseAttorneyEval(realQuestion string) types.SearchSpec {
	name := strings.TrimSpace(realQuestion)
	words := strings.Fields(name)
	lastName := name
	if len(words) > 0 {
		lastName = words[len(words)-1]
	}

	spec := types.NewSearchSpec()
	spec.KeywordsAll = []string{lastName}
	spec.KeywordsAny = append([]string{}, defenseAttorneyContextTerms...)
	return spec
}
