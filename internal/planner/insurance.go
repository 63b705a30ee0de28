package planner

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/caaa-research/engine/internal/common"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/types"
)

// insuranceContextTerms bias the `any` slot toward insurance-specific
// discussion.
var insuranceContextTerms = []string{
	"insurance", "carrier", "insurer", "claim", "adjuster",
	"authorization", "denial", "coverage", "settlement", "premium",
}

const abbreviationSystemPrompt = `Reply with only the single most common colloquial abbreviation attorneys use for the named workers' compensation insurance carrier, no punctuation, no explanation.`

// abbreviationGroup collapses concurrent identical abbreviation
// lookups for the same carrier name into one in-flight LLM call,
// since several searches may evaluate the same large carrier at once.
var abbreviationGroup singleflight.Group

// planInsuranceCompanyEval builds the SearchSpec for
// query_type=insurance_company_eval: a single-shot LLM lookup for the
// carrier's common abbreviation, falling back to the user-supplied
// name's first token on any failure.
func (p *Planner) planInsuranceCompanyEval(ctx context.Context, realQuestion string) (types.SearchSpec, error) {
	abbreviation, err := p.carrierAbbreviation(ctx, realQuestion)
	if err != nil {
		common.PipelineWarn(ctx, "plan", "insurance_abbreviation_fallback", map[string]interface{}{"error": err.Error()})
		abbreviation = firstToken(realQuestion)
	}

	spec := types.NewSearchSpec()
	spec.KeywordsAll = []string{abbreviation}
	spec.KeywordsAny = append([]string{}, insuranceContextTerms...)
	return spec, nil
}

func (p *Planner) carrierAbbreviation(ctx context.Context, carrierName string) (string, error) {
	v, err, _ := abbreviationGroup.Do(carrierName, func() (interface{}, error) {
		resp, err := p.backend.Complete(ctx, []chat.Message{
			{Role: "system", Content: abbreviationSystemPrompt},
			{Role: "user", Content: carrierName},
		}, &chat.Options{Temperature: 0, MaxTokens: 20})
		if err != nil {
			return "", err
		}
		return strings.Trim(strings.TrimSpace(resp.Content), `."'`), nil
	})
	if err != nil {
		return "", err
	}
	abbr, _ := v.(string)
	if abbr == "" {
		return "", errEmptyAbbreviation
	}
	return abbr, nil
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

var errEmptyAbbreviation = errEmpty("insurance abbreviation lookup returned empty reply")

type errEmpty string

func (e errEmpty) Error() string { return string(e) }
