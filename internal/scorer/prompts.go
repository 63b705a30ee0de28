package scorer

import (
	"fmt"

	"github.com/caaa-research/engine/internal/types"
)

// basePrompt is the general-search relevance prompt. The hard rule:
// reasoning must cite the REAL question rather than the retrieval
// keywords. It also carries the author-anchored special case.
const basePrompt = `You are an expert legal assistant analyzing California workers' compensation listserv messages.
Determine whether this message is genuinely relevant to the REAL question below. Your reasoning must reference
the REAL question itself, never the retrieval keywords that happened to surface this message.

Special case: if the REAL question is anchored to a specific person ("messages from X" or similar), any message
sent FROM that person is relevant at confidence 0.95 regardless of content quality, and any message that clearly
MENTIONS that person is relevant at confidence 0.85, regardless of content quality.

REAL QUESTION: %s

MESSAGE:
From: %s
Subject: %s
Body: %s

Respond in strict JSON: {"is_relevant": bool, "confidence": 0.0-1.0, "reasoning": "1-2 sentences"}`

// evalPromptTemplate is shared by the five evaluation-mode prompts and
// the AME/QME search prompt; only the subject noun changes
// (doctor/judge/adjuster/defense attorney/insurance company/medical
// examiner), since each asks the same underlying
// question: does this message substantively discuss the named subject.
const evalPromptTemplate = `You are an expert legal assistant evaluating a %s named in a California workers' compensation listserv archive.
Determine whether this message substantively discusses the subject of the REAL question below, in a way useful for
forming an opinion about them. Your reasoning must reference the REAL question, never the retrieval keywords.

REAL QUESTION: %s

MESSAGE:
From: %s
Subject: %s
Body: %s

Respond in strict JSON: {"is_relevant": bool, "confidence": 0.0-1.0, "reasoning": "1-2 sentences"}`

// promptSubjectByQueryType maps an evaluation query type to the
// subject noun used in evalPromptTemplate.
var promptSubjectByQueryType = map[types.QueryType]string{
	types.QueryTypeDoctorEval:           "doctor",
	types.QueryTypeJudgeEval:            "judge",
	types.QueryTypeAdjusterEval:         "adjuster",
	types.QueryTypeDefenseAttorneyEval:  "defense attorney",
	types.QueryTypeInsuranceCompanyEval: "insurance company",
	types.QueryTypeAMEQMESearch:         "medical examiner (AME/QME)",
}

// buildPrompt selects the prompt family by query type and fills in the
// message fields.
func buildPrompt(queryType types.QueryType, realQuestion, fromDisplay, subject, body string) string {
	if noun, ok := promptSubjectByQueryType[queryType]; ok {
		return fmt.Sprintf(evalPromptTemplate, noun, realQuestion, fromDisplay, subject, body)
	}
	return fmt.Sprintf(basePrompt, realQuestion, fromDisplay, subject, body)
}
