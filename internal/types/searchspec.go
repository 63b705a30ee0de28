package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SearchSpec is the fully-resolved set of upstream search parameters a
// QueryPlanner produces from a user's question. Field names stay close
// to the upstream form so ToUpstreamForm is a direct mapping.
type SearchSpec struct {
	// Keyword families. KeywordsAll requires every term to co-occur;
	// KeywordsAny matches if any one term appears; KeywordsPhrase is
	// matched verbatim; KeywordsExclude removes hits containing a term.
	KeywordsAll     []string
	KeywordsPhrase  string
	KeywordsAny     []string
	KeywordsExclude []string

	// Simple is the upstream's basic keyword input, used when no
	// structured keyword family applies (notably the planner's
	// fallback of searching the raw question text).
	Simple string

	// Author fields. AuthorFirstName/AuthorLastName filter the
	// archive's expert/witness fields (medical or legal-expert
	// searches), not the message sender. PostedBy filters by sender
	// display name.
	PostedBy        string
	AuthorFirstName string
	AuthorLastName  string

	// Scope.
	Listserv Listserv
	SearchIn SearchIn

	// Filters.
	AttachmentFilter AttachmentFilter
	DateFrom         *time.Time
	DateTo           *time.Time

	// Caps.
	MaxMessages int
	MaxPages    int
}

// NewSearchSpec returns a SearchSpec with defaults applied:
// search_in=subject_and_body, attachment_filter=all, listserv=all,
// max_messages=100, max_pages=10.
func NewSearchSpec() SearchSpec {
	return SearchSpec{
		Listserv:         ListservAll,
		SearchIn:         SearchInSubjectAndBody,
		AttachmentFilter: AttachmentFilterAll,
		MaxMessages:      100,
		MaxPages:         10,
	}
}

// Canonicalize normalizes each keyword list in place: trims whitespace,
// drops empty entries, and dedupes while preserving first-seen order.
// It does not split entries: turning a comma- or space-separated
// string into a term list is done beforehand by the planner's
// splitTerms.
func (s *SearchSpec) Canonicalize() {
	s.KeywordsAll = canonicalizeList(s.KeywordsAll)
	s.KeywordsAny = canonicalizeList(s.KeywordsAny)
	s.KeywordsExclude = canonicalizeList(s.KeywordsExclude)
	s.KeywordsPhrase = strings.TrimSpace(s.KeywordsPhrase)
	s.Simple = strings.TrimSpace(s.Simple)
	s.PostedBy = strings.TrimSpace(s.PostedBy)
	s.AuthorFirstName = strings.TrimSpace(s.AuthorFirstName)
	s.AuthorLastName = strings.TrimSpace(s.AuthorLastName)
}

func canonicalizeList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		term := strings.TrimSpace(raw)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	return out
}

// ToUpstreamForm maps the SearchSpec onto the named fields the upstream
// search page expects. s_fname doubles as the plain keyword slot when
// no expert first name is set, since the upstream form reuses that
// input for both purposes.
func (s SearchSpec) ToUpstreamForm() url.Values {
	v := url.Values{}

	if s.AuthorFirstName != "" {
		v.Set("s_fname", s.AuthorFirstName)
	} else if s.Simple != "" {
		v.Set("s_fname", s.Simple)
	}
	if s.AuthorLastName != "" {
		v.Set("s_lname", s.AuthorLastName)
	}
	if s.PostedBy != "" {
		v.Set("s_postedby", s.PostedBy)
	}
	if len(s.KeywordsAll) > 0 {
		v.Set("s_key_all", strings.Join(s.KeywordsAll, ", "))
	}
	if s.KeywordsPhrase != "" {
		v.Set("s_key_phrase", s.KeywordsPhrase)
	}
	if len(s.KeywordsAny) > 0 {
		v.Set("s_key_one", strings.Join(s.KeywordsAny, ", "))
	}
	if len(s.KeywordsExclude) > 0 {
		v.Set("s_key_x", strings.Join(s.KeywordsExclude, ", "))
	}
	if s.Listserv != "" && s.Listserv != ListservAll {
		v.Set("s_list", string(s.Listserv))
	}
	if s.SearchIn == SearchInSubjectOnly {
		v.Set("s_cat", "1")
	}
	switch s.AttachmentFilter {
	case AttachmentFilterWithAttachments:
		v.Set("s_attachment", "1")
	case AttachmentFilterWithoutAttachments:
		v.Set("s_attachment", "0")
	}
	if s.DateFrom != nil {
		v.Set("s_postdatefrom", s.DateFrom.Format("01/02/2006"))
	}
	if s.DateTo != nil {
		v.Set("s_postdateto", s.DateTo.Format("01/02/2006"))
	}
	return v
}

// String renders a human-readable summary of the spec, used in logs
// and in the clarifier's confirmation message.
func (s SearchSpec) String() string {
	var parts []string
	if s.Simple != "" {
		parts = append(parts, fmt.Sprintf("keywords %q", s.Simple))
	}
	if len(s.KeywordsAll) > 0 {
		parts = append(parts, fmt.Sprintf("all of [%s]", strings.Join(s.KeywordsAll, ", ")))
	}
	if s.KeywordsPhrase != "" {
		parts = append(parts, fmt.Sprintf("phrase %q", s.KeywordsPhrase))
	}
	if len(s.KeywordsAny) > 0 {
		parts = append(parts, fmt.Sprintf("any of [%s]", strings.Join(s.KeywordsAny, ", ")))
	}
	if len(s.KeywordsExclude) > 0 {
		parts = append(parts, fmt.Sprintf("excluding [%s]", strings.Join(s.KeywordsExclude, ", ")))
	}
	if s.PostedBy != "" {
		parts = append(parts, fmt.Sprintf("posted by %q", s.PostedBy))
	}
	if s.AuthorFirstName != "" || s.AuthorLastName != "" {
		parts = append(parts, fmt.Sprintf("expert %q", strings.TrimSpace(s.AuthorFirstName+" "+s.AuthorLastName)))
	}
	if s.Listserv != "" && s.Listserv != ListservAll {
		parts = append(parts, fmt.Sprintf("listserv=%s", s.Listserv))
	}
	if s.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("from %s", s.DateFrom.Format("2006-01-02")))
	}
	if s.DateTo != nil {
		parts = append(parts, fmt.Sprintf("to %s", s.DateTo.Format("2006-01-02")))
	}
	if len(parts) == 0 {
		return "empty search"
	}
	return strings.Join(parts, "; ")
}
