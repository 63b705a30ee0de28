package client

import (
	"context"
	"net/http"

	"github.com/caaa-research/engine/internal/types"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

// ClarifyRequest mirrors internal/handler.ClarifyRequest.
type ClarifyRequest struct {
	Intent string `json:"intent"`
}

// Clarify checks a raw user intent for vagueness.
func (c *Client) Clarify(ctx context.Context, intent string) (*interfaces.ClarifyResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/clarify", ClarifyRequest{Intent: intent}, nil)
	if err != nil {
		return nil, err
	}
	var result interfaces.ClarifyResult
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitSearchRequest mirrors internal/handler.SubmitSearchRequest.
type SubmitSearchRequest struct {
	RealQuestion string          `json:"real_question"`
	QueryType    types.QueryType `json:"query_type"`
}

// SubmitSearchResponse mirrors internal/handler.SubmitSearchResponse.
type SubmitSearchResponse struct {
	SearchID string             `json:"search_id"`
	Status   types.SearchStatus `json:"status"`
}

// SubmitSearch enqueues a new search for the real question and query type.
func (c *Client) SubmitSearch(ctx context.Context, realQuestion string, queryType types.QueryType) (*SubmitSearchResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/searches", SubmitSearchRequest{
		RealQuestion: realQuestion,
		QueryType:    queryType,
	}, nil)
	if err != nil {
		return nil, err
	}
	var result SubmitSearchResponse
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSearchStatus polls a search's status and running counters.
func (c *Client) GetSearchStatus(ctx context.Context, searchID string) (*types.Search, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/searches/"+searchID, nil, nil)
	if err != nil {
		return nil, err
	}
	var result types.Search
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchResults mirrors internal/handler.SearchResultsResponse.
type SearchResults struct {
	Messages []types.Message  `json:"messages"`
	Analyses []types.Analysis `json:"analyses"`
	Stats    types.SearchStats `json:"stats"`
}

// GetSearchResults fetches the relevant messages and stats for a
// completed search.
func (c *Client) GetSearchResults(ctx context.Context, searchID string) (*SearchResults, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/searches/"+searchID+"/results", nil, nil)
	if err != nil {
		return nil, err
	}
	var result SearchResults
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentSearches lists the most recently submitted searches.
func (c *Client) RecentSearches(ctx context.Context) ([]types.Search, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/searches", nil, nil)
	if err != nil {
		return nil, err
	}
	var result []types.Search
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitSynthesisFeedback records whether a search's synthesized
// verdict was useful.
func (c *Client) SubmitSynthesisFeedback(ctx context.Context, searchID string, isPositive bool, comment string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/searches/"+searchID+"/feedback", map[string]interface{}{
		"is_positive": isPositive,
		"comment":     comment,
	}, nil)
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}

// SubmitMessageFeedback records whether a single message's relevance
// verdict was correct.
func (c *Client) SubmitMessageFeedback(ctx context.Context, searchID, messageID string, isPositive bool, comment string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/searches/"+searchID+"/messages/feedback", map[string]interface{}{
		"message_id":  messageID,
		"is_positive": isPositive,
		"comment":     comment,
	}, nil)
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}
