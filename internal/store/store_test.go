package store

import (
	"testing"
	"time"

	"github.com/caaa-research/engine/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestShouldRefineBody(t *testing.T) {
	t.Run("longer body always refines", func(t *testing.T) {
		assert.True(t, shouldRefineBody(50, 120))
	})

	t.Run("placeholder-short stored body always refines", func(t *testing.T) {
		assert.True(t, shouldRefineBody(5, 5))
	})

	t.Run("shorter body over threshold does not refine", func(t *testing.T) {
		assert.False(t, shouldRefineBody(500, 120))
	})
}

func TestMessageRowRoundTrip(t *testing.T) {
	posted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := types.Message{
		UpstreamID:    "21783907",
		PostedAt:      posted,
		FromDisplay:   "Jane Roe",
		FromEmail:     "jane@example.com",
		Listserv:      types.ListservLamaaa,
		Subject:       "SIBTF question",
		Body:          "some body text",
		HasAttachment: true,
	}
	row := messageRowFrom(msg)
	assert.Equal(t, msg.UpstreamID, row.UpstreamID)
	assert.Equal(t, len(msg.Body), row.BodyLength)

	back := row.toDomain()
	assert.Equal(t, msg.UpstreamID, back.UpstreamID)
	assert.Equal(t, msg.Subject, back.Subject)
	assert.Equal(t, msg.Listserv, back.Listserv)
}

func TestSearchRowToDomain(t *testing.T) {
	row := searchRow{
		ID:           "abc-123",
		RealQuestion: "messages from Chris Johnson",
		QueryType:    string(types.QueryTypeGeneral),
		Status:       string(types.SearchStatusPending),
		Spec:         `{"PostedBy":"Chris Johnson","Listserv":"all","SearchIn":"subject_and_body","AttachmentFilter":"all","MaxMessages":100,"MaxPages":10}`,
	}
	search, err := row.toDomain()
	assert.NoError(t, err)
	assert.Equal(t, "Chris Johnson", search.Spec.PostedBy)
	assert.Equal(t, types.QueryTypeGeneral, search.QueryType)
}
