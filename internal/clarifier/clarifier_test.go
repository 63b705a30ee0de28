package clarifier

import (
	"context"
	"errors"
	"testing"

	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply string
	err   error
}

func (f *fakeChat) ModelName() string { return "fake-model" }

func (f *fakeChat) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Response{Content: f.reply}, nil
}

func TestClarifyVague(t *testing.T) {
	c := New(&fakeChat{reply: `{"vague": true, "follow_up_question": "Do you mean posts BY John Smith, or messages ABOUT John Smith?"}`})
	result, err := c.Clarify(context.Background(), "John Smith")
	require.NoError(t, err)
	assert.True(t, result.Vague)
	assert.Contains(t, result.FollowUp, "BY John Smith")
}

func TestClarifySpecific(t *testing.T) {
	c := New(&fakeChat{reply: `{"vague": false, "real_question": "recent discussions about SIBTF applications"}`})
	result, err := c.Clarify(context.Background(), "recent discussions about SIBTF applications")
	require.NoError(t, err)
	assert.False(t, result.Vague)
	assert.Equal(t, "recent discussions about SIBTF applications", result.RealQuestion)
}

func TestClarifyFailsOpenOnReasoningUnavailable(t *testing.T) {
	c := New(&fakeChat{err: errors.New("connection refused")})
	result, err := c.Clarify(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, result.Vague)
	assert.Equal(t, "anything", result.RealQuestion)
}

func TestClarifyFailsOpenOnUnparsableReply(t *testing.T) {
	c := New(&fakeChat{reply: "not json at all"})
	result, err := c.Clarify(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, result.Vague)
	assert.Equal(t, "anything", result.RealQuestion)
}

func TestResolveFollowUp(t *testing.T) {
	assert.Equal(t, "posts by Chris Johnson", ResolveFollowUp("Chris Johnson", "posts by Chris Johnson"))
	assert.Equal(t, "Chris Johnson", ResolveFollowUp("Chris Johnson", ""))
}
