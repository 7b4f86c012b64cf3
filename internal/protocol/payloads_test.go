package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_PreservesExtraFields(t *testing.T) {
	t.Parallel()

	var q Question
	err := json.Unmarshal([]byte(`{"q":"2+2?","ans":"4","options":["3","4"],"points":2}`), &q)
	require.NoError(t, err)

	assert.Equal(t, "2+2?", q.Prompt)
	assert.Equal(t, "4", q.Answer)
	assert.Equal(t, []any{"3", "4"}, q.Extra["options"])
	assert.Equal(t, float64(2), q.Extra["points"])

	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":"2+2?","ans":"4","options":["3","4"],"points":2}`, string(out))
}

func TestQuestion_NoExtra(t *testing.T) {
	t.Parallel()

	var q Question
	require.NoError(t, json.Unmarshal([]byte(`{"q":"a","ans":"b"}`), &q))
	assert.Nil(t, q.Extra)

	// q/ans 不能被 Extra 覆盖
	q.Extra = map[string]any{"q": "spoofed"}
	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":"a","ans":"b"}`, string(out))
}

func TestPayloadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   interface{ Validate() error }
		wantField string
	}{
		{name: "join ok", payload: &JoinPayload{PlayerName: "Alice"}},
		{name: "join blank", payload: &JoinPayload{PlayerName: "  "}, wantField: "playerName"},
		{name: "start ok", payload: &StartPayload{GameName: "Quiz", Host: "Carol"}},
		{name: "start no game", payload: &StartPayload{Host: "Carol"}, wantField: "gameName"},
		{name: "start no host", payload: &StartPayload{GameName: "Quiz"}, wantField: "host"},
		{name: "ask ok", payload: &Question{Prompt: "q", Answer: "a"}},
		{name: "ask no prompt", payload: &Question{Answer: "a"}, wantField: "q"},
		{name: "ask no answer", payload: &Question{Prompt: "q"}, wantField: "ans"},
		{name: "answer ok", payload: &AnswerPayload{Answer: "4"}},
		{name: "answer blank", payload: &AnswerPayload{Player: "Alice"}, wantField: "answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.payload.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}

func TestIsInbound(t *testing.T) {
	t.Parallel()

	for _, mt := range []MessageType{MsgJoin, MsgStart, MsgAsk, MsgAnswer, MsgGameOver, MsgPing} {
		assert.True(t, IsInbound(mt), mt)
	}
	for _, mt := range []MessageType{MsgWelcome, MsgPlayers, MsgEnd, MsgError, "bogus"} {
		assert.False(t, IsInbound(mt), mt)
	}
}
