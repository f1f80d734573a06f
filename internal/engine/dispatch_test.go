package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-bot/internal/model"
)

func textPayload(id int64, content string, conds ...model.Condition) model.Payload {
	return model.Payload{ID: id, WebhookID: 1, ContentType: model.ContentText, Content: content, Conditions: conds}
}

func TestDispatch_FirstMatchWins(t *testing.T) {
	payloads := CompilePayloads([]model.Payload{
		textPayload(1, "closed", model.Condition{Field: "action", Operator: "==", Value: "closed"}),
		textPayload(2, "opened by {{user}}", model.Condition{Field: "action", Operator: "==", Value: "opened"}),
		textPayload(3, "catch-all"),
	})

	res := Dispatch(context.Background(), payloads, mustEvent(t, `{"action":"opened","user":"bo"}`))
	require.NoError(t, res.Err)
	assert.True(t, res.Matched)
	assert.Equal(t, int64(2), res.PayloadID)
	assert.Equal(t, "opened by bo", res.Content)
	assert.Equal(t, model.ContentText, res.ContentType)
}

func TestDispatch_NeverEvaluatesLaterPayloads(t *testing.T) {
	// The third payload has a broken operator; reaching it would record a
	// condition error.
	payloads := CompilePayloads([]model.Payload{
		textPayload(1, "no", model.Condition{Field: "x", Operator: "==", Value: "2"}),
		textPayload(2, "yes", model.Condition{Field: "x", Operator: "==", Value: "1"}),
		textPayload(3, "never", model.Condition{Field: "x", Operator: "bogus", Value: "1"}),
	})
	res := Dispatch(context.Background(), payloads, mustEvent(t, `{"x":1}`))
	assert.True(t, res.Matched)
	assert.Equal(t, int64(2), res.PayloadID)
	assert.Empty(t, res.ConditionErrors)
}

func TestDispatch_NoMatch(t *testing.T) {
	payloads := CompilePayloads([]model.Payload{
		textPayload(1, "a", model.Condition{Field: "x", Operator: ">", Value: "10"}),
	})
	res := Dispatch(context.Background(), payloads, mustEvent(t, `{"x":3}`))
	assert.False(t, res.Matched)
	assert.Zero(t, res.PayloadID)
	assert.NoError(t, res.Err)

	res = Dispatch(context.Background(), nil, mustEvent(t, `{}`))
	assert.False(t, res.Matched)
}

func TestDispatch_SkipsBrokenConditions(t *testing.T) {
	payloads := CompilePayloads([]model.Payload{
		textPayload(1, "broken", model.Condition{ID: 9, Field: "x", Operator: "=~", Value: "1"}),
		textPayload(2, "fallback"),
	})
	res := Dispatch(context.Background(), payloads, mustEvent(t, `{"x":1}`))
	assert.True(t, res.Matched)
	assert.Equal(t, int64(2), res.PayloadID)
	require.Len(t, res.ConditionErrors, 1)
	assert.Equal(t, int64(1), res.ConditionErrors[0].PayloadID)
}

func TestDispatch_RenderFailureStops(t *testing.T) {
	payloads := CompilePayloads([]model.Payload{
		{ID: 1, ContentType: model.ContentBlocks, Content: "{not json"},
		textPayload(2, "fallback"),
	})
	res := Dispatch(context.Background(), payloads, mustEvent(t, `{}`))
	assert.True(t, res.Matched)
	assert.Equal(t, int64(1), res.PayloadID)
	require.Error(t, res.Err)
	assert.NotEmpty(t, res.Error)
}

func TestDispatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Dispatch(ctx, CompilePayloads([]model.Payload{textPayload(1, "x")}), Null())
	assert.False(t, res.Matched)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestSnapshot_Filter(t *testing.T) {
	wh := model.Webhook{ID: 4, Filter: `event.action == "opened"`}
	snap, err := NewSnapshot(wh, model.Bot{}, []model.Payload{textPayload(1, "hi")})
	require.NoError(t, err)

	res := snap.Dispatch(context.Background(), mustEvent(t, `{"action":"opened"}`))
	assert.True(t, res.Matched)

	res = snap.Dispatch(context.Background(), mustEvent(t, `{"action":"closed"}`))
	assert.False(t, res.Matched)
	assert.NoError(t, res.Err)

	_, err = NewSnapshot(model.Webhook{Filter: "event.action =="}, model.Bot{}, nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	snap, err := NewSnapshot(model.Webhook{ID: 3}, model.Bot{}, nil)
	require.NoError(t, err)

	got, gen := reg.Get(3)
	assert.Nil(t, got)
	assert.True(t, reg.Put(snap, gen))
	got, _ = reg.Get(3)
	assert.Same(t, snap, got)
	assert.Equal(t, 1, reg.Len())
	reg.Invalidate(3)
	got, _ = reg.Get(3)
	assert.Nil(t, got)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_InvalidateBetweenLoadAndPut(t *testing.T) {
	reg := NewRegistry()
	_, gen := reg.Get(5)
	stale, err := NewSnapshot(model.Webhook{ID: 5, Name: "old"}, model.Bot{}, nil)
	require.NoError(t, err)

	reg.Invalidate(5)
	assert.False(t, reg.Put(stale, gen), "stale load must not be cached")
	got, gen := reg.Get(5)
	assert.Nil(t, got)

	fresh, err := NewSnapshot(model.Webhook{ID: 5, Name: "new"}, model.Bot{}, nil)
	require.NoError(t, err)
	assert.True(t, reg.Put(fresh, gen))
	got, _ = reg.Get(5)
	assert.Same(t, fresh, got)

	other, _ := reg.Get(6)
	assert.Nil(t, other, "generations are per webhook")
}
