package engine

import (
	"context"

	"webhook-bot/internal/model"
)

// CompiledPayload is a Payload with its conditions compiled.
type CompiledPayload struct {
	model.Payload
	Compiled []CompiledCondition
}

// CompilePayloads compiles every payload, keeping stored order.
func CompilePayloads(payloads []model.Payload) []CompiledPayload {
	out := make([]CompiledPayload, len(payloads))
	for i, p := range payloads {
		out[i] = CompiledPayload{Payload: p, Compiled: CompileConditions(p.Conditions)}
	}
	return out
}

// ConditionError reports a stored condition that could not be evaluated.
type ConditionError struct {
	PayloadID int64  `json:"payload_id"`
	Message   string `json:"message"`
}

// DispatchResult is the outcome of one dispatch. When Matched is true and
// Err is set, the payload matched but could not be rendered.
type DispatchResult struct {
	Matched         bool              `json:"matched"`
	PayloadID       int64             `json:"payload_id,omitempty"`
	ContentType     model.ContentType `json:"content_type,omitempty"`
	Content         string            `json:"content,omitempty"`
	Missing         []string          `json:"missing,omitempty"`
	Undeclared      []string          `json:"undeclared,omitempty"`
	ConditionErrors []ConditionError  `json:"condition_errors,omitempty"`
	Error           string            `json:"error,omitempty"`
	Err             error             `json:"-"`
}

func (r *DispatchResult) fail(err error) *DispatchResult {
	r.Err = err
	r.Error = err.Error()
	return r
}

// Dispatch tries payloads in stored order and renders the first one whose
// conditions all match. Later payloads are never evaluated once one matches.
// ctx is checked between payloads.
func Dispatch(ctx context.Context, payloads []CompiledPayload, event Value) *DispatchResult {
	result := &DispatchResult{}
	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return result.fail(err)
		}

		ok, err := Matches(event, p.Compiled)
		if err != nil {
			result.ConditionErrors = append(result.ConditionErrors, ConditionError{
				PayloadID: p.ID,
				Message:   err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}

		result.Matched = true
		result.PayloadID = p.ID
		result.ContentType = p.ContentType
		rendered, err := Render(p.ContentType, p.Content, p.Params, event)
		if err != nil {
			return result.fail(err)
		}
		result.ContentType = rendered.ContentType
		result.Content = rendered.Content
		result.Missing = rendered.Missing
		result.Undeclared = rendered.Undeclared
		return result
	}
	return result
}
