package engine

import (
	"fmt"
	"strings"

	"webhook-bot/internal/model"
)

// ValidateCondition checks one authored condition. All problems are
// reported together.
func ValidateCondition(field, operator, value string) error {
	details := conditionDetails("", field, operator, value)
	if len(details) > 0 {
		return ValidationError(details)
	}
	return nil
}

func conditionDetails(prefix, field, operator, value string) []ErrorDetail {
	var details []ErrorDetail
	if strings.TrimSpace(field) == "" {
		details = append(details, ErrorDetail{Field: prefix + "field", Rule: "required", Message: "field is required"})
	} else if _, err := ParsePath(field); err != nil {
		details = append(details, ErrorDetail{Field: prefix + "field", Rule: "path", Message: err.Error()})
	}
	if !model.Operator(strings.TrimSpace(operator)).Valid() {
		details = append(details, ErrorDetail{
			Field:   prefix + "operator",
			Rule:    "enum",
			Message: fmt.Sprintf("operator must be one of %v", model.Operators),
		})
	}
	if strings.TrimSpace(value) == "" {
		details = append(details, ErrorDetail{Field: prefix + "value", Rule: "required", Message: "value is required"})
	}
	return details
}

// NormalizeConditionRows zips the parallel form arrays into conditions.
// Each member is trimmed and a row with any empty member is dropped.
func NormalizeConditionRows(fields, operators, values []string) []model.Condition {
	n := len(fields)
	if len(operators) < n {
		n = len(operators)
	}
	if len(values) < n {
		n = len(values)
	}

	var out []model.Condition
	for i := 0; i < n; i++ {
		f := strings.TrimSpace(fields[i])
		op := strings.TrimSpace(operators[i])
		v := strings.TrimSpace(values[i])
		if f == "" || op == "" || v == "" {
			continue
		}
		out = append(out, model.Condition{Field: f, Operator: model.Operator(op), Value: v})
	}
	return out
}

// ValidateConditions checks every condition and returns the combined details.
func ValidateConditions(conds []model.Condition) []ErrorDetail {
	var details []ErrorDetail
	for i, c := range conds {
		prefix := fmt.Sprintf("conditions[%d].", i)
		details = append(details, conditionDetails(prefix, c.Field, string(c.Operator), c.Value)...)
	}
	return details
}

// ContentInput is the authored part shared by payloads and templates.
type ContentInput struct {
	ContentType model.ContentType
	Content     string
	Params      string
	Conditions  []model.Condition
}

func contentDetails(in ContentInput) []ErrorDetail {
	var details []ErrorDetail
	if !in.ContentType.Valid() {
		details = append(details, ErrorDetail{Field: "content_type", Rule: "enum", Message: "content_type must be text or blocks"})
	}
	if strings.TrimSpace(in.Content) == "" {
		details = append(details, ErrorDetail{Field: "content", Rule: "required", Message: "Please enter content"})
	} else if in.ContentType == model.ContentBlocks && !isJSONDocument(in.Content) {
		details = append(details, ErrorDetail{Field: "content", Rule: "json", Message: "blocks content must be a JSON object or array"})
	}
	if strings.TrimSpace(in.Params) != "" {
		if _, err := ParseJSON([]byte(in.Params)); err != nil {
			details = append(details, ErrorDetail{Field: "params", Rule: "json", Message: "params must be valid JSON"})
		}
	}
	return append(details, ValidateConditions(in.Conditions)...)
}

// ValidatePayloadInput validates a payload create or update body.
func ValidatePayloadInput(in ContentInput) error {
	if details := contentDetails(in); len(details) > 0 {
		return ValidationError(details)
	}
	return nil
}

// ValidateTemplateInput validates a template body; name is required too.
func ValidateTemplateInput(name string, in ContentInput) error {
	var details []ErrorDetail
	if strings.TrimSpace(name) == "" {
		details = append(details, ErrorDetail{Field: "name", Rule: "required", Message: "name is required"})
	}
	details = append(details, contentDetails(in)...)
	if len(details) > 0 {
		return ValidationError(details)
	}
	return nil
}

// ValidateFilter checks that a webhook filter compiles. Empty is allowed.
func ValidateFilter(filter string) error {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	if _, err := CompileFilter(filter); err != nil {
		return ValidationError([]ErrorDetail{{Field: "filter", Rule: "expr", Message: err.Error()}})
	}
	return nil
}
