package model

// Operator is one of the fixed comparison operators a Condition may use.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpContains     Operator = "contains"
)

// Operators lists the supported operators in display order.
var Operators = []Operator{OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpContains}

// Valid reports whether op is part of the supported operator set.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Condition is a single field/operator/value guard owned by a Payload or a Template.
// Exactly one of PayloadID and TemplateID is set once persisted.
type Condition struct {
	ID         int64    `json:"id,omitempty" yaml:"-"`
	PayloadID  int64    `json:"payload_id,omitempty" yaml:"-"`
	TemplateID int64    `json:"template_id,omitempty" yaml:"-"`
	Field      string   `json:"field" yaml:"field"`
	Operator   Operator `json:"operator" yaml:"operator"`
	Value      string   `json:"value" yaml:"value"`
	Position   int      `json:"position" yaml:"-"`
}
