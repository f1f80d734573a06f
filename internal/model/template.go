package model

// TemplateStatus gates who can see a Template.
type TemplateStatus string

const (
	StatusPrivate   TemplateStatus = "private"
	StatusReviewing TemplateStatus = "reviewing"
	StatusPublic    TemplateStatus = "public"
)

// Valid reports whether s is a known template status.
func (s TemplateStatus) Valid() bool {
	return s == StatusPrivate || s == StatusReviewing || s == StatusPublic
}

// Template is a reusable, user-authored content definition.
type Template struct {
	ID          int64          `json:"id" yaml:"-"`
	UserID      int64          `json:"user_id" yaml:"-"`
	Name        string         `json:"name" yaml:"name"`
	ContentType ContentType    `json:"content_type" yaml:"content_type"`
	Content     string         `json:"content" yaml:"content"`
	Params      string         `json:"params" yaml:"params"`
	Status      TemplateStatus `json:"status" yaml:"status"`
	Conditions  []Condition    `json:"conditions" yaml:"conditions"`
}

// VisibleTo reports whether the template can be read by the given user.
func (t *Template) VisibleTo(user *UserContext) bool {
	if t.Status == StatusPublic {
		return true
	}
	if user == nil {
		return false
	}
	return user.ID == t.UserID || user.IsAdmin()
}
