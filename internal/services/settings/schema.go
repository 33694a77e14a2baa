package settings

// FieldType enumerates the admin form field kinds
type FieldType string

const (
	FieldCheckbox FieldType = "checkbox"
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	// FieldTitle is a display-only section heading. Title fields are
	// never persisted.
	FieldTitle FieldType = "title"
)

// Option is a selectable value for a select field
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormField describes one field of the admin settings form
type FormField struct {
	Key         string    `json:"key"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Default     string    `json:"default,omitempty"`
	Options     []Option  `json:"options,omitempty"`
}

// FormSchema is the full admin form. When the gateway cannot operate the
// schema collapses to a single title field carrying the reason.
type FormSchema struct {
	Fields []FormField `json:"fields"`
}
