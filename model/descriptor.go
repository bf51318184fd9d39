package model

// ResourceSummary is one entry of the resource index served to the admin SPA.
type ResourceSummary struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Singular string `json:"singular"`
	Route    string `json:"route"`
	Order    int    `json:"order"`
}

// ListDescriptor is the resolved list-screen metadata for one resource.
type ListDescriptor struct {
	Resource     string             `json:"resource"`
	Title        string             `json:"title"`
	DataEndpoint string             `json:"data_endpoint"`
	NameField    string             `json:"name_field"`
	PerPage      int                `json:"per_page"`
	Columns      []ColumnDefinition `json:"columns"`
	Filters      []FilterDescriptor `json:"filters,omitempty"`
	EmptyMessage string             `json:"empty_message"`
}

// FilterDescriptor is a resolved filter control, with lookup options expanded.
type FilterDescriptor struct {
	Field      string             `json:"field"`
	Label      string             `json:"label"`
	Kind       string             `json:"kind"`
	ClientSide bool               `json:"client_side,omitempty"`
	Options    []OptionDescriptor `json:"options,omitempty"`
	LookupID   string             `json:"lookup_id,omitempty"`
}

// FormDescriptor is the resolved create/edit form metadata for one resource.
type FormDescriptor struct {
	Resource       string            `json:"resource"`
	Title          string            `json:"title"`
	SubmitEndpoint string            `json:"submit_endpoint"`
	SuccessRoute   string            `json:"success_route"`
	Fields         []FieldDescriptor `json:"fields"`
	Upload         *UploadDescriptor `json:"upload,omitempty"`
}

// FieldDescriptor is a resolved form field sent to the frontend.
type FieldDescriptor struct {
	Field       string             `json:"field"`
	Label       string             `json:"label"`
	Kind        string             `json:"kind"`
	Required    bool               `json:"required,omitempty"`
	Default     string             `json:"default,omitempty"`
	Placeholder string             `json:"placeholder,omitempty"`
	HelpText    string             `json:"help_text,omitempty"`
	LookupID    string             `json:"lookup_id,omitempty"`
	Folder      string             `json:"folder,omitempty"`
	Options     []OptionDescriptor `json:"options,omitempty"`
}

// OptionDescriptor is a resolved option for selectors and filters.
type OptionDescriptor struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UploadDescriptor tells the frontend where images for this resource go and
// the ceiling the server will also enforce.
type UploadDescriptor struct {
	Endpoint string `json:"endpoint"`
	Folder   string `json:"folder"`
	MaxMB    int64  `json:"max_mb"`
	Accept   string `json:"accept"`
}
