package model

// Field kinds understood by the form engine and the frontend.
const (
	FieldText        = "text"
	FieldTextarea    = "textarea"
	FieldNumber      = "number"
	FieldToggle      = "toggle"
	FieldDate        = "date"
	FieldSelect      = "select"       // foreign key, options from a lookup
	FieldMultiselect = "multiselect"  // many-to-many checklist
	FieldStringArray = "string_array" // dynamic repeatable text entries
	FieldImage       = "image"        // URL, filled by upload or manual entry
)

// FieldKinds lists every valid field kind, for definition validation.
var FieldKinds = []string{
	FieldText, FieldTextarea, FieldNumber, FieldToggle, FieldDate,
	FieldSelect, FieldMultiselect, FieldStringArray, FieldImage,
}

// ResourceDefinition is the root structure of a definition file. Each file
// declares one admin resource: its API path, fields, list columns, filters,
// and upload settings. The seven entity screens are instances of this one
// shape.
type ResourceDefinition struct {
	ID        string `yaml:"id"         json:"id"`
	Path      string `yaml:"path"       json:"path"`
	Label     string `yaml:"label"      json:"label"`
	Singular  string `yaml:"singular"   json:"singular"`
	NameField string `yaml:"name_field" json:"name_field"`
	Public    bool   `yaml:"public"     json:"public"`
	PerPage   int    `yaml:"per_page"   json:"per_page,omitempty"`
	Order     int    `yaml:"order"      json:"order,omitempty"`

	Fields  []FieldDefinition  `yaml:"fields"  json:"fields"`
	Columns []ColumnDefinition `yaml:"columns" json:"columns,omitempty"`
	Filters []FilterDefinition `yaml:"filters" json:"filters,omitempty"`
	Lookups []LookupDefinition `yaml:"lookups" json:"lookups,omitempty"`
	Upload  *UploadDefinition  `yaml:"upload"  json:"upload,omitempty"`

	// Checksum and SourceFile are computed at load time, not part of the YAML.
	Checksum   string `yaml:"-" json:"-"`
	SourceFile string `yaml:"-" json:"-"`
}

// FieldDefinition describes a single form field.
type FieldDefinition struct {
	Field       string `yaml:"field"       json:"field"`
	Label       string `yaml:"label"       json:"label"`
	Kind        string `yaml:"kind"        json:"kind"`
	Required    bool   `yaml:"required"    json:"required,omitempty"`
	Default     string `yaml:"default"     json:"default,omitempty"`
	Placeholder string `yaml:"placeholder" json:"placeholder,omitempty"`
	HelpText    string `yaml:"help_text"   json:"help_text,omitempty"`

	// LookupID binds select/multiselect fields to an option list.
	LookupID string `yaml:"lookup_id" json:"lookup_id,omitempty"`
	// Folder names the upload destination for image fields.
	Folder string `yaml:"folder" json:"folder,omitempty"`
	// Options are fixed choices for select fields without a lookup.
	Options []StaticOption `yaml:"options" json:"options,omitempty"`
}

// StaticOption is a label/value pair for fixed-choice selectors.
type StaticOption struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// ColumnDefinition describes a visible list column.
type ColumnDefinition struct {
	Field     string            `yaml:"field"      json:"field"`
	Label     string            `yaml:"label"      json:"label"`
	Kind      string            `yaml:"kind"       json:"kind,omitempty"`
	StatusMap map[string]string `yaml:"status_map" json:"status_map,omitempty"`
}

// FilterDefinition describes a filter control above a list. Server filters
// are forwarded as query parameters; client-side filters are applied over the
// current page only, for fields the API cannot filter on.
type FilterDefinition struct {
	Field      string         `yaml:"field"       json:"field"`
	Label      string         `yaml:"label"       json:"label"`
	Kind       string         `yaml:"kind"        json:"kind"`
	LookupID   string         `yaml:"lookup_id"   json:"lookup_id,omitempty"`
	Options    []StaticOption `yaml:"options"     json:"options,omitempty"`
	ClientSide bool           `yaml:"client_side" json:"client_side,omitempty"`
}

// LookupDefinition describes an option list backed by another resource's list
// endpoint, used to populate foreign-key selectors.
type LookupDefinition struct {
	ID         string `yaml:"id"          json:"id"`
	Resource   string `yaml:"resource"    json:"resource"`
	LabelField string `yaml:"label_field" json:"label_field"`
	ValueField string `yaml:"value_field" json:"value_field"`
	TTL        string `yaml:"ttl"         json:"ttl,omitempty"`
}

// UploadDefinition describes where a resource's images go and how large they
// may be. MaxMB is enforced before any network call is made.
type UploadDefinition struct {
	Folder string `yaml:"folder" json:"folder"`
	MaxMB  int64  `yaml:"max_mb" json:"max_mb"`
}

// MaxBytes returns the ceiling in bytes.
func (u *UploadDefinition) MaxBytes() int64 {
	return u.MaxMB << 20
}

// FieldByName returns the field definition with the given name.
func (d *ResourceDefinition) FieldByName(name string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// AdminPath returns the authenticated API path for this resource.
func (d *ResourceDefinition) AdminPath() string {
	return "/admin/" + d.Path
}

// PublicPath returns the unauthenticated read-only path, valid when Public.
func (d *ResourceDefinition) PublicPath() string {
	return "/" + d.Path
}
