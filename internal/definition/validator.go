package definition

import (
	"fmt"

	"github.com/lkpmandiri/backoffice/internal/openapi"
	"github.com/lkpmandiri/backoffice/model"
)

// ValidationError describes a single problem found in a definition file.
type ValidationError struct {
	Resource string
	Field    string
	Message  string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", e.Resource, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Message)
}

// Validator checks resource definitions for structural problems and verifies
// that every operation they imply exists in the backend's OpenAPI contract.
type Validator struct{}

// NewValidator creates a definition Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns all problems found across the given definitions. An empty
// slice means the definitions are usable.
func (v *Validator) Validate(defs []model.ResourceDefinition, idx *openapi.Index) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]string, len(defs))
	resourceIDs := make(map[string]bool, len(defs))
	for _, def := range defs {
		resourceIDs[def.ID] = true
	}

	for _, def := range defs {
		if def.ID == "" {
			errs = append(errs, ValidationError{Resource: def.SourceFile, Message: "id is required"})
			continue
		}
		if prev, dup := seen[def.ID]; dup {
			errs = append(errs, ValidationError{
				Resource: def.ID,
				Message:  fmt.Sprintf("duplicate id (also defined in %s)", prev),
			})
			continue
		}
		seen[def.ID] = def.SourceFile

		errs = append(errs, v.validateResource(def, resourceIDs)...)
		if idx != nil {
			errs = append(errs, v.validateContract(def, idx)...)
		}
	}

	return errs
}

func (v *Validator) validateResource(def model.ResourceDefinition, resourceIDs map[string]bool) []ValidationError {
	var errs []ValidationError

	fail := func(field, msg string) {
		errs = append(errs, ValidationError{Resource: def.ID, Field: field, Message: msg})
	}

	if def.Label == "" {
		fail("", "label is required")
	}
	if def.NameField == "" {
		fail("", "name_field is required (used for delete confirmation)")
	} else if _, ok := def.FieldByName(def.NameField); !ok {
		fail(def.NameField, "name_field does not reference a defined field")
	}

	lookupIDs := make(map[string]bool, len(def.Lookups))
	for _, lk := range def.Lookups {
		lookupIDs[lk.ID] = true
		if lk.Resource == "" || !resourceIDs[lk.Resource] {
			fail(lk.ID, fmt.Sprintf("lookup references unknown resource %q", lk.Resource))
		}
		if lk.LabelField == "" || lk.ValueField == "" {
			fail(lk.ID, "lookup requires label_field and value_field")
		}
	}

	fieldNames := make(map[string]bool, len(def.Fields))
	hasImage := false
	for _, f := range def.Fields {
		if f.Field == "" {
			fail("", "field with empty name")
			continue
		}
		if fieldNames[f.Field] {
			fail(f.Field, "duplicate field name")
		}
		fieldNames[f.Field] = true

		if !validKind(f.Kind) {
			fail(f.Field, fmt.Sprintf("unknown field kind %q", f.Kind))
		}
		switch f.Kind {
		case model.FieldSelect, model.FieldMultiselect:
			if f.LookupID == "" && len(f.Options) == 0 {
				fail(f.Field, "select fields require a lookup_id or static options")
			}
			if f.LookupID != "" && !lookupIDs[f.LookupID] {
				fail(f.Field, fmt.Sprintf("unknown lookup_id %q", f.LookupID))
			}
		case model.FieldImage:
			hasImage = true
		}
	}

	if hasImage {
		if def.Upload == nil {
			fail("", "image fields require an upload section")
		} else {
			if def.Upload.Folder == "" {
				fail("", "upload.folder is required")
			}
			if def.Upload.MaxMB <= 0 {
				fail("", "upload.max_mb must be positive")
			}
		}
	}

	for _, fl := range def.Filters {
		if fl.Field == "" {
			fail("", "filter with empty field")
			continue
		}
		if fl.Kind == model.FieldSelect && fl.LookupID != "" && !lookupIDs[fl.LookupID] {
			fail(fl.Field, fmt.Sprintf("filter references unknown lookup_id %q", fl.LookupID))
		}
	}

	return errs
}

// validateContract checks that every HTTP operation the definition implies is
// declared in the backend OpenAPI document.
func (v *Validator) validateContract(def model.ResourceDefinition, idx *openapi.Index) []ValidationError {
	var errs []ValidationError

	require := func(method, path string) {
		if !idx.HasOperation(method, path) {
			errs = append(errs, ValidationError{
				Resource: def.ID,
				Message:  fmt.Sprintf("backend contract is missing %s %s", method, path),
			})
		}
	}

	adminPath := def.AdminPath()
	itemPath := adminPath + "/{id}"
	require("GET", adminPath)
	require("POST", adminPath)
	require("GET", itemPath)
	require("PUT", itemPath)
	require("DELETE", itemPath)

	if def.Public {
		require("GET", def.PublicPath())
	}
	if def.Upload != nil {
		require("POST", "/admin/upload")
	}

	return errs
}

func validKind(kind string) bool {
	for _, k := range model.FieldKinds {
		if k == kind {
			return true
		}
	}
	return false
}
