// Package openapi loads the training-center API's OpenAPI document and
// indexes its operations by method and path template, so resource definitions
// can be checked against the real HTTP contract at startup.
package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Index is an in-memory index of API operations keyed by "METHOD path".
type Index struct {
	operations map[string]*openapi3.Operation
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{operations: make(map[string]*openapi3.Operation)}
}

func operationKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Load parses and validates the OpenAPI document at the given path and
// indexes every operation.
func (idx *Index) Load(specPath string) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return fmt.Errorf("openapi: loading %s: %w", specPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("openapi: validating %s: %w", specPath, err)
	}

	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			idx.operations[operationKey(method, path)] = op
		}
	}
	return nil
}

// HasOperation reports whether the document declares the given operation.
func (idx *Index) HasOperation(method, path string) bool {
	_, ok := idx.operations[operationKey(method, path)]
	return ok
}

// Len returns the number of indexed operations.
func (idx *Index) Len() int {
	return len(idx.operations)
}

// Paths returns all indexed "METHOD path" keys, sorted. Used in startup logs.
func (idx *Index) Paths() []string {
	keys := make([]string, 0, len(idx.operations))
	for k := range idx.operations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
