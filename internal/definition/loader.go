// Package definition loads YAML resource definitions, validates them against
// the backend's OpenAPI contract, and provides a fast-lookup registry.
package definition

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lkpmandiri/backoffice/model"
)

// Loader scans a directory for YAML definition files and parses them.
type Loader struct{}

// NewLoader creates a new definition Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll scans the directory for *.yaml and *.yml files and parses each into
// a ResourceDefinition.
func (l *Loader) LoadAll(dir string) ([]model.ResourceDefinition, error) {
	var defs []model.ResourceDefinition

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		def, err := l.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
	}

	return defs, nil
}

// LoadFile loads and parses a single YAML definition file, filling derived
// fields and recording the checksum and source path.
func (l *Loader) LoadFile(path string) (model.ResourceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ResourceDefinition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var def model.ResourceDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return model.ResourceDefinition{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if def.Path == "" {
		def.Path = def.ID
	}
	if def.PerPage == 0 {
		def.PerPage = 10
	}
	def.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	def.SourceFile = path

	return def, nil
}
