package templates

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/quickproject/qpc/pkg/models"
)

// BundleVersion is written into exported bundles.
const BundleVersion = "1.0.0"

// supportedBundles is the range of bundle versions Import accepts.
const supportedBundles = ">= 1.0.0, < 2.0.0"

//go:embed schema/bundle.schema.json
var bundleSchemaBytes []byte

var (
	bundleSchema     *jsonschema.Schema
	bundleSchemaOnce sync.Once
	bundleSchemaErr  error
)

// Bundle is the portable export format for custom templates.
type Bundle struct {
	Version   string                  `yaml:"version" json:"version"`
	Templates []models.CustomTemplate `yaml:"templates" json:"templates"`
}

// Format selects the export encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ConflictMode controls how Import treats names that already exist.
type ConflictMode string

const (
	// ConflictSkip leaves the existing template and continues.
	ConflictSkip ConflictMode = "skip"
	// ConflictFail stops at the first collision.
	ConflictFail ConflictMode = "fail"
)

// ImportResult lists what Import did.
type ImportResult struct {
	Added   []string
	Skipped []string
}

// Export writes every template as a bundle.
func (s *Store) Export(w io.Writer, format Format) error {
	b := Bundle{Version: BundleVersion, Templates: s.List()}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case "", FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode bundle: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// Import validates data (YAML or JSON) and adds every template in it.
func (s *Store) Import(ctx context.Context, data []byte, mode ConflictMode) (*ImportResult, error) {
	b, err := ParseBundle(data)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, t := range b.Templates {
		err := s.Add(ctx, t)
		switch {
		case err == nil:
			result.Added = append(result.Added, NormalizeName(t.Name))
		case errors.Is(err, ErrNameCollision) && mode != ConflictFail:
			result.Skipped = append(result.Skipped, NormalizeName(t.Name))
		default:
			return result, err
		}
	}
	return result, nil
}

// ParseBundle validates data against the bundle schema and version range.
func ParseBundle(data []byte) (*Bundle, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidBundle, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidBundle)
	}

	if err := validateBundle(raw); err != nil {
		return nil, err
	}

	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidBundle, err)
	}

	if err := checkBundleVersion(b.Version); err != nil {
		return nil, err
	}
	for _, t := range b.Templates {
		if err := checkProjects(t.Projects); err != nil {
			return nil, fmt.Errorf("%w: template %q: %v", ErrInvalidBundle, t.Name, err)
		}
	}
	return &b, nil
}

func checkBundleVersion(v string) error {
	version, err := semver.NewVersion(strings.TrimPrefix(v, "v"))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, v, err)
	}
	constraint, err := semver.NewConstraint(supportedBundles)
	if err != nil {
		return fmt.Errorf("parse version constraint: %w", err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, v, supportedBundles)
	}
	return nil
}

// getBundleSchema compiles the embedded JSON schema once and returns it.
func getBundleSchema() (*jsonschema.Schema, error) {
	bundleSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(bundleSchemaBytes))
		if err != nil {
			bundleSchemaErr = fmt.Errorf("unmarshal schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("bundle.schema.json", doc); err != nil {
			bundleSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		bundleSchema, bundleSchemaErr = c.Compile("bundle.schema.json")
		if bundleSchemaErr != nil {
			bundleSchemaErr = fmt.Errorf("compile schema: %w", bundleSchemaErr)
		}
	})
	return bundleSchema, bundleSchemaErr
}

// validateBundle converts the decoded YAML value to JSON and validates it.
func validateBundle(raw any) error {
	schema, err := getBundleSchema()
	if err != nil {
		return fmt.Errorf("load bundle schema: %w", err)
	}

	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return fmt.Errorf("%w: convert to JSON: %v", ErrInvalidBundle, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("%w: prepare JSON: %v", ErrInvalidBundle, err)
	}

	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidBundle, firstIssue(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return nil
}

// firstIssue walks to the first leaf cause and renders its location.
func firstIssue(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := "/" + strings.Join(ve.InstanceLocation, "/")
	return fmt.Sprintf("%s: %s", loc, ve.Error())
}

// normalizeYAML converts map[any]any nodes into map[string]any so the value
// can be JSON-encoded.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
