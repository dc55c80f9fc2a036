package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// DefaultEnvFile is the dotenv file Load reads when present.
const DefaultEnvFile = ".env"

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	envFile string
}

// WithEnvFile sets the dotenv file read before expansion. An empty path
// skips dotenv loading.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// Load reads and validates the configuration at path. An empty path yields
// Default. Variables already set in the environment win over the dotenv
// file.
func Load(path string, opts ...LoadOption) (*File, error) {
	o := loadOptions{envFile: DefaultEnvFile}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", o.envFile, err)
		}
	}

	if path == "" {
		f := Default()
		return &f, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path.
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	f, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse expands and decodes data. The format is picked from the extension
// of path: .yaml and .yml are YAML, anything else is JSON. Omitted fields
// and an empty provider list fall back to Default.
func Parse(path string, data []byte) (*File, error) {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return nil, err
	}

	raw, err := coerceToJSONBytes(path, []byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	// Sections without slices decode over the defaults, so a file only
	// needs to name the fields it changes.
	d := Default()
	f := File{
		Service: d.Service,
		Server:  d.Server,
		Queue:   d.Queue,
		Observe: d.Observe,
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if len(f.Providers) == 0 {
		f.Providers = d.Providers
	}
	return &f, nil
}

// coerceToJSONBytes converts YAML to JSON so one strict decoder serves both
// formats.
func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if v == nil {
		return []byte("{}"), nil
	}

	j, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// normalizeYAML makes every map key a string so the value can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
