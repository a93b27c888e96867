package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pipeline-builder/internal/common/errors"
)

// MarshalYAML encodes p as a YAML pipeline file
func MarshalYAML(p Pipeline) ([]byte, error) {
	return yaml.Marshal(p)
}

// UnmarshalYAML decodes a YAML pipeline file. Integer argument values are
// widened to float64 so documents compare equal to their JSON form.
func UnmarshalYAML(data []byte) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, errors.ValidationError(fmt.Sprintf("invalid pipeline yaml: %v", err))
	}
	return normalize(p), nil
}

// UnmarshalJSON decodes a JSON pipeline file
func UnmarshalJSON(data []byte) (Pipeline, error) {
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return Pipeline{}, errors.ValidationError(fmt.Sprintf("invalid pipeline json: %v", err))
	}
	return normalize(p), nil
}

// LoadFile reads a pipeline from path; .json files are decoded as JSON and
// everything else as YAML
func LoadFile(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, errors.NotFoundError("pipeline file "+path).WithContext("cause", err.Error())
	}
	if isJSON(path) {
		return UnmarshalJSON(data)
	}
	return UnmarshalYAML(data)
}

// SaveFile writes p to path in the format chosen by its extension
func SaveFile(path string, p Pipeline) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(p, "", "  ")
	} else {
		data, err = MarshalYAML(p)
	}
	if err != nil {
		return errors.InternalError("failed to encode pipeline", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.InternalError("failed to write pipeline file", err)
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func normalize(p Pipeline) Pipeline {
	for i := range p.Steps {
		if p.Steps[i].Args == nil {
			p.Steps[i].Args = map[string]interface{}{}
			continue
		}
		for k, v := range p.Steps[i].Args {
			p.Steps[i].Args[k] = normalizeValue(v)
		}
	}
	return p
}

func normalizeValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint64:
		return float64(typed)
	case []interface{}:
		for i := range typed {
			typed[i] = normalizeValue(typed[i])
		}
		return typed
	case map[string]interface{}:
		for k := range typed {
			typed[k] = normalizeValue(typed[k])
		}
		return typed
	}
	return v
}
