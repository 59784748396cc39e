package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint is the schema major version this planner
// reads.
const SupportedSchemaVersionConstraint = "v1"

// LoadOption customizes LoadScenario.
type LoadOption func(*loadOptions)

type loadOptions struct {
	kinds plugin.Registry
}

// WithActionKinds makes validation reject action types not registered in
// kinds. Without it action types are only checked for presence.
func WithActionKinds(kinds plugin.Registry) LoadOption {
	return func(o *loadOptions) {
		o.kinds = kinds
	}
}

// LoadScenario parses and validates a scenario: JSON schema first, then
// strict decoding, the schemaVersion major check, and finally logical
// validation reporting every problem found.
func LoadScenario(scenarioYAML []byte, filePathHint string, opts ...LoadOption) (*Scenario, error) {
	if len(bytes.TrimSpace(scenarioYAML)) == 0 {
		return nil, goaperrors.NewConfigError("scenario content cannot be empty", nil)
	}
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := ValidateWithSchema(scenarioYAML); err != nil {
		return nil, goaperrors.NewConfigError(fmt.Sprintf("scenario '%s' failed schema validation", filePathHint), err)
	}

	var scenario Scenario
	if err := yamlUnmarshalStrict(scenarioYAML, &scenario); err != nil {
		return nil, goaperrors.NewConfigError(fmt.Sprintf("failed to parse scenario YAML '%s'", filePathHint), err)
	}
	scenario.FilePath = filePathHint

	if err := checkSchemaVersion(scenario.SchemaVersion, filePathHint); err != nil {
		return nil, err
	}

	if validationErrs := ValidateScenarioStructure(&scenario, o.kinds); len(validationErrs) > 0 {
		messages := make([]string, len(validationErrs))
		for i, vErr := range validationErrs {
			messages[i] = vErr.Error()
		}
		combined := fmt.Sprintf("scenario '%s' has %d validation error(s):\n- %s",
			filePathHint, len(messages), strings.Join(messages, "\n- "))
		return nil, goaperrors.NewValidationError(combined, validationErrs[0])
	}
	return &scenario, nil
}

// LoadScenarioFromFile reads and loads the scenario at filePath.
func LoadScenarioFromFile(filePath string, opts ...LoadOption) (*Scenario, error) {
	if filePath == "" {
		return nil, goaperrors.NewConfigError("scenario file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, goaperrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, goaperrors.NewConfigError(fmt.Sprintf("failed to read scenario file '%s'", absPath), err)
	}
	return LoadScenario(data, absPath, opts...)
}

func checkSchemaVersion(version, filePathHint string) error {
	if version == "" {
		return goaperrors.NewValidationError(fmt.Sprintf("scenario '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return goaperrors.NewValidationError(fmt.Sprintf("scenario '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, version), nil)
	}
	if semver.Major(v) != SupportedSchemaVersionConstraint {
		return goaperrors.NewValidationError(
			fmt.Sprintf("scenario '%s' schemaVersion '%s' is not compatible with planner requirement '%s'",
				filePathHint, version, SupportedSchemaVersionConstraint),
			nil,
		)
	}
	return nil
}

// yamlUnmarshalStrict decodes with unknown fields rejected.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
