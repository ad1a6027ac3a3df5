package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crate/internal/record"
	"github.com/roach88/crate/internal/store"
)

// Scenario defines a catalogue test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Store configures the store the scenario starts with.
	Store StoreConfig `yaml:"store,omitempty"`

	// BatchPrefix prefixes the generated batch ids.
	// Default: testutil.DefaultBatchPrefix.
	BatchPrefix string `yaml:"batch_prefix,omitempty"`

	// Flow contains the steps to execute in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// dir resolves FlowStep.File. Set by LoadScenario.
	dir string
}

// StoreConfig mirrors the store.Options a scenario can set.
type StoreConfig struct {
	Collection string            `yaml:"collection,omitempty"`
	Version    int               `yaml:"version,omitempty"`
	Indexes    []store.IndexSpec `yaml:"indexes,omitempty"`
}

// FlowStep is one import or reopen.
type FlowStep struct {
	// Import is an inline document.
	Import string `yaml:"import,omitempty"`

	// File is a document path relative to the scenario file.
	File string `yaml:"file,omitempty"`

	// Source labels the import batch. Defaults to File, or "flow[i]" for
	// inline documents.
	Source string `yaml:"source,omitempty"`

	// Reopen closes the store and opens it again at another version.
	Reopen *ReopenStep `yaml:"reopen,omitempty"`

	// Expect validates the step outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ReopenStep closes and reopens the store.
type ReopenStep struct {
	Version int `yaml:"version"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is "Success" or an error kind such as "MissingFieldError".
	Case string `yaml:"case"`

	// Records is the expected number of committed records (imports only).
	Records *int `yaml:"records,omitempty"`

	// Detail must be a substring of the error message.
	Detail string `yaml:"detail,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is used by record_count, import_count and trace_count.
	Count int `yaml:"count,omitempty"`

	// ID selects the record (record).
	ID int64 `yaml:"id,omitempty"`

	// Expect holds expected field values (record). Subset match.
	Expect map[string]string `yaml:"expect,omitempty"`

	// Field, Value, From and To describe the lookup (lookup).
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`
	From  string `yaml:"from,omitempty"`
	To    string `yaml:"to,omitempty"`

	// IDs is the expected lookup result in ascending order (lookup).
	IDs []int64 `yaml:"ids,omitempty"`

	// Case selects the output case (trace_count).
	Case string `yaml:"case,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount = "record_count"
	AssertRecord      = "record"
	AssertLookup      = "lookup"
	AssertImportCount = "import_count"
	AssertTraceCount  = "trace_count"
	AssertVerify      = "verify"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// resolve returns the path of a flow step's document file.
func (s *Scenario) resolve(file string) string {
	if filepath.IsAbs(file) || s.dir == "" {
		return file
	}
	return filepath.Join(s.dir, file)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		kinds := 0
		if step.Import != "" {
			kinds++
		}
		if step.File != "" {
			kinds++
			if _, err := os.Stat(s.resolve(step.File)); err != nil {
				return fmt.Errorf("flow[%d]: document file not found: %s", i, step.File)
			}
		}
		if step.Reopen != nil {
			kinds++
			if step.Reopen.Version < 1 {
				return fmt.Errorf("flow[%d].reopen: version must be positive", i)
			}
		}
		if kinds != 1 {
			return fmt.Errorf("flow[%d]: exactly one of import, file or reopen is required", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRecordCount, AssertImportCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertRecord:
		if a.ID <= 0 {
			return fmt.Errorf("assertions[%d]: id is required for record", index)
		}
		for field := range a.Expect {
			if !record.IsField(field) {
				return fmt.Errorf("assertions[%d]: unknown field %q", index, field)
			}
		}
	case AssertLookup:
		if !record.IsField(a.Field) {
			return fmt.Errorf("assertions[%d]: lookup needs a record field, got %q", index, a.Field)
		}
		if a.Value != "" && (a.From != "" || a.To != "") {
			return fmt.Errorf("assertions[%d]: lookup takes value or from/to, not both", index)
		}
	case AssertTraceCount:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for trace_count", index)
		}
	case AssertVerify:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
