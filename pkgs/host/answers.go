package host

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed answers.schema.json
var answersSchema string

const schemaURL = "obmm://answers.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Answers are the pre-recorded replies a headless run gives to dialogs
type Answers struct {
	YesNo    []bool                       `yaml:"yes_no"`
	Select   [][]string                   `yaml:"select"`
	Input    []string                     `yaml:"input"`
	Versions Versions                     `yaml:"versions"`
	INI      map[string]map[string]string `yaml:"ini"`
	Renderer map[string]string            `yaml:"renderer"`
}

// Versions of the installed components. Empty means not installed, except
// OBMM which defaults to DefaultOBMMVersion.
type Versions struct {
	OBMM             string `yaml:"obmm"`
	ScriptExtender   string `yaml:"script_extender"`
	GraphicsExtender string `yaml:"graphics_extender"`
	Oblivion         string `yaml:"oblivion"`
}

// LoadAnswers reads a YAML answers file and validates it against the answers schema
func LoadAnswers(r io.Reader) (*Answers, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Answers{}, nil
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var answers Answers
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &answers, nil
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(answersSchema)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// validate checks a decoded YAML document. The document goes through JSON
// first so the validator sees JSON types only.
func validate(doc interface{}) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("answers schema: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("answers must be a mapping with string keys: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}
	return nil
}
