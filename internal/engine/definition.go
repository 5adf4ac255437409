package engine

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Alloy/internal/domain"
)

// Definition — workflow в виде файла.
//
//	id: nightly-report
//	trigger: time
//	schedule: "0 3 * * *"
//	actions:
//	  - id: start
//	    type: log
//	    params: {message: "report started"}
//	    next: [fetch]
//	  - id: fetch
//	    type: http
//	    params: {url: "https://example.com/report", method: POST}
type Definition struct {
	ID          string      `yaml:"id" json:"id"`
	Title       string      `yaml:"title,omitempty" json:"title,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Trigger     string      `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Schedule    string      `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	CreatedBy   string      `yaml:"created_by,omitempty" json:"created_by,omitempty"`
	Entry       string      `yaml:"entry,omitempty" json:"entry,omitempty"`
	Actions     []ActionDef `yaml:"actions" json:"actions"`
}

// ActionDef — одно действие в определении.
type ActionDef struct {
	ID     string         `yaml:"id" json:"id"`
	Type   string         `yaml:"type" json:"type"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Next   []string       `yaml:"next,omitempty" json:"next,omitempty"`
}

// ParseDefinition декодирует определение из YAML или JSON.
// Валидация не выполняется — см. Validate и Build.
func ParseDefinition(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDefinition
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &def, nil
}

// LoadFile читает и декодирует определение с диска.
func LoadFile(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Marshal кодирует определение в YAML.
func (d *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// FromWorkflow строит определение из domain-модели.
func FromWorkflow(wf *domain.Workflow) *Definition {
	def := &Definition{
		ID:          wf.ID,
		Title:       wf.Title,
		Description: wf.Description,
		Trigger:     string(wf.TriggerType),
		Schedule:    wf.Schedule,
		CreatedBy:   wf.CreatedBy,
		Entry:       wf.ExplicitEntryActionID(),
	}
	for _, n := range wf.Actions() {
		def.Actions = append(def.Actions, ActionDef{
			ID:     n.ID,
			Type:   string(n.Type),
			Params: n.Params,
			Next:   n.Next,
		})
	}
	return def
}
