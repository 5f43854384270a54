// Package document models SSM Automation document content and classifies
// documents by the script runtimes their steps declare.
package document

import "encoding/json"

// ExecuteScriptAction is the step action that runs an inline script with a
// declared runtime.
const ExecuteScriptAction = "aws:executeScript"

// Content is the decoded body of an SSM Automation document. Every field is
// optional; documents with no steps are valid.
type Content struct {
	SchemaVersion string         `json:"schemaVersion,omitempty"`
	Description   string         `json:"description,omitempty"`
	MainSteps     []Step         `json:"mainSteps,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// Step is a single entry in a document's mainSteps array.
type Step struct {
	Name   string         `json:"name,omitempty"`
	Action string         `json:"action,omitempty"`
	Inputs map[string]any `json:"inputs,omitempty"`
}

// Runtime returns the step's declared script runtime, or "" when the step
// has no inputs or the Runtime input is absent or not a string.
func (s Step) Runtime() string {
	runtime, _ := s.Inputs["Runtime"].(string)
	return runtime
}

// Decode parses raw document content. It fails only on malformed JSON;
// missing fields at any level decode to zero values.
func Decode(raw []byte) (*Content, error) {
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	return &content, nil
}
