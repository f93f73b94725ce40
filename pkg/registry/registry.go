// Package registry reads the activity registry that documents the quoting
// job types: their input schemas, error codes, timeouts and retries.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cotizador/internal/common/errors"
	"cotizador/internal/common/validation"
)

// TaskPrefix is the namespace of every quoting job type.
const TaskPrefix = "quoting."

// Status is the implementation state of an activity.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPlanned   Status = "planned"
)

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusPlanned
}

// Timeout is a job timeout written as a Go duration string ("20s").
type Timeout time.Duration

func (t Timeout) Duration() time.Duration { return time.Duration(t) }

func (t Timeout) String() string { return time.Duration(t).String() }

func (t Timeout) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timeout) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timeout must be a duration string: %w", err)
	}
	if s == "" {
		*t = 0
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	*t = Timeout(d)
	return nil
}

type Registry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity documents one job type served by the worker manager.
type Activity struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category"`
	Version      string                 `json:"version"`
	TaskType     string                 `json:"taskType"`
	Status       Status                 `json:"implementationStatus"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	ErrorCodes   []errors.ErrorCode     `json:"errorCodes"`
	Timeout      Timeout                `json:"timeout"`
	Retries      int                    `json:"retries"`
	Workflows    []string               `json:"workflows"`
	Tags         []string               `json:"tags"`
}

func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating the directory.
func (r *Registry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Validate checks every activity and that IDs and task types are unique.
func (r *Registry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	tasks := make(map[string]bool)
	for i := range r.Activities {
		a := &r.Activities[i]
		if err := a.Validate(); err != nil {
			return err
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true
		if tasks[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		tasks[a.TaskType] = true
	}
	return nil
}

// Validate checks one activity. Completed activities need a positive
// timeout. Declared error codes must be ones the workers throw, and a
// retry budget needs at least one retryable code to spend it on.
func (a *Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity missing required field: id")
	}
	if a.DisplayName == "" {
		return fmt.Errorf("activity %s missing required field: displayName", a.ID)
	}
	if !strings.HasPrefix(a.TaskType, TaskPrefix) || len(a.TaskType) == len(TaskPrefix) {
		return fmt.Errorf("activity %s: task type %q outside the %s namespace", a.ID, a.TaskType, TaskPrefix)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("activity %s: unknown implementation status %q", a.ID, a.Status)
	}
	if a.Status == StatusCompleted && a.Timeout <= 0 {
		return fmt.Errorf("activity %s: completed activities need a timeout", a.ID)
	}
	if a.Retries < 0 {
		return fmt.Errorf("activity %s: negative retries", a.ID)
	}

	retryable := false
	for _, code := range a.ErrorCodes {
		if _, ok := errors.BPMNErrorMapping[code]; !ok {
			return fmt.Errorf("activity %s: unknown error code %s", a.ID, code)
		}
		if errors.GetRetryCount(code) > 0 {
			retryable = true
		}
	}
	if a.Retries > 0 && !retryable {
		return fmt.Errorf("activity %s: %d retries but no retryable error code", a.ID, a.Retries)
	}

	if len(a.InputSchema) > 0 {
		if _, err := validation.NewValidator(a.InputSchema); err != nil {
			return fmt.Errorf("activity %s input schema: %w", a.ID, err)
		}
	}
	return nil
}

// Find returns the activity registered for taskType.
func (r *Registry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Missing lists the task types that have no activity entry.
func (r *Registry) Missing(taskTypes ...string) []string {
	var out []string
	for _, t := range taskTypes {
		if _, ok := r.Find(t); !ok {
			out = append(out, t)
		}
	}
	return out
}

// InputValidator compiles the input schema. It returns nil when the
// activity declares none.
func (a *Activity) InputValidator() (*validation.Validator, error) {
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	return validation.NewValidator(a.InputSchema)
}
