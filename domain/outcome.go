package domain

import (
	"fmt"
	"strings"
)

type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

type StepRecord struct {
	Name   string
	Status StepStatus
	Note   string
}

// Outcome is the result of one workflow transition. Steps are recorded in
// execution order so a failed run reports what had already been applied.
type Outcome struct {
	Workflow string
	From     InstallState
	To       InstallState
	Steps    []StepRecord
	Err      error
}

func NewOutcome(workflow string, from InstallState) *Outcome {
	return &Outcome{Workflow: workflow, From: from, To: from}
}

// Do runs fn as the named step and records its status. The returned error
// is fn's error wrapped with the step name.
func (o *Outcome) Do(name string, fn func() error) error {
	if err := fn(); err != nil {
		o.Steps = append(o.Steps, StepRecord{Name: name, Status: StepFailed, Note: err.Error()})
		o.Err = fmt.Errorf("%s: %w", name, err)
		return o.Err
	}
	o.Steps = append(o.Steps, StepRecord{Name: name, Status: StepDone})
	return nil
}

func (o *Outcome) Skip(name, reason string) {
	o.Steps = append(o.Steps, StepRecord{Name: name, Status: StepSkipped, Note: reason})
}

// Fail records a terminal error that did not come from a step.
func (o *Outcome) Fail(err error) error {
	o.Err = err
	return err
}

// Finish marks the transition as complete.
func (o *Outcome) Finish(to InstallState) {
	o.To = to
}

func (o *Outcome) Completed() []string {
	var names []string
	for _, s := range o.Steps {
		if s.Status == StepDone {
			names = append(names, s.Name)
		}
	}
	return names
}

func (o *Outcome) Step(name string) (StepRecord, bool) {
	for _, s := range o.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepRecord{}, false
}

func (o *Outcome) String() string {
	var parts []string
	for _, s := range o.Steps {
		parts = append(parts, fmt.Sprintf("%s=%s", s.Name, s.Status))
	}
	return fmt.Sprintf("%s %s -> %s [%s]", o.Workflow, o.From, o.To, strings.Join(parts, " "))
}
