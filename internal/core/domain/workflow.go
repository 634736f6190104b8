package domain

import (
	"sort"
	"time"
)

// Well-known step keys that carry guard rules.
const (
	StepKeyQuoteApproval = "quote_approval"
	StepKeyRepairing     = "repairing"
)

// WorkflowStep is a named stage of a shop-category process.
type WorkflowStep struct {
	StepID            string `json:"stepID" yaml:"-"`
	WorkflowID        string `json:"workflowID" yaml:"-"`
	Key               string `json:"key" yaml:"key"`
	Name              string `json:"name" yaml:"name"`
	Sequence          int    `json:"sequence" yaml:"sequence"`
	IsDispatchTrigger bool   `json:"isDispatchTrigger" yaml:"dispatch_trigger"`
	IsTerminal        bool   `json:"isTerminal" yaml:"terminal"`
}

// WorkflowStepTransition is one allowed (from, to) edge.
type WorkflowStepTransition struct {
	WorkflowID string `json:"workflowID"`
	FromStepID string `json:"fromStepID"`
	ToStepID   string `json:"toStepID"`
}

// Workflow is the step graph of a shop category.
type Workflow struct {
	WorkflowID   string                   `json:"workflowID"`
	ShopCategory ShopCategory             `json:"shopCategory"`
	Name         string                   `json:"name"`
	IsDefault    bool                     `json:"isDefault"`
	Steps        []WorkflowStep           `json:"steps"`
	Transitions  []WorkflowStepTransition `json:"transitions"`
}

// FirstStep returns the step with the lowest sequence.
func (w *Workflow) FirstStep() (WorkflowStep, bool) {
	if len(w.Steps) == 0 {
		return WorkflowStep{}, false
	}
	steps := append([]WorkflowStep(nil), w.Steps...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })
	return steps[0], true
}

// StepByID looks up a step.
func (w *Workflow) StepByID(stepID string) (WorkflowStep, bool) {
	for _, s := range w.Steps {
		if s.StepID == stepID {
			return s, true
		}
	}
	return WorkflowStep{}, false
}

// StepByKey looks up a step by its key.
func (w *Workflow) StepByKey(key string) (WorkflowStep, bool) {
	for _, s := range w.Steps {
		if s.Key == key {
			return s, true
		}
	}
	return WorkflowStep{}, false
}

// DispatchTrigger returns the dispatch-trigger step, if any.
func (w *Workflow) DispatchTrigger() (WorkflowStep, bool) {
	for _, s := range w.Steps {
		if s.IsDispatchTrigger {
			return s, true
		}
	}
	return WorkflowStep{}, false
}

// Allows reports whether the (from, to) edge is in the allow-list.
func (w *Workflow) Allows(fromStepID, toStepID string) bool {
	for _, t := range w.Transitions {
		if t.FromStepID == fromStepID && t.ToStepID == toStepID {
			return true
		}
	}
	return false
}

// NextSteps lists the allowed destinations from a step, ordered by sequence.
func (w *Workflow) NextSteps(fromStepID string) []WorkflowStep {
	out := []WorkflowStep{}
	for _, t := range w.Transitions {
		if t.FromStepID != fromStepID {
			continue
		}
		if s, ok := w.StepByID(t.ToStepID); ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// HasPassedDispatchTrigger reports whether the order's current step is at or
// beyond the dispatch trigger.
func (w *Workflow) HasPassedDispatchTrigger(currentStepID *string) bool {
	if currentStepID == nil {
		return false
	}
	trigger, ok := w.DispatchTrigger()
	if !ok {
		return false
	}
	current, ok := w.StepByID(*currentStepID)
	if !ok {
		return false
	}
	return current.Sequence >= trigger.Sequence
}

// Validate checks the structural rules of a workflow graph.
func (w *Workflow) Validate() error {
	if len(w.Steps) == 0 {
		return ErrWorkflowEmpty
	}
	triggers, terminals := 0, 0
	keys := map[string]bool{}
	for _, s := range w.Steps {
		if keys[s.Key] {
			return ErrWorkflowDuplicateKey
		}
		keys[s.Key] = true
		if s.IsDispatchTrigger {
			triggers++
		}
		if s.IsTerminal {
			terminals++
		}
	}
	if triggers > 1 {
		return ErrWorkflowManyTriggers
	}
	if terminals == 0 {
		return ErrWorkflowNoTerminal
	}
	for _, t := range w.Transitions {
		if _, ok := w.StepByID(t.FromStepID); !ok {
			return ErrWorkflowDanglingEdge
		}
		if _, ok := w.StepByID(t.ToStepID); !ok {
			return ErrWorkflowDanglingEdge
		}
	}
	return nil
}

// OrderWorkflowEvent is the immutable audit trail of a step transition.
type OrderWorkflowEvent struct {
	EventID    string    `json:"eventID"`
	OrderID    string    `json:"orderID"`
	WorkflowID string    `json:"workflowID"`
	FromStepID *string   `json:"fromStepID,omitempty"`
	ToStepID   string    `json:"toStepID"`
	ActorID    string    `json:"actorID"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ETA is the seller's optional delivery estimate in minutes.
type ETA struct {
	MinMinutes *int `json:"etaMinMinutes,omitempty"`
	MaxMinutes *int `json:"etaMaxMinutes,omitempty"`
}

// Validate rejects negative values and a minimum above the maximum.
func (e ETA) Validate() error {
	if e.MinMinutes != nil && *e.MinMinutes < 0 {
		return ErrInvalidETA
	}
	if e.MaxMinutes != nil && *e.MaxMinutes < 0 {
		return ErrInvalidETA
	}
	if e.MinMinutes != nil && e.MaxMinutes != nil && *e.MinMinutes > *e.MaxMinutes {
		return ErrInvalidETA
	}
	return nil
}
