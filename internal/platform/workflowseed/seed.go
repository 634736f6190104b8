// Package workflowseed loads per-shop-category workflow graphs from YAML and
// stores them through the unit of work.
package workflowseed

import (
	"context"
	"fmt"
	"os"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// namespace derives stable ids so that re-seeding updates rows in place.
var namespace = uuid.MustParse("6f1c1f2e-3b0a-4d7e-9c55-1a0b6a7d2e10")

type fileFormat struct {
	Workflows []workflowDoc `yaml:"workflows"`
}

type workflowDoc struct {
	Name         string                `yaml:"name"`
	ShopCategory string                `yaml:"shop_category"`
	Default      bool                  `yaml:"default"`
	Steps        []domain.WorkflowStep `yaml:"steps"`
	Transitions  []transitionDoc       `yaml:"transitions"`
}

type transitionDoc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadFile reads and parses path.
func LoadFile(path string) ([]domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow seed %s: %w", path, err)
	}
	return Parse(data)
}

// Parse converts a YAML document into validated workflows. Transitions refer to
// step keys.
func Parse(data []byte) ([]domain.Workflow, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow seed: %w", err)
	}

	out := make([]domain.Workflow, 0, len(doc.Workflows))
	for _, w := range doc.Workflows {
		if w.ShopCategory == "" || w.Name == "" {
			return nil, fmt.Errorf("workflow seed: name and shop_category are required")
		}
		wf := domain.Workflow{
			WorkflowID:   uuid.NewSHA1(namespace, []byte(w.ShopCategory+"/"+w.Name)).String(),
			ShopCategory: domain.ShopCategory(w.ShopCategory),
			Name:         w.Name,
			IsDefault:    w.Default,
		}
		stepIDs := make(map[string]string, len(w.Steps))
		for _, step := range w.Steps {
			step.WorkflowID = wf.WorkflowID
			step.StepID = uuid.NewSHA1(namespace, []byte(wf.WorkflowID+"/"+step.Key)).String()
			stepIDs[step.Key] = step.StepID
			wf.Steps = append(wf.Steps, step)
		}
		for _, t := range w.Transitions {
			from, okFrom := stepIDs[t.From]
			to, okTo := stepIDs[t.To]
			if !okFrom || !okTo {
				return nil, fmt.Errorf("workflow seed %q: transition %s -> %s: %w", w.Name, t.From, t.To, domain.ErrWorkflowDanglingEdge)
			}
			wf.Transitions = append(wf.Transitions, domain.WorkflowStepTransition{
				WorkflowID: wf.WorkflowID,
				FromStepID: from,
				ToStepID:   to,
			})
		}
		if err := wf.Validate(); err != nil {
			return nil, fmt.Errorf("workflow seed %q: %w", w.Name, err)
		}
		out = append(out, wf)
	}
	return out, nil
}

// Seed saves every workflow in one transaction.
func Seed(ctx context.Context, tm portsrepo.TransactionManager, workflows []domain.Workflow) error {
	return tm.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		for _, wf := range workflows {
			if err := uow.Workflows().SaveWorkflow(ctx, wf); err != nil {
				return fmt.Errorf("save workflow %q: %w", wf.Name, err)
			}
		}
		return nil
	})
}
