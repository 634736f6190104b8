package workflowseed_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/workflowseed"
	"github.com/SscSPs/fulfillment_coordinator/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFilePath(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "config", "workflows.yaml")
}

func TestLoadFile_SampleSeed(t *testing.T) {
	workflows, err := workflowseed.LoadFile(seedFilePath(t))
	require.NoError(t, err)
	require.Len(t, workflows, 3)

	repair := workflows[0]
	assert.Equal(t, domain.CategoryRepair, repair.ShopCategory)
	trigger, ok := repair.DispatchTrigger()
	require.True(t, ok)
	assert.Equal(t, "ready_for_delivery", trigger.Key)

	quote, ok := repair.StepByKey(domain.StepKeyQuoteApproval)
	require.True(t, ok)
	repairing, ok := repair.StepByKey(domain.StepKeyRepairing)
	require.True(t, ok)
	assert.True(t, repair.Allows(quote.StepID, repairing.StepID))
	assert.False(t, repair.Allows(repairing.StepID, quote.StepID))
}

func TestParse_StableIDs(t *testing.T) {
	doc := []byte(`
workflows:
  - name: Mini
    shop_category: bakery
    steps:
      - { key: a, name: A, sequence: 1, dispatch_trigger: true }
      - { key: b, name: B, sequence: 2, terminal: true }
    transitions:
      - { from: a, to: b }
`)
	first, err := workflowseed.Parse(doc)
	require.NoError(t, err)
	second, err := workflowseed.Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, first[0].WorkflowID, second[0].WorkflowID)
	assert.Equal(t, first[0].Steps[0].StepID, second[0].Steps[0].StepID)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"dangling transition", `
workflows:
  - name: Bad
    shop_category: bakery
    steps:
      - { key: a, name: A, sequence: 1, terminal: true }
    transitions:
      - { from: a, to: missing }
`},
		{"no terminal step", `
workflows:
  - name: Bad
    shop_category: bakery
    steps:
      - { key: a, name: A, sequence: 1 }
`},
		{"two dispatch triggers", `
workflows:
  - name: Bad
    shop_category: bakery
    steps:
      - { key: a, name: A, sequence: 1, dispatch_trigger: true }
      - { key: b, name: B, sequence: 2, dispatch_trigger: true, terminal: true }
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := workflowseed.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestSeed_StoresDefaults(t *testing.T) {
	ctx := context.Background()
	workflows, err := workflowseed.LoadFile(seedFilePath(t))
	require.NoError(t, err)

	store := memory.NewStore()
	require.NoError(t, workflowseed.Seed(ctx, store, workflows))

	err = store.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		wf, err := uow.Workflows().FindDefaultWorkflow(ctx, domain.CategoryRepair)
		if err != nil {
			return err
		}
		assert.Equal(t, "Repair service", wf.Name)
		return nil
	})
	require.NoError(t, err)
}
