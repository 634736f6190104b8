package services

import (
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/clock"
)

// Collaborators are the external ports the coordinator talks to.
type Collaborators struct {
	Clock     clock.Clock
	Publisher portssvc.EventPublisher
	Notifier  portssvc.Notifier
	Scheduler portssvc.Scheduler
}

// NewServiceContainer wires the component services over one transaction manager.
func NewServiceContainer(tm portsrepo.TransactionManager, collab Collaborators, settings Settings) *portssvc.ServiceContainer {
	if collab.Clock == nil {
		collab.Clock = clock.System{}
	}
	base := BaseService{
		Clock:     collab.Clock,
		Publisher: collab.Publisher,
		Notifier:  collab.Notifier,
		Scheduler: collab.Scheduler,
	}

	ledger := NewLedgerService(base, settings.CurrencyCode)
	escrow := NewEscrowService(base, ledger, settings.PlatformUserID)
	dispatch := NewDispatchService(base, escrow, settings)
	workflow := NewWorkflowService(base, dispatch)
	quotes := NewQuoteService(base, escrow)
	cancellation := NewCancellationService(base, escrow, ledger, dispatch, settings)
	disputes := NewDisputeService(base, escrow, ledger, settings)
	orders := NewOrderService(base, ledger, escrow, dispatch)
	accounts := NewAccountService(base, ledger)

	return &portssvc.ServiceContainer{
		Coordinator: &coordinator{
			tm:           tm,
			orders:       orders,
			workflow:     workflow,
			quotes:       quotes,
			dispatch:     dispatch,
			cancellation: cancellation,
			disputes:     disputes,
			accounts:     accounts,
		},
		Tasks: &taskHandler{
			BaseService: base,
			tm:          tm,
			dispatch:    dispatch,
			orders:      orders,
		},
	}
}
