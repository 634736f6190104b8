package dto

import (
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/shopspring/decimal"
)

// StartWorkflowRequest carries the seller's optional ETA.
type StartWorkflowRequest struct {
	EtaMinMinutes *int `json:"etaMinMinutes" binding:"omitempty,gte=0"`
	EtaMaxMinutes *int `json:"etaMaxMinutes" binding:"omitempty,gte=0"`
}

// ETA converts the request to the domain estimate.
func (r StartWorkflowRequest) ETA() domain.ETA {
	return domain.ETA{MinMinutes: r.EtaMinMinutes, MaxMinutes: r.EtaMaxMinutes}
}

// AdvanceWorkflowRequest moves an order to the step with key ToStepKey.
type AdvanceWorkflowRequest struct {
	ToStepKey     string `json:"toStepKey" binding:"required"`
	EtaMinMinutes *int   `json:"etaMinMinutes" binding:"omitempty,gte=0"`
	EtaMaxMinutes *int   `json:"etaMaxMinutes" binding:"omitempty,gte=0"`
}

// ETA converts the request to the domain estimate.
func (r AdvanceWorkflowRequest) ETA() domain.ETA {
	return domain.ETA{MinMinutes: r.EtaMinMinutes, MaxMinutes: r.EtaMaxMinutes}
}

// StepResponse defines the data returned for a workflow step.
type StepResponse struct {
	StepID            string `json:"stepID"`
	Key               string `json:"key"`
	Name              string `json:"name"`
	Sequence          int    `json:"sequence"`
	IsDispatchTrigger bool   `json:"isDispatchTrigger"`
	IsTerminal        bool   `json:"isTerminal"`
}

// ToStepResponses converts workflow steps to DTOs.
func ToStepResponses(steps []domain.WorkflowStep) []StepResponse {
	res := make([]StepResponse, len(steps))
	for i, s := range steps {
		res[i] = StepResponse{
			StepID:            s.StepID,
			Key:               s.Key,
			Name:              s.Name,
			Sequence:          s.Sequence,
			IsDispatchTrigger: s.IsDispatchTrigger,
			IsTerminal:        s.IsTerminal,
		}
	}
	return res
}

// SendQuoteRequest is the seller's price for a repair order.
type SendQuoteRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"dgt0"`
	Note   string          `json:"note"`
}
