package domain

import (
	"fmt"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
)

// Workflow graph errors.
var (
	ErrWorkflowEmpty        = fmt.Errorf("%w: workflow has no steps", apperrors.ErrValidation)
	ErrWorkflowDuplicateKey = fmt.Errorf("%w: duplicate step key", apperrors.ErrValidation)
	ErrWorkflowManyTriggers = fmt.Errorf("%w: more than one dispatch trigger step", apperrors.ErrValidation)
	ErrWorkflowNoTerminal   = fmt.Errorf("%w: workflow has no terminal step", apperrors.ErrValidation)
	ErrWorkflowDanglingEdge = fmt.Errorf("%w: transition references unknown step", apperrors.ErrValidation)
)

// State errors returned by the coordinator. Reasons are short and machine-readable.
var (
	ErrOrderPaused          = fmt.Errorf("%w: order_paused", apperrors.ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: invalid_status_transition", apperrors.ErrConflict)
	ErrPaymentNotCaptured   = fmt.Errorf("%w: payment_not_captured", apperrors.ErrConflict)
	ErrAccountFrozen        = fmt.Errorf("%w: account_frozen", apperrors.ErrConflict)
	ErrHoldNotSettleable    = fmt.Errorf("%w: hold_not_settleable", apperrors.ErrConflict)
	ErrStepNotAllowed       = fmt.Errorf("%w: step_transition_not_allowed", apperrors.ErrConflict)
	ErrQuoteNotApproved     = fmt.Errorf("%w: quote_not_approved", apperrors.ErrConflict)
	ErrJobAlreadyAssigned   = fmt.Errorf("%w: job_already_assigned", apperrors.ErrConflict)
	ErrOfferNotPending      = fmt.Errorf("%w: offer_not_pending", apperrors.ErrConflict)
	ErrPastDispatchTrigger  = fmt.Errorf("%w: past_dispatch_trigger", apperrors.ErrConflict)
	ErrDisputeWindowClosed  = fmt.Errorf("%w: dispute_window_closed", apperrors.ErrConflict)
	ErrDisputeAlreadyRaised = fmt.Errorf("%w: dispute_already_raised", apperrors.ErrConflict)
	ErrJobClosed            = fmt.Errorf("%w: dispatch_job_closed", apperrors.ErrConflict)
	ErrQuoteNotSupported    = fmt.Errorf("%w: quote_not_supported", apperrors.ErrConflict)
	ErrQuoteNotPending      = fmt.Errorf("%w: quote_not_pending", apperrors.ErrConflict)
	ErrWorkflowNotStarted   = fmt.Errorf("%w: workflow_not_started", apperrors.ErrConflict)
	ErrNothingToPay         = fmt.Errorf("%w: nothing_to_pay", apperrors.ErrConflict)
	ErrOutOfStock           = fmt.Errorf("%w: out_of_stock", apperrors.ErrConflict)

	ErrNotOwner       = fmt.Errorf("%w: not_owner", apperrors.ErrForbidden)
	ErrNotAssigned    = fmt.Errorf("%w: not_assigned_rider", apperrors.ErrForbidden)
	ErrRoleNotAllowed = fmt.Errorf("%w: role_not_allowed", apperrors.ErrForbidden)

	ErrNonPositiveAmount = fmt.Errorf("%w: amount_must_be_positive", apperrors.ErrValidation)
	ErrUnknownStep       = fmt.Errorf("%w: unknown_step_key", apperrors.ErrValidation)
	ErrMissingProof      = fmt.Errorf("%w: missing_required_proof", apperrors.ErrValidation)
	ErrInvalidOTP        = fmt.Errorf("%w: invalid_delivery_otp", apperrors.ErrValidation)
	ErrInvalidETA        = fmt.Errorf("%w: invalid_eta_range", apperrors.ErrValidation)
	ErrAmountMismatch    = fmt.Errorf("%w: amount_does_not_match_order_total", apperrors.ErrValidation)
	ErrEmptyOrder        = fmt.Errorf("%w: order_has_no_items", apperrors.ErrValidation)
	ErrForeignProduct    = fmt.Errorf("%w: product_not_sold_by_shop", apperrors.ErrValidation)
	ErrInvalidRefund     = fmt.Errorf("%w: invalid_refund_amount", apperrors.ErrValidation)
	ErrInvalidBreakdown  = fmt.Errorf("%w: breakdown_exceeds_hold", apperrors.ErrValidation)
	ErrInvalidReference  = fmt.Errorf("%w: invalid_ledger_entry", apperrors.ErrValidation)
	ErrUnknownResolution = fmt.Errorf("%w: unknown_dispute_resolution", apperrors.ErrValidation)
)
