package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/restaurant-pos/billing"
	"github.com/yeremiapane/restaurant-pos/models"
)

type CheckoutStage string

const (
	StagePrepare CheckoutStage = "PREPARE"
	StageBill    CheckoutStage = "BILL"
	StagePayment CheckoutStage = "PAYMENT"
	StageSuccess CheckoutStage = "SUCCESS"
)

// CheckoutFlow is the cashier's progress through a checkout. It is a plain value
// held by the caller; only the step into SUCCESS touches the database.
type CheckoutFlow struct {
	OrderID   uint                  `json:"order_id"`
	Stage     CheckoutStage         `json:"stage"`
	Modifiers billing.Modifiers     `json:"modifiers"`
	Bill      *billing.Bill         `json:"bill,omitempty"`
	Method    billing.PaymentMethod `json:"payment_method,omitempty"`
	Receipt   *models.Receipt       `json:"receipt,omitempty"`
}

func NewCheckoutFlow(orderID uint) CheckoutFlow {
	return CheckoutFlow{OrderID: orderID, Stage: StagePrepare}
}

func stageErr(f CheckoutFlow, want CheckoutStage) error {
	return invalidInput("stage", "checkout of order %d is at %s, expected %s", f.OrderID, f.Stage, want)
}

// Configure replaces the modifiers. It is only allowed while preparing.
func (f CheckoutFlow) Configure(mods billing.Modifiers) (CheckoutFlow, error) {
	if f.Stage != StagePrepare {
		return f, stageErr(f, StagePrepare)
	}
	f.Modifiers = mods
	return f, nil
}

// Back returns from BILL to PREPARE and drops the computed bill.
func (f CheckoutFlow) Back() (CheckoutFlow, error) {
	if f.Stage != StageBill {
		return f, stageErr(f, StageBill)
	}
	f.Stage = StagePrepare
	f.Bill = nil
	return f, nil
}

// ChoosePayment moves from BILL to PAYMENT with the chosen method.
func (f CheckoutFlow) ChoosePayment(method billing.PaymentMethod) (CheckoutFlow, error) {
	if f.Stage != StageBill {
		return f, stageErr(f, StageBill)
	}
	if !method.Valid() {
		return f, invalidInput("payment_method", "unknown payment method %q", method)
	}
	f.Stage = StagePayment
	f.Method = method
	return f, nil
}

// ReviewBill computes the bill for the flow's modifiers and moves PREPARE to BILL.
func (s *CheckoutService) ReviewBill(ctx context.Context, f CheckoutFlow) (CheckoutFlow, error) {
	if f.Stage != StagePrepare {
		return f, stageErr(f, StagePrepare)
	}
	bill, err := s.Preview(ctx, f.OrderID, f.Modifiers)
	if err != nil {
		return f, err
	}
	f.Bill = bill
	f.Stage = StageBill
	return f, nil
}

// ConfirmPayment settles the order and moves PAYMENT to SUCCESS. On failure the
// flow stays at PAYMENT so the cashier can retry.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, f CheckoutFlow) (CheckoutFlow, error) {
	if f.Stage != StagePayment {
		return f, stageErr(f, StagePayment)
	}
	receipt, err := s.Checkout(ctx, f.OrderID, f.Method, f.Modifiers)
	if err != nil {
		return f, fmt.Errorf("confirm payment: %w", err)
	}
	f.Receipt = receipt
	f.Bill = &receipt.Bill
	f.Stage = StageSuccess
	return f, nil
}
