package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/billing"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CheckoutController struct {
	Checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{Checkout: checkout}
}

type checkoutRequest struct {
	PaymentMethod billing.PaymentMethod `json:"payment_method"`
	Modifiers     billing.Modifiers     `json:"modifiers"`
}

// PreviewBill -> POST /orders/:order_id/bill. Nothing is persisted; the answer is
// the checkout flow at its BILL stage.
func (cc *CheckoutController) PreviewBill(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	flow, err := services.NewCheckoutFlow(id).Configure(req.Modifiers)
	if err == nil {
		flow, err = cc.Checkout.ReviewBill(c.Request.Context(), flow)
	}
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill preview", flow)
}

// CheckoutOrder -> POST /orders/:order_id/checkout. The request walks the flow
// from PREPARE to SUCCESS and the stage reached is echoed in Checkout-Stage.
// Repeating the call returns the first receipt with 200 instead of 201.
func (cc *CheckoutController) CheckoutOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	method := billing.PaymentMethod(strings.ToUpper(string(req.PaymentMethod)))

	ctx := c.Request.Context()
	flow, err := services.NewCheckoutFlow(id).Configure(req.Modifiers)
	if err == nil {
		flow, err = cc.Checkout.ReviewBill(ctx, flow)
	}
	if err == nil {
		flow, err = flow.ChoosePayment(method)
	}
	if err == nil {
		flow, err = cc.Checkout.ConfirmPayment(ctx, flow)
	}
	c.Header("Checkout-Stage", string(flow.Stage))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}

	receipt := flow.Receipt
	if receipt.Replayed {
		c.Header("Idempotent-Replayed", "true")
		utils.RespondJSON(c, http.StatusOK, "Order already checked out", receipt)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Checkout completed", receipt)
}
