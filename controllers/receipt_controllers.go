package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/receipts"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type ReceiptController struct {
	Checkout  *services.CheckoutService
	Orders    *services.OrderService
	Renderers map[string]receipts.Renderer
}

// NewReceiptController serves receipts as JSON and through renderers keyed by
// file extension, e.g. "pdf" for /receipt.pdf.
func NewReceiptController(checkout *services.CheckoutService, orders *services.OrderService, renderers map[string]receipts.Renderer) *ReceiptController {
	return &ReceiptController{Checkout: checkout, Orders: orders, Renderers: renderers}
}

// GetReceipt -> GET /orders/:order_id/receipt
func (rc *ReceiptController) GetReceipt(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	receipt, err := rc.Checkout.Receipt(c.Request.Context(), id)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Receipt", receipt)
}

// PrintReceipt returns a handler that renders the receipt with the renderer
// registered under format.
func (rc *ReceiptController) PrintReceipt(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderer, ok := rc.Renderers[format]
		if !ok {
			utils.RespondError(c, http.StatusNotFound, fmt.Errorf("no %s renderer configured", format))
			return
		}
		id, ok := paramID(c, "order_id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		receipt, err := rc.Checkout.Receipt(ctx, id)
		if err != nil {
			utils.RespondServiceError(c, err)
			return
		}
		order, err := rc.Orders.GetOrder(ctx, id)
		if err != nil {
			utils.RespondServiceError(c, err)
			return
		}

		data, err := renderer.Render(receipt, order)
		if err != nil {
			utils.ErrorLogger.WithError(err).WithField("order_id", id).Error("failed to render receipt")
			utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("failed to render receipt"))
			return
		}

		utils.InfoLogger.WithFields(map[string]interface{}{
			"order_id":       id,
			"receipt_number": receipt.ReceiptNumber,
			"format":         format,
		}).Info("receipt printed")
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s.%s", receipt.ReceiptNumber, format))
		c.Data(http.StatusOK, renderer.ContentType(), data)
	}
}
