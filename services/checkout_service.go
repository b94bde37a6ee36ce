package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/billing"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// CheckoutService turns a live order into a completed one. Preview is read-only;
// Checkout is the single mutating step and is safe to repeat.
type CheckoutService struct {
	db       *gorm.DB
	orders   *OrderService
	registry *TableRegistry
	ledger   LedgerSink
	notifier Notifier
	metrics  *Metrics
	log      *logrus.Logger
}

func NewCheckoutService(db *gorm.DB, orders *OrderService, registry *TableRegistry, ledger LedgerSink, notifier Notifier, metrics *Metrics, log *logrus.Logger) *CheckoutService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if ledger == nil {
		ledger = GormLedger{}
	}
	return &CheckoutService{
		db:       db,
		orders:   orders,
		registry: registry,
		ledger:   ledger,
		notifier: notifierOrNop(notifier),
		metrics:  metrics,
		log:      log,
	}
}

// BillingOrder is the snapshot of order the billing engine works on. Line prices
// include the item's add-ons.
func BillingOrder(order *models.Order) billing.Order {
	lines := make([]billing.Line, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		lines = append(lines, billing.Line{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.EffectiveUnitPrice(),
		})
	}
	return billing.Order{ID: order.ID, CustomerID: order.CustomerID, Lines: lines}
}

// Preview computes the bill for the order as it stands. A completed order
// previews as the bill it was settled with.
func (s *CheckoutService) Preview(ctx context.Context, orderID uint, mods billing.Modifiers) (*billing.Bill, error) {
	db := s.db.WithContext(ctx)
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.StatusCompleted:
		receipt, err := s.receiptFor(db, orderID)
		if err != nil {
			return nil, err
		}
		if receipt == nil {
			return nil, orderFinalized(order)
		}
		return &receipt.Bill, nil
	case models.StatusCancelled:
		return nil, orderFinalized(order)
	}

	snapshot := BillingOrder(order)
	if err := fromBilling(billing.Validate(snapshot, mods)); err != nil {
		return nil, err
	}
	bill := billing.ComputeBill(snapshot, mods)
	return &bill, nil
}

// Checkout settles the order. Persisting the bill totals, the receipt, the
// COMPLETED status, the session close and the ledger entries happen in one
// transaction; a failure in any of them leaves the order untouched and comes back
// as a retryable error. Calling it again on a completed order returns the stored
// receipt with Replayed set.
func (s *CheckoutService) Checkout(ctx context.Context, orderID uint, method billing.PaymentMethod, mods billing.Modifiers) (*models.Receipt, error) {
	started := time.Now()
	method = billing.PaymentMethod(strings.ToUpper(string(method)))

	unlock := s.orders.LockOrder(orderID)
	defer unlock()

	db := s.db.WithContext(ctx)
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.StatusCompleted:
		return s.replay(db, order)
	case models.StatusCancelled:
		return nil, orderFinalized(order)
	}

	if len(order.Items) == 0 {
		return nil, invalidInput("items", "order %d has no items to bill", orderID)
	}
	snapshot := BillingOrder(order)
	if err := fromBilling(billing.Validate(snapshot, mods)); err != nil {
		return nil, err
	}
	if err := fromBilling(billing.CheckSettlement(method, order.CustomerID)); err != nil {
		s.metrics.checkoutDone(methodLabel(method), "rejected", started, 0)
		return nil, err
	}

	bill := billing.ComputeBill(snapshot, mods)

	if order.TableID != nil {
		unlockTable := s.registry.LockTable(*order.TableID)
		defer unlockTable()
	}

	receipt, closed, err := s.finalize(ctx, order, method, bill)
	if err != nil {
		var serr *Error
		if errors.As(err, &serr) {
			return nil, err
		}
		s.metrics.checkoutDone(string(method), "failed", started, 0)
		s.log.WithError(err).WithField("order_id", orderID).Error("checkout rolled back")
		return nil, retryable("checkout", err)
	}

	if closed {
		s.registry.SessionClosed()
	}
	total, _ := bill.GrandTotal.Float64()
	s.metrics.checkoutDone(string(method), "completed", started, total)
	s.metrics.orderStatusChanged(models.StatusCompleted)

	s.log.WithFields(logrus.Fields{
		"order_id":       orderID,
		"receipt_number": receipt.ReceiptNumber,
		"method":         method,
		"grand_total":    bill.GrandTotal.String(),
	}).Info("checkout completed")

	s.notifier.Notify(kds.Message{Event: kds.EventReceiptGenerated, Data: receipt})
	if closed {
		s.notifier.Notify(kds.Message{Event: kds.EventTableUpdate, Data: map[string]interface{}{
			"table_id": *order.TableID,
			"order_id": order.ID,
			"occupied": false,
		}})
	}
	return receipt, nil
}

func (s *CheckoutService) finalize(ctx context.Context, order *models.Order, method billing.PaymentMethod, bill billing.Bill) (*models.Receipt, bool, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	now := time.Now()
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", order.ID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":           models.StatusCompleted,
			"subtotal":         bill.Subtotal,
			"discount_total":   bill.CombinedDiscount,
			"tax_amount":       bill.Tax,
			"service_charge":   bill.ServiceCharge,
			"custom_tax_total": bill.CustomTaxTotal,
			"grand_total":      bill.GrandTotal,
			"payment_method":   string(method),
			"completed_at":     now,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("failed to persist bill on order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, false, orderFinalized(order)
	}

	receipt := models.Receipt{
		OrderID:       order.ID,
		ReceiptNumber: newReceiptNumber(now),
		PaymentMethod: string(method),
		GrandTotal:    bill.GrandTotal,
		Bill:          bill,
		CreatedAt:     now,
	}
	if err := tx.Create(&receipt).Error; err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("failed to create receipt: %w", err)
	}

	closed := false
	if order.TableID != nil {
		var err error
		closed, err = s.registry.CloseSessionTx(tx, *order.TableID, &order.ID)
		if err != nil {
			tx.Rollback()
			return nil, false, err
		}
	}

	for _, entry := range ledgerEntries(order, method, bill) {
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			tx.Rollback()
			return nil, false, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &receipt, closed, nil
}

// ledgerEntries decides what the customer's account records for this checkout:
// the full amount on a credit sale and the loyalty discount when one was given.
func ledgerEntries(order *models.Order, method billing.PaymentMethod, bill billing.Bill) []models.LedgerEntry {
	if order.CustomerID == nil {
		return nil
	}
	var entries []models.LedgerEntry
	if method == billing.PaymentCredit {
		entries = append(entries, models.LedgerEntry{
			CustomerID: *order.CustomerID,
			OrderID:    order.ID,
			Kind:       models.LedgerCreditSale,
			Amount:     bill.GrandTotal,
		})
	}
	if bill.LoyaltyDiscount.IsPositive() {
		entries = append(entries, models.LedgerEntry{
			CustomerID: *order.CustomerID,
			OrderID:    order.ID,
			Kind:       models.LedgerLoyaltyDiscount,
			Amount:     bill.LoyaltyDiscount,
		})
	}
	return entries
}

func (s *CheckoutService) replay(db *gorm.DB, order *models.Order) (*models.Receipt, error) {
	receipt, err := s.receiptFor(db, order.ID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, orderFinalized(order)
	}
	receipt.Replayed = true
	s.log.WithField("order_id", order.ID).Info("checkout replayed")
	return receipt, nil
}

// Receipt returns the stored receipt of a completed order.
func (s *CheckoutService) Receipt(ctx context.Context, orderID uint) (*models.Receipt, error) {
	db := s.db.WithContext(ctx)
	receipt, err := s.receiptFor(db, orderID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		var order models.Order
		if err := db.First(&order, orderID).Error; err != nil {
			return nil, lookupErr("order", orderID, err)
		}
		return nil, &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("order %d has not been checked out", orderID)}
	}
	return receipt, nil
}

func (s *CheckoutService) receiptFor(db *gorm.DB, orderID uint) (*models.Receipt, error) {
	var receipt models.Receipt
	err := db.Where("order_id = ?", orderID).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt for order %d: %w", orderID, err)
	}
	return &receipt, nil
}

// methodLabel keeps client-supplied junk out of the metric label set.
func methodLabel(method billing.PaymentMethod) string {
	if !method.Valid() {
		return "invalid"
	}
	return string(method)
}

func newReceiptNumber(at time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("RCP-%s-%s", at.Format("20060102"), id[:10])
}
