package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// ItemInput describes one line to add. Exactly one of DishID and ComboID is set.
type ItemInput struct {
	DishID   *uint  `json:"dish_id"`
	ComboID  *uint  `json:"combo_id"`
	Quantity int    `json:"quantity"`
	AddOnIDs []uint `json:"add_on_ids"`
	Remark   string `json:"remark"`
}

// Source returns the item's catalog reference.
func (in ItemInput) Source() (LineSource, error) {
	switch {
	case in.DishID != nil && in.ComboID != nil:
		return nil, invalidInput("dish_id", "an item references either a dish or a combo, not both")
	case in.DishID != nil:
		return DishSource{DishID: *in.DishID}, nil
	case in.ComboID != nil:
		return ComboSource{ComboID: *in.ComboID}, nil
	}
	return nil, invalidInput("dish_id", "dish_id or combo_id is required")
}

type CreateOrderInput struct {
	TableID    *uint            `json:"table_id"`
	OrderType  models.OrderType `json:"order_type"`
	CustomerID *uint            `json:"customer_id"`
	Items      []ItemInput      `json:"items"`
}

type DeltaAction string

const (
	DeltaAdd    DeltaAction = "add"
	DeltaUpdate DeltaAction = "update"
	DeltaRemove DeltaAction = "remove"
)

// ItemDelta is one change in an UpdateOrderItems batch.
//
// add uses Item. update sets Quantity and/or Remark on ItemID. remove deletes
// ItemID, or only Quantity units of it when Quantity is given.
type ItemDelta struct {
	Action   DeltaAction `json:"action"`
	ItemID   uint        `json:"item_id"`
	Item     *ItemInput  `json:"item"`
	Quantity *int        `json:"quantity"`
	Remark   *string     `json:"remark"`
}

type OrderFilter struct {
	Status  models.OrderStatus
	TableID *uint
	Limit   int
}

// OrderService owns the order aggregate: its items, its total and its status.
type OrderService struct {
	db       *gorm.DB
	registry *TableRegistry
	catalog  Catalog
	locks    *keyedMutex
	notifier Notifier
	metrics  *Metrics
	log      *logrus.Logger
}

func NewOrderService(db *gorm.DB, registry *TableRegistry, catalog Catalog, notifier Notifier, metrics *Metrics, log *logrus.Logger) *OrderService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OrderService{
		db:       db,
		registry: registry,
		catalog:  catalog,
		locks:    newKeyedMutex(),
		notifier: notifierOrNop(notifier),
		metrics:  metrics,
		log:      log,
	}
}

// LockOrder serializes item changes, status changes and checkout for one order.
func (s *OrderService) LockOrder(orderID uint) func() {
	return s.locks.Lock(orderID)
}

// CreateOrder stores a new PENDING order. A dine-in order opens the table's
// session in the same transaction and fails with TableAlreadyOccupied when the
// table is taken.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if !in.OrderType.Valid() {
		return nil, invalidInput("order_type", "unknown order type %q", in.OrderType)
	}
	if in.OrderType.TableBound() && in.TableID == nil {
		return nil, invalidInput("table_id", "a %s order needs a table", in.OrderType)
	}
	if !in.OrderType.TableBound() && in.TableID != nil {
		return nil, invalidInput("table_id", "a %s order cannot take a table", in.OrderType)
	}
	if len(in.Items) == 0 {
		return nil, invalidInput("items", "at least one item is required")
	}

	db := s.db.WithContext(ctx)
	if in.CustomerID != nil {
		var customer models.Customer
		if err := db.First(&customer, *in.CustomerID).Error; err != nil {
			return nil, lookupErr("customer", *in.CustomerID, err)
		}
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for i, input := range in.Items {
		item, err := s.buildItem(ctx, fmt.Sprintf("items[%d]", i), input)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	order := models.Order{
		OrderType:  in.OrderType,
		TableID:    in.TableID,
		CustomerID: in.CustomerID,
		Status:     models.StatusPending,
		Items:      items,
	}
	order.RecomputeTotal()

	if in.TableID != nil {
		unlock := s.registry.LockTable(*in.TableID)
		defer unlock()
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if in.TableID != nil {
		if _, err := s.registry.OpenSessionTx(tx, *in.TableID, order.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	if in.TableID != nil {
		s.registry.SessionOpened()
	}
	s.metrics.orderCreated(order.OrderType)

	s.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"order_type": order.OrderType,
		"items":      len(order.Items),
	}).Info("order created")

	created, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(kds.Message{Event: kds.EventOrderCreated, Data: created})
	if created.TableID != nil {
		s.notifier.Notify(kds.Message{Event: kds.EventTableUpdate, Data: map[string]interface{}{
			"table_id": *created.TableID,
			"order_id": created.ID,
			"occupied": true,
		}})
	}
	return created, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	return loadOrder(s.db.WithContext(ctx), orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Preload("Items.AddOns").Preload("Table").Order("created_at DESC, id DESC")
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, invalidInput("status", "unknown order status %q", filter.Status)
		}
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TableID != nil {
		q = q.Where("table_id = ?", *filter.TableID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus applies a staff-chosen status. Terminal orders reject every
// change; cancelling releases the table.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	unlock := s.LockOrder(orderID)
	defer unlock()

	db := s.db.WithContext(ctx)
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkOrderTransition(order, status); err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}

	if status.Terminal() && order.TableID != nil {
		unlockTable := s.registry.LockTable(*order.TableID)
		defer unlockTable()
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", orderID, terminalStatuses).
		Update("status", status)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		current, err := loadOrder(db, orderID)
		if err != nil {
			return nil, err
		}
		return nil, orderFinalized(current)
	}

	closed := false
	if status.Terminal() && order.TableID != nil {
		closed, err = s.registry.CloseSessionTx(tx, *order.TableID, &order.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	if closed {
		s.registry.SessionClosed()
	}
	s.metrics.orderStatusChanged(status)

	s.log.WithFields(logrus.Fields{"order_id": orderID, "from": order.Status, "to": status}).Info("order status changed")

	updated, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(kds.Message{Event: kds.EventOrderUpdate, Data: updated})
	if closed {
		s.notifier.Notify(kds.Message{Event: kds.EventTableUpdate, Data: map[string]interface{}{
			"table_id": *updated.TableID,
			"order_id": updated.ID,
			"occupied": false,
		}})
	}
	return updated, nil
}

// UpdateOrderItemStatus sets one item's status. The write touches only that
// column, so concurrent station updates on different items never interfere and
// updates to the same item are last-writer-wins.
func (s *OrderService) UpdateOrderItemStatus(ctx context.Context, itemID uint, status models.OrderStatus) (*models.OrderItem, error) {
	return s.updateItemStatus(ctx, itemID, "", status)
}

// updateItemStatus is shared with the KOT router, which passes its station so an
// item routed elsewhere is rejected.
func (s *OrderService) updateItemStatus(ctx context.Context, itemID uint, station models.Station, status models.OrderStatus) (*models.OrderItem, error) {
	if err := checkItemStatus(status); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var item models.OrderItem
	if err := db.First(&item, itemID).Error; err != nil {
		return nil, lookupErr("order item", itemID, err)
	}
	if station != "" && item.Station != station {
		return nil, invalidInput("station", "item %d is routed to %s, not %s", itemID, item.Station, station)
	}

	// Checkout and cancellation hold the order lock while they finalize, so the
	// status read under it is the one the write lands against.
	unlock := s.LockOrder(item.OrderID)
	defer unlock()

	var order models.Order
	if err := db.First(&order, item.OrderID).Error; err != nil {
		return nil, lookupErr("order", item.OrderID, err)
	}
	if order.Status.Terminal() {
		return nil, orderFinalized(&order)
	}

	if err := db.Model(&models.OrderItem{}).Where("id = ?", itemID).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update item status: %w", err)
	}

	var updated models.OrderItem
	if err := db.Preload("AddOns").First(&updated, itemID).Error; err != nil {
		return nil, lookupErr("order item", itemID, err)
	}

	s.notifier.Notify(kds.Message{Event: kds.EventTicketUpdate, Station: updated.Station, Data: updated})
	return &updated, nil
}

// UpdateOrderItems applies a batch of add/update/remove deltas in one transaction
// and re-derives the order total from the resulting items.
func (s *OrderService) UpdateOrderItems(ctx context.Context, orderID uint, deltas []ItemDelta) (*models.Order, error) {
	if len(deltas) == 0 {
		return nil, invalidInput("deltas", "at least one change is required")
	}

	// Catalog lookups happen before anything is locked or written.
	added := make(map[int]models.OrderItem)
	for i, d := range deltas {
		field := fmt.Sprintf("deltas[%d]", i)
		switch d.Action {
		case DeltaAdd:
			if d.Item == nil {
				return nil, invalidInput(field+".item", "item is required for add")
			}
			item, err := s.buildItem(ctx, field+".item", *d.Item)
			if err != nil {
				return nil, err
			}
			added[i] = item
		case DeltaUpdate:
			if d.ItemID == 0 {
				return nil, invalidInput(field+".item_id", "item_id is required for update")
			}
			if d.Quantity == nil && d.Remark == nil {
				return nil, invalidInput(field, "nothing to update")
			}
			if d.Quantity != nil && *d.Quantity <= 0 {
				return nil, invalidQuantity(field+".quantity", "quantity must be at least 1, got %d", *d.Quantity)
			}
		case DeltaRemove:
			if d.ItemID == 0 {
				return nil, invalidInput(field+".item_id", "item_id is required for remove")
			}
			if d.Quantity != nil && *d.Quantity <= 0 {
				return nil, invalidQuantity(field+".quantity", "quantity to remove must be at least 1, got %d", *d.Quantity)
			}
		default:
			return nil, invalidInput(field+".action", "unknown action %q", d.Action)
		}
	}

	unlock := s.LockOrder(orderID)
	defer unlock()

	db := s.db.WithContext(ctx)
	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	order, err := loadOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.Status.Terminal() {
		tx.Rollback()
		return nil, orderFinalized(order)
	}

	if err := s.applyDeltas(tx, order, deltas, added); err != nil {
		tx.Rollback()
		return nil, err
	}

	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to reload items: %w", err)
	}
	order.Items = items
	total := order.RecomputeTotal()
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total_amount", total).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order total: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{"order_id": orderID, "deltas": len(deltas), "total": total.String()}).Info("order items updated")

	updated, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(kds.Message{Event: kds.EventOrderUpdate, Data: updated})
	return updated, nil
}

func (s *OrderService) applyDeltas(tx *gorm.DB, order *models.Order, deltas []ItemDelta, added map[int]models.OrderItem) error {
	current := make(map[uint]*models.OrderItem, len(order.Items))
	for i := range order.Items {
		current[order.Items[i].ID] = &order.Items[i]
	}

	for i, d := range deltas {
		field := fmt.Sprintf("deltas[%d]", i)
		switch d.Action {
		case DeltaAdd:
			item := added[i]
			item.OrderID = order.ID
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add item: %w", err)
			}

		case DeltaUpdate:
			item, ok := current[d.ItemID]
			if !ok {
				return notFound("order item", d.ItemID)
			}
			updates := map[string]interface{}{}
			if d.Quantity != nil {
				item.Quantity = *d.Quantity
				item.RecomputeTotal()
				updates["quantity"] = item.Quantity
				updates["total_price"] = item.TotalPrice
			}
			if d.Remark != nil {
				item.Remark = strings.TrimSpace(*d.Remark)
				updates["remark"] = item.Remark
			}
			if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update item %d: %w", item.ID, err)
			}

		case DeltaRemove:
			item, ok := current[d.ItemID]
			if !ok {
				return notFound("order item", d.ItemID)
			}
			if d.Quantity != nil && *d.Quantity > item.Quantity {
				return invalidQuantity(field+".quantity", "cannot remove %d of item %d, only %d ordered", *d.Quantity, item.ID, item.Quantity)
			}
			if d.Quantity == nil || *d.Quantity == item.Quantity {
				if err := tx.Where("order_item_id = ?", item.ID).Delete(&models.OrderItemAddOn{}).Error; err != nil {
					return fmt.Errorf("failed to remove add-ons of item %d: %w", item.ID, err)
				}
				if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
					return fmt.Errorf("failed to remove item %d: %w", item.ID, err)
				}
				delete(current, item.ID)
				continue
			}
			item.Quantity -= *d.Quantity
			item.RecomputeTotal()
			err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
				"quantity":    item.Quantity,
				"total_price": item.TotalPrice,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to reduce item %d: %w", item.ID, err)
			}
		}
	}
	return nil
}

// buildItem snapshots the catalog entry and add-on prices onto a new item.
func (s *OrderService) buildItem(ctx context.Context, field string, in ItemInput) (models.OrderItem, error) {
	if in.Quantity <= 0 {
		return models.OrderItem{}, invalidQuantity(field+".quantity", "quantity must be at least 1, got %d", in.Quantity)
	}
	src, err := in.Source()
	if err != nil {
		return models.OrderItem{}, withFieldPrefix(field, err)
	}

	entry, err := s.catalog.Resolve(ctx, src)
	if err != nil {
		return models.OrderItem{}, catalogErr(err)
	}
	addOns, err := s.catalog.AddOns(ctx, in.AddOnIDs)
	if err != nil {
		return models.OrderItem{}, catalogErr(err)
	}

	item := models.OrderItem{
		Name:      entry.Name,
		Station:   entry.Station,
		Quantity:  in.Quantity,
		UnitPrice: entry.Price,
		Remark:    strings.TrimSpace(in.Remark),
		Status:    models.StatusPending,
	}
	switch v := src.(type) {
	case DishSource:
		id := v.DishID
		item.DishID = &id
	case ComboSource:
		id := v.ComboID
		item.ComboID = &id
	}
	for _, a := range addOns {
		item.AddOns = append(item.AddOns, models.OrderItemAddOn{AddOnID: a.ID, Name: a.Name, UnitPrice: a.Price})
	}
	item.RecomputeTotal()
	return item, nil
}

var terminalStatuses = []models.OrderStatus{models.StatusCompleted, models.StatusCancelled}

func loadOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("order_items.id") }).
		Preload("Items.AddOns").
		Preload("Table").
		Preload("Customer").
		First(&order, orderID).Error
	if err != nil {
		return nil, lookupErr("order", orderID, err)
	}
	return &order, nil
}
