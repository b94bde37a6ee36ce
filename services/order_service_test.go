package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
)

func TestCreateOrder_DineInOpensSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		TableID:   &f.table.ID,
		OrderType: models.OrderTypeDineIn,
		Items: []ItemInput{
			{DishID: &f.momo.ID, Quantity: 2, AddOnIDs: []uint{f.cheese.ID}, Remark: " less spicy "},
			{DishID: &f.lassi.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Momo", order.Items[0].Name)
	assert.Equal(t, models.StationKitchen, order.Items[0].Station)
	assert.Equal(t, "less spicy", order.Items[0].Remark)
	require.Len(t, order.Items[0].AddOns, 1)
	assert.True(t, d("240").Equal(order.Items[0].TotalPrice), "(100 + 20) x 2")
	assert.Equal(t, models.StationBar, order.Items[1].Station)
	assert.True(t, d("290").Equal(order.TotalAmount))
	requireTotalInvariant(t, f.db, order.ID)

	session, err := f.registry.ActiveSession(ctx, f.table.ID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, order.ID, session.OrderID)

	assert.Contains(t, f.notifier.events(), kds.EventOrderCreated)
	assert.Contains(t, f.notifier.events(), kds.EventTableUpdate)
}

func TestCreateOrder_BusyTableIsRejected(t *testing.T) {
	f := newFixture(t)
	first := f.dineIn(t, f.table, nil)

	_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		TableID:   &f.table.ID,
		OrderType: models.OrderTypeDineIn,
		Items:     []ItemInput{{DishID: &f.momo.ID, Quantity: 1}},
	})
	serr := requireServiceError(t, err, KindConflict, CodeTableAlreadyOccupied)
	current, ok := serr.Current.(*models.TableSession)
	require.True(t, ok)
	assert.Equal(t, first.ID, current.OrderID)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the losing order must not be stored")
}

func TestCreateOrder_ConcurrentDineInOnSameTable(t *testing.T) {
	f := newFixture(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		occupied int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
				TableID:   &f.table.ID,
				OrderType: models.OrderTypeDineIn,
				Items:     []ItemInput{{DishID: &f.momo.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if errors.Is(err, ErrTableAlreadyOccupied) {
				occupied++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 4, occupied)
}

func TestCreateOrder_DirectOrderTakesNoTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		OrderType: models.OrderTypeTakeAway,
		Items:     []ItemInput{{ComboID: &f.combo.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Nil(t, order.TableID)
	require.Len(t, order.Items, 1)
	assert.NotNil(t, order.Items[0].ComboID)
	assert.Nil(t, order.Items[0].DishID)
	assert.True(t, d("360").Equal(order.TotalAmount))

	occupied, err := f.registry.ListOccupied(ctx)
	require.NoError(t, err)
	assert.Empty(t, occupied)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input CreateOrderInput
		kind  Kind
		code  string
		field string
	}{
		{
			name:  "unknown order type",
			input: CreateOrderInput{OrderType: "DRIVE_THRU", Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 1}}},
			kind:  KindValidation, code: CodeInvalidInput, field: "order_type",
		},
		{
			name:  "dine-in without table",
			input: CreateOrderInput{OrderType: models.OrderTypeDineIn, Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 1}}},
			kind:  KindValidation, code: CodeInvalidInput, field: "table_id",
		},
		{
			name:  "delivery with a table",
			input: CreateOrderInput{OrderType: models.OrderTypeDelivery, TableID: &f.table.ID, Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 1}}},
			kind:  KindValidation, code: CodeInvalidInput, field: "table_id",
		},
		{
			name:  "no items",
			input: CreateOrderInput{OrderType: models.OrderTypePickup},
			kind:  KindValidation, code: CodeInvalidInput, field: "items",
		},
		{
			name:  "zero quantity",
			input: CreateOrderInput{OrderType: models.OrderTypePickup, Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 0}}},
			kind:  KindValidation, code: CodeInvalidQuantity, field: "items[0].quantity",
		},
		{
			name:  "dish and combo together",
			input: CreateOrderInput{OrderType: models.OrderTypePickup, Items: []ItemInput{{DishID: &f.momo.ID, ComboID: &f.combo.ID, Quantity: 1}}},
			kind:  KindValidation, code: CodeInvalidInput, field: "items[0].dish_id",
		},
		{
			name:  "unknown dish",
			input: CreateOrderInput{OrderType: models.OrderTypePickup, Items: []ItemInput{{DishID: uintPtr(999), Quantity: 1}}},
			kind:  KindNotFound, code: CodeNotFound,
		},
		{
			name:  "unknown add-on",
			input: CreateOrderInput{OrderType: models.OrderTypePickup, Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 1, AddOnIDs: []uint{999}}}},
			kind:  KindNotFound, code: CodeNotFound,
		},
		{
			name:  "unknown customer",
			input: CreateOrderInput{OrderType: models.OrderTypePickup, CustomerID: uintPtr(999), Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 1}}},
			kind:  KindNotFound, code: CodeNotFound,
		},
		{
			name:  "unknown table",
			input: CreateOrderInput{OrderType: models.OrderTypeDineIn, TableID: uintPtr(999), Items: []ItemInput{{DishID: &f.momo.ID, Quantity: 1}}},
			kind:  KindNotFound, code: CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(context.Background(), tt.input)
			serr := requireServiceError(t, err, tt.kind, tt.code)
			if tt.field != "" {
				assert.Equal(t, tt.field, serr.Field)
			}
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrder_UnavailableDishIsRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&f.momo).Update("available", false).Error)

	_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		OrderType: models.OrderTypeQuickBilling,
		Items:     []ItemInput{{DishID: &f.momo.ID, Quantity: 1}},
	})
	requireServiceError(t, err, KindValidation, CodeInvalidInput)
}

func TestUpdateOrderItems_PricesAreSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.dineIn(t, f.table, nil)

	require.NoError(t, f.db.Model(&f.momo).Update("price", decimal.NewFromInt(500)).Error)

	updated, err := f.orders.UpdateOrderItems(ctx, order.ID, []ItemDelta{
		{Action: DeltaUpdate, ItemID: order.Items[0].ID, Quantity: intPtr(3)},
	})
	require.NoError(t, err)
	assert.True(t, d("300").Equal(updated.Items[0].TotalPrice), "existing item keeps its 100 snapshot")

	updated, err = f.orders.UpdateOrderItems(ctx, order.ID, []ItemDelta{
		{Action: DeltaAdd, Item: &ItemInput{DishID: &f.momo.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 3)
	assert.True(t, d("500").Equal(updated.Items[2].UnitPrice), "new item snapshots the current price")
	assert.True(t, d("850").Equal(updated.TotalAmount))
	requireTotalInvariant(t, f.db, order.ID)
}

func TestUpdateOrderItems_AddUpdateRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.dineIn(t, f.table, nil)
	momo, lassi := order.Items[0], order.Items[1]

	updated, err := f.orders.UpdateOrderItems(ctx, order.ID, []ItemDelta{
		{Action: DeltaAdd, Item: &ItemInput{ComboID: &f.combo.ID, Quantity: 1, AddOnIDs: []uint{f.cheese.ID}}},
		{Action: DeltaUpdate, ItemID: lassi.ID, Remark: stringPtr("no sugar")},
		{Action: DeltaRemove, ItemID: momo.ID, Quantity: intPtr(1)},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 3)
	assert.Equal(t, 1, updated.Items[0].Quantity)
	assert.Equal(t, "no sugar", updated.Items[1].Remark)
	assert.True(t, d("140").Equal(updated.Items[2].TotalPrice))
	assert.True(t, d("290").Equal(updated.TotalAmount), "100 + 50 + 140")
	requireTotalInvariant(t, f.db, order.ID)

	updated, err = f.orders.UpdateOrderItems(ctx, order.ID, []ItemDelta{
		{Action: DeltaRemove, ItemID: momo.ID},
		{Action: DeltaRemove, ItemID: lassi.ID, Quantity: intPtr(1)},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, d("140").Equal(updated.TotalAmount))
	requireTotalInvariant(t, f.db, order.ID)
}

func TestUpdateOrderItems_RejectedBatchLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.dineIn(t, f.table, nil)
	momo := order.Items[0]

	tests := []struct {
		name   string
		deltas []ItemDelta
		kind   Kind
		code   string
	}{
		{
			name: "remove more than ordered",
			deltas: []ItemDelta{
				{Action: DeltaUpdate, ItemID: momo.ID, Quantity: intPtr(5)},
				{Action: DeltaRemove, ItemID: order.Items[1].ID, Quantity: intPtr(2)},
			},
			kind: KindValidation, code: CodeInvalidQuantity,
		},
		{
			name:   "update to zero",
			deltas: []ItemDelta{{Action: DeltaUpdate, ItemID: momo.ID, Quantity: intPtr(0)}},
			kind:   KindValidation, code: CodeInvalidQuantity,
		},
		{
			name:   "negative remove",
			deltas: []ItemDelta{{Action: DeltaRemove, ItemID: momo.ID, Quantity: intPtr(-1)}},
			kind:   KindValidation, code: CodeInvalidQuantity,
		},
		{
			name: "item from another order",
			deltas: []ItemDelta{
				{Action: DeltaUpdate, ItemID: momo.ID, Quantity: intPtr(4)},
				{Action: DeltaRemove, ItemID: 999},
			},
			kind: KindNotFound, code: CodeNotFound,
		},
		{
			name:   "unknown action",
			deltas: []ItemDelta{{Action: "replace", ItemID: momo.ID}},
			kind:   KindValidation, code: CodeInvalidInput,
		},
		{
			name:   "add without item",
			deltas: []ItemDelta{{Action: DeltaAdd}},
			kind:   KindValidation, code: CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.UpdateOrderItems(ctx, order.ID, tt.deltas)
			requireServiceError(t, err, tt.kind, tt.code)

			current, err := f.orders.GetOrder(ctx, order.ID)
			require.NoError(t, err)
			require.Len(t, current.Items, 2)
			assert.Equal(t, 2, current.Items[0].Quantity)
			assert.True(t, d("250").Equal(current.TotalAmount))
		})
	}
}

func TestUpdateOrderStatus_TerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.dineIn(t, f.table, nil)

	updated, err := f.orders.UpdateOrderStatus(ctx, order.ID, models.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, updated.Status)

	updated, err = f.orders.UpdateOrderStatus(ctx, order.ID, models.StatusPending)
	require.NoError(t, err, "staff may move a live order back")
	assert.Equal(t, models.StatusPending, updated.Status)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, models.StatusCompleted)
	requireServiceError(t, err, KindValidation, CodeInvalidInput)

	updated, err = f.orders.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	session, err := f.registry.ActiveSession(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Nil(t, session, "cancelling releases the table")

	for _, next := range []models.OrderStatus{models.StatusPreparing, models.StatusCancelled} {
		_, err = f.orders.UpdateOrderStatus(ctx, order.ID, next)
		serr := requireServiceError(t, err, KindConflict, CodeOrderAlreadyFinalized)
		current, ok := serr.Current.(*models.Order)
		require.True(t, ok)
		assert.Equal(t, models.StatusCancelled, current.Status)
	}

	_, err = f.orders.UpdateOrderItems(ctx, order.ID, []ItemDelta{{Action: DeltaRemove, ItemID: order.Items[0].ID}})
	requireServiceError(t, err, KindConflict, CodeOrderAlreadyFinalized)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, "LOST")
	requireServiceError(t, err, KindValidation, CodeInvalidInput)
}

func TestUpdateOrderItemStatus_IndependentOfOrderStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.dineIn(t, f.table, nil)

	item, err := f.orders.UpdateOrderItemStatus(ctx, order.Items[0].ID, models.StatusReadyToPick)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyToPick, item.Status)

	current, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, current.Status)
	assert.Equal(t, models.StatusPending, current.Items[1].Status)

	_, err = f.orders.UpdateOrderItemStatus(ctx, 999, models.StatusServed)
	requireServiceError(t, err, KindNotFound, CodeNotFound)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	_, err = f.orders.UpdateOrderItemStatus(ctx, order.Items[0].ID, models.StatusServed)
	requireServiceError(t, err, KindConflict, CodeOrderAlreadyFinalized)
}

func TestListOrders_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.dineIn(t, f.table, nil)
	f.dineIn(t, f.table2, nil)

	_, err := f.orders.UpdateOrderStatus(ctx, first.ID, models.StatusPreparing)
	require.NoError(t, err)

	preparing, err := f.orders.ListOrders(ctx, OrderFilter{Status: models.StatusPreparing})
	require.NoError(t, err)
	require.Len(t, preparing, 1)
	assert.Equal(t, first.ID, preparing[0].ID)

	all, err := f.orders.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.orders.ListOrders(ctx, OrderFilter{Status: "BOGUS"})
	requireServiceError(t, err, KindValidation, CodeInvalidInput)
}

func stringPtr(s string) *string { return &s }

func TestUpdateOrderItemStatus_WaitsForFinalization(t *testing.T) {
	f := newFixture(t)
	order := f.dineIn(t, f.table, nil)
	momo := order.Items[0]

	// stand in for a checkout that is mid-commit
	unlock := f.orders.LockOrder(order.ID)

	done := make(chan error, 1)
	go func() {
		_, err := f.kot.UpdateTicketItemStatus(context.Background(), models.StationKitchen, momo.ID, models.StatusServed)
		done <- err
	}()

	require.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond,
		"the item write must wait for the order lock")
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.StatusCompleted).Error)
	unlock()

	select {
	case err := <-done:
		requireServiceError(t, err, KindConflict, CodeOrderAlreadyFinalized)
	case <-time.After(time.Second):
		t.Fatal("item status update never returned")
	}

	var item models.OrderItem
	require.NoError(t, f.db.First(&item, momo.ID).Error)
	assert.Equal(t, models.StatusPending, item.Status)
}
