package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []kds.Message
}

func (r *recordingNotifier) Notify(msg kds.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingNotifier) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Event)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	notifier *recordingNotifier
	registry *TableRegistry
	orders   *OrderService
	kot      *KOTRouter
	checkout *CheckoutService
	layout   *LayoutService

	table    models.Table
	table2   models.Table
	momo     models.Dish
	lassi    models.Dish
	combo    models.Combo
	cheese   models.AddOn
	customer models.Customer
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	log := quietLogger()

	f := &fixture{db: db, notifier: &recordingNotifier{}}
	f.registry = NewTableRegistry(db, nil, log)
	f.orders = NewOrderService(db, f.registry, NewGormCatalog(db), f.notifier, nil, log)
	f.kot = NewKOTRouter(db, f.orders, nil)
	f.checkout = NewCheckoutService(db, f.orders, f.registry, GormLedger{}, f.notifier, nil, log)
	f.layout = NewLayoutService(db, f.notifier, log)

	f.table = models.Table{Name: "T1", Capacity: 4, SortOrder: 0}
	f.table2 = models.Table{Name: "T2", Capacity: 2, SortOrder: 1}
	require.NoError(t, db.Create(&f.table).Error)
	require.NoError(t, db.Create(&f.table2).Error)

	f.momo = models.Dish{Name: "Momo", Price: decimal.NewFromInt(100), Station: models.StationKitchen, Available: true}
	f.lassi = models.Dish{Name: "Lassi", Price: decimal.NewFromInt(50), Station: models.StationBar, Available: true}
	require.NoError(t, db.Create(&f.momo).Error)
	require.NoError(t, db.Create(&f.lassi).Error)

	f.combo = models.Combo{Name: "Momo + Tea", Price: decimal.NewFromInt(120), Station: models.StationKitchen, Available: true}
	require.NoError(t, db.Create(&f.combo).Error)

	f.cheese = models.AddOn{Name: "Cheese", Price: decimal.NewFromInt(20)}
	require.NoError(t, db.Create(&f.cheese).Error)

	f.customer = models.Customer{Name: "Asha", Phone: "9800000001", LoyaltyPercent: decimal.NewFromInt(10)}
	require.NoError(t, db.Create(&f.customer).Error)
	return f
}

func uintPtr(v uint) *uint { return &v }

func intPtr(v int) *int { return &v }

// dineIn opens a dine-in order on table with two momos and one lassi.
func (f *fixture) dineIn(t *testing.T, table models.Table, customerID *uint) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		TableID:    &table.ID,
		OrderType:  models.OrderTypeDineIn,
		CustomerID: customerID,
		Items: []ItemInput{
			{DishID: &f.momo.ID, Quantity: 2},
			{DishID: &f.lassi.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return order
}

func requireServiceError(t *testing.T, err error, kind Kind, code string) *Error {
	t.Helper()
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, kind, serr.Kind, "unexpected kind for %v", err)
	if code != "" {
		require.Equal(t, code, serr.Code, "unexpected code for %v", err)
	}
	return serr
}

func requireTotalInvariant(t *testing.T, db *gorm.DB, orderID uint) {
	t.Helper()
	order, err := loadOrder(db, orderID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, item := range order.Items {
		require.True(t, item.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(item.TotalPrice),
			"item %d total %s does not match its snapshot", item.ID, item.TotalPrice)
		sum = sum.Add(item.TotalPrice)
	}
	require.True(t, sum.Equal(order.TotalAmount), "order total %s != sum of items %s", order.TotalAmount, sum)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
