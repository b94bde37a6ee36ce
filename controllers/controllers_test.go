package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/receipts"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

// setupEngine mounts the handlers without auth on a seeded in-memory database.
func setupEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger("panic")
	utils.SetJWTSecret("controllers-secret")

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDemo(db))
	_, err = database.SeedAdmin(db, "Admin", "admin@test.local", "password123")
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	registry := services.NewTableRegistry(db, nil, log)
	orders := services.NewOrderService(db, registry, services.NewGormCatalog(db), nil, nil, log)
	kot := services.NewKOTRouter(db, orders, nil)
	checkout := services.NewCheckoutService(db, orders, registry, nil, nil, nil, log)
	layout := services.NewLayoutService(db, nil, log)

	orderCtrl := controllers.NewOrderController(orders)
	tableCtrl := controllers.NewTableController(registry, layout)
	checkoutCtrl := controllers.NewCheckoutController(checkout)
	receiptCtrl := controllers.NewReceiptController(checkout, orders, map[string]receipts.Renderer{
		"txt": receipts.NewTextRenderer(config.Restaurant{Name: "Test Kitchen"}),
	})
	userCtrl := controllers.NewUserController(db, time.Hour)
	menuCtrl := controllers.NewMenuController(db)
	customerCtrl := controllers.NewCustomerController(db)
	adminCtrl := controllers.NewAdminController(db, registry, kot)

	r := gin.New()
	r.POST("/login", userCtrl.Login)
	r.POST("/users", userCtrl.Register)
	r.GET("/menu", menuCtrl.GetMenu)
	r.GET("/customers", customerCtrl.GetAllCustomers)
	r.GET("/customers/:customer_id", customerCtrl.GetCustomerByID)
	r.GET("/tables", tableCtrl.GetAllTables)
	r.GET("/tables/:table_id/session", tableCtrl.GetTableSession)
	r.DELETE("/tables/:table_id/session", tableCtrl.ReleaseTable)
	r.PUT("/tables/order", tableCtrl.ReorderTables)
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders", orderCtrl.GetAllOrders)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	r.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	r.PATCH("/orders/:order_id/items", orderCtrl.UpdateOrderItems)
	r.POST("/orders/:order_id/bill", checkoutCtrl.PreviewBill)
	r.POST("/orders/:order_id/checkout", checkoutCtrl.CheckoutOrder)
	r.GET("/orders/:order_id/receipt", receiptCtrl.GetReceipt)
	r.GET("/orders/:order_id/receipt.txt", receiptCtrl.PrintReceipt("txt"))
	r.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
	return r, db
}

func perform(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func createDineIn(t *testing.T, r *gin.Engine, tableID uint) models.Order {
	t.Helper()
	w, resp := perform(t, r, http.MethodPost, "/orders", map[string]interface{}{
		"table_id":   tableID,
		"order_type": "DINE_IN",
		"items":      []map[string]interface{}{{"dish_id": 2, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	return order
}

func TestOrderController_CreateOrder(t *testing.T) {
	r, _ := setupEngine(t)

	order := createDineIn(t, r, 2)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "350", order.TotalAmount.String())

	t.Run("occupied table", func(t *testing.T) {
		w, resp := perform(t, r, http.MethodPost, "/orders", map[string]interface{}{
			"table_id":   2,
			"order_type": "DINE_IN",
			"items":      []map[string]interface{}{{"dish_id": 3, "quantity": 1}},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, services.CodeTableAlreadyOccupied, resp.Code)
		var current models.TableSession
		require.NoError(t, json.Unmarshal(resp.Data, &current))
		assert.Equal(t, order.ID, current.OrderID)
	})

	t.Run("bad quantity", func(t *testing.T) {
		w, resp := perform(t, r, http.MethodPost, "/orders", map[string]interface{}{
			"order_type": "TAKE_AWAY",
			"items":      []map[string]interface{}{{"dish_id": 1, "quantity": 0}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, services.CodeInvalidQuantity, resp.Code)
		assert.Contains(t, resp.Field, "quantity")
	})

	t.Run("unknown dish", func(t *testing.T) {
		w, _ := perform(t, r, http.MethodPost, "/orders", map[string]interface{}{
			"order_type": "TAKE_AWAY",
			"items":      []map[string]interface{}{{"dish_id": 99, "quantity": 1}},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderController_PathParams(t *testing.T) {
	r, _ := setupEngine(t)

	w, _ := perform(t, r, http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/orders/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := perform(t, r, http.MethodGet, "/orders/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeNotFound, resp.Code)

	w, _ = perform(t, r, http.MethodGet, "/orders?table_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderController_ItemsAndStatus(t *testing.T) {
	r, _ := setupEngine(t)
	order := createDineIn(t, r, 1)
	path := fmt.Sprintf("/orders/%d", order.ID)

	w, resp := perform(t, r, http.MethodPatch, path+"/items", map[string]interface{}{
		"deltas": []map[string]interface{}{
			{"action": "add", "item": map[string]interface{}{"dish_id": 3, "quantity": 2, "add_on_ids": []uint{2}}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Order
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "510", updated.TotalAmount.String())
	require.Len(t, updated.Items, 2)

	w, resp = perform(t, r, http.MethodPatch, path+"/items", map[string]interface{}{
		"deltas": []map[string]interface{}{
			{"action": "update", "item_id": updated.Items[0].ID, "quantity": 0},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeInvalidQuantity, resp.Code)

	w, _ = perform(t, r, http.MethodPatch, path+"/status", map[string]string{"status": "PREPARING"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(t, r, http.MethodPatch, path+"/status", map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = perform(t, r, http.MethodPatch, path+"/status", map[string]string{"status": "PENDING"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, services.CodeOrderAlreadyFinalized, resp.Code)

	// cancelling freed the table
	w, resp = perform(t, r, http.MethodGet, "/tables/1/session", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, []string{"", "null"}, string(resp.Data))
}

func TestCheckoutController(t *testing.T) {
	r, _ := setupEngine(t)
	order := createDineIn(t, r, 3)
	path := fmt.Sprintf("/orders/%d", order.ID)

	w, resp := perform(t, r, http.MethodPost, path+"/bill", map[string]interface{}{
		"modifiers": map[string]interface{}{"apply_tax": true},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var flow services.CheckoutFlow
	require.NoError(t, json.Unmarshal(resp.Data, &flow))
	assert.Equal(t, services.StageBill, flow.Stage)
	require.NotNil(t, flow.Bill)
	assert.Equal(t, "395.5", flow.Bill.GrandTotal.String())

	w, resp = perform(t, r, http.MethodPost, path+"/checkout", map[string]string{"payment_method": "CREDIT"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, services.CodeCreditRequiresCustomer, resp.Code)
	assert.Equal(t, string(services.StagePayment), w.Header().Get("Checkout-Stage"), "a failed payment stays at PAYMENT")

	w, resp = perform(t, r, http.MethodPost, path+"/checkout", map[string]string{"payment_method": "BITCOIN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeInvalidInput, resp.Code)
	assert.Equal(t, string(services.StageBill), w.Header().Get("Checkout-Stage"))

	w, _ = perform(t, r, http.MethodGet, path+"/receipt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(t, r, http.MethodPost, path+"/bill", map[string]interface{}{
		"modifiers": map[string]interface{}{"manual_discount": map[string]interface{}{"type": "PERCENT", "value": "150"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := map[string]interface{}{"payment_method": "CARD", "modifiers": map[string]interface{}{"apply_service_charge": true}}
	w, resp = perform(t, r, http.MethodPost, path+"/checkout", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var receipt models.Receipt
	require.NoError(t, json.Unmarshal(resp.Data, &receipt))
	assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, string(services.StageSuccess), w.Header().Get("Checkout-Stage"))

	w, resp = perform(t, r, http.MethodPost, path+"/checkout", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
	var replay models.Receipt
	require.NoError(t, json.Unmarshal(resp.Data, &replay))
	assert.Equal(t, receipt.ReceiptNumber, replay.ReceiptNumber)
	assert.True(t, replay.Replayed)

	w, _ = perform(t, r, http.MethodGet, path+"/receipt.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Test Kitchen")
	assert.Contains(t, w.Body.String(), receipt.ReceiptNumber)

	w, resp = perform(t, r, http.MethodGet, "/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		OccupiedTables int   `json:"occupied_tables"`
		TotalTables    int64 `json:"total_tables"`
		TodayCheckouts int64 `json:"today_checkouts"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 0, stats.OccupiedTables)
	assert.Equal(t, int64(4), stats.TotalTables)
	assert.Equal(t, int64(1), stats.TodayCheckouts)
}

func TestTableController(t *testing.T) {
	r, _ := setupEngine(t)
	order := createDineIn(t, r, 4)

	w, resp := perform(t, r, http.MethodGet, "/tables/4/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session models.TableSession
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	assert.Equal(t, uint(4), session.TableID)

	w, resp = perform(t, r, http.MethodDelete, "/tables/4/session", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, services.CodeTableAlreadyOccupied, resp.Code)
	var live struct {
		Session models.TableSession `json:"session"`
		Order   models.Order        `json:"order"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &live))
	assert.Equal(t, order.ID, live.Order.ID)
	assert.Equal(t, models.StatusPending, live.Order.Status)

	w, _ = perform(t, r, http.MethodPost, "/orders", map[string]interface{}{
		"table_id":   4,
		"order_type": "DINE_IN",
		"items":      []map[string]interface{}{{"dish_id": 3, "quantity": 1}},
	})
	assert.Equal(t, http.StatusConflict, w.Code, "the refused release left the table occupied")

	w, _ = perform(t, r, http.MethodPatch, fmt.Sprintf("/orders/%d/status", order.ID), map[string]string{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = perform(t, r, http.MethodDelete, "/tables/4/session", nil)
	assert.Equal(t, http.StatusOK, w.Code, "releasing a free table is not an error")

	w, resp = perform(t, r, http.MethodPut, "/tables/order", map[string][]uint{"ids": {1, 1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ids[1]", resp.Field)

	w, _ = perform(t, r, http.MethodPut, "/tables/order", map[string][]uint{"ids": {3, 2, 1}})
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = perform(t, r, http.MethodGet, "/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tables []models.Table
	require.NoError(t, json.Unmarshal(resp.Data, &tables))
	require.Len(t, tables, 4)
	assert.Equal(t, "B1", tables[0].Name)
}

func TestMenuAndCustomers(t *testing.T) {
	r, db := setupEngine(t)
	require.NoError(t, db.Model(&models.Dish{}).Where("name = ?", "Dal Bhat").Update("available", false).Error)

	w, resp := perform(t, r, http.MethodGet, "/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var menu struct {
		Categories []models.MenuCategory `json:"categories"`
		Combos     []models.Combo        `json:"combos"`
		AddOns     []models.AddOn        `json:"add_ons"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &menu))
	require.Len(t, menu.Categories, 2)
	assert.Equal(t, "Drinks", menu.Categories[0].Name)
	assert.Len(t, menu.Categories[1].Dishes, 1, "unavailable dishes are hidden")
	assert.Len(t, menu.Combos, 1)
	assert.Len(t, menu.AddOns, 2)

	_, resp = perform(t, r, http.MethodGet, "/menu?all=true", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &menu))
	assert.Len(t, menu.Categories[1].Dishes, 2)

	w, resp = perform(t, r, http.MethodGet, "/customers?q=9800", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var customers []models.Customer
	require.NoError(t, json.Unmarshal(resp.Data, &customers))
	assert.Len(t, customers, 1)

	w, _ = perform(t, r, http.MethodGet, "/customers/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserController(t *testing.T) {
	r, _ := setupEngine(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"valid cashier", map[string]string{"name": "Sita", "email": "sita@test.local", "password": "password123", "role": "Cashier"}, http.StatusCreated},
		{"duplicate email", map[string]string{"name": "Sita", "email": "SITA@test.local", "password": "password123", "role": "cashier"}, http.StatusConflict},
		{"unknown role", map[string]string{"name": "Ram", "email": "ram@test.local", "password": "password123", "role": "owner"}, http.StatusBadRequest},
		{"short password", map[string]string{"name": "Ram", "email": "ram@test.local", "password": "short", "role": "chef"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := perform(t, r, http.MethodPost, "/users", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w, resp := perform(t, r, http.MethodPost, "/login", map[string]string{"email": "sita@test.local", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
		Role  string `json:"user_role"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	assert.Equal(t, models.RoleCashier, login.Role)

	claims, err := utils.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCashier, claims.Role)

	w, _ = perform(t, r, http.MethodPost, "/login", map[string]string{"email": "sita@test.local", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
