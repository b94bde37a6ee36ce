package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/receipts"
	"github.com/yeremiapane/restaurant-pos/services"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer is built from.
type Deps struct {
	DB        *gorm.DB
	Hub       *kds.Hub
	Registry  *services.TableRegistry
	Orders    *services.OrderService
	KOT       *services.KOTRouter
	Checkout  *services.CheckoutService
	Layout    *services.LayoutService
	Renderers map[string]receipts.Renderer
	Gatherer  prometheus.Gatherer

	CORSOrigin   string
	TLS          bool
	TokenTTL     time.Duration
	RateLimitRPS float64
	RateBurst    int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(d.TLS))
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	if d.RateLimitRPS > 0 {
		r.Use(middlewares.NewRateLimiter(d.RateLimitRPS, d.RateBurst).RateLimit())
	}

	userCtrl := controllers.NewUserController(d.DB, d.TokenTTL)
	orderCtrl := controllers.NewOrderController(d.Orders)
	tableCtrl := controllers.NewTableController(d.Registry, d.Layout)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.KOT, d.CORSOrigin)
	checkoutCtrl := controllers.NewCheckoutController(d.Checkout)
	receiptCtrl := controllers.NewReceiptController(d.Checkout, d.Orders, d.Renderers)
	customerCtrl := controllers.NewCustomerController(d.DB)
	menuCtrl := controllers.NewMenuController(d.DB)
	adminCtrl := controllers.NewAdminController(d.DB, d.Registry, d.KOT)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.POST("/login", middlewares.NewStrictRateLimiter().RateLimit(), userCtrl.Login)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	ws.GET("/kds", kdsCtrl.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	front := middlewares.RoleCheck(models.RoleCashier, models.RoleWaiter)
	cashier := middlewares.RoleCheck(models.RoleCashier)
	kitchen := middlewares.RoleCheck(models.RoleChef, models.RoleWaiter, models.RoleCashier)
	adminOnly := middlewares.RoleCheck()

	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/users", adminOnly, userCtrl.GetAllUsers)
	auth.POST("/users", adminOnly, userCtrl.Register)

	// MENU & CUSTOMERS (read-only)
	auth.GET("/menu", menuCtrl.GetMenu)
	auth.GET("/customers", customerCtrl.GetAllCustomers)
	auth.GET("/customers/:customer_id", customerCtrl.GetCustomerByID)
	auth.GET("/customers/:customer_id/ledger", cashier, customerCtrl.GetLedger)

	// TABLES & LAYOUT
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.GET("/tables/occupied", tableCtrl.GetOccupiedTables)
	auth.GET("/tables/:table_id/session", tableCtrl.GetTableSession)
	auth.DELETE("/tables/:table_id/session", cashier, tableCtrl.ReleaseTable)
	auth.PUT("/tables/order", adminOnly, tableCtrl.ReorderTables)
	auth.GET("/spaces", tableCtrl.GetAllSpaces)
	auth.PUT("/spaces/order", adminOnly, tableCtrl.ReorderSpaces)

	// ORDERS
	auth.POST("/orders", front, orderCtrl.CreateOrder)
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", front, orderCtrl.UpdateOrderStatus)
	auth.PATCH("/orders/:order_id/items", front, orderCtrl.UpdateOrderItems)
	auth.PATCH("/order-items/:item_id/status", kitchen, orderCtrl.UpdateOrderItemStatus)

	// KOT
	auth.GET("/orders/:order_id/kot", kdsCtrl.GetTickets)
	auth.GET("/orders/:order_id/kot/:station", kdsCtrl.ReprintTicket)
	auth.PATCH("/kot/:station/items/:item_id", kitchen, kdsCtrl.UpdateTicketItem)
	auth.GET("/kot/pending", kdsCtrl.GetPendingWork)

	// CHECKOUT & RECEIPTS
	auth.POST("/orders/:order_id/bill", cashier, checkoutCtrl.PreviewBill)
	auth.POST("/orders/:order_id/checkout", cashier, checkoutCtrl.CheckoutOrder)
	auth.GET("/orders/:order_id/receipt", receiptCtrl.GetReceipt)
	auth.GET("/orders/:order_id/receipt.pdf", receiptCtrl.PrintReceipt("pdf"))
	auth.GET("/orders/:order_id/receipt.txt", receiptCtrl.PrintReceipt("txt"))

	// DASHBOARD
	auth.GET("/dashboard/stats", adminOnly, adminCtrl.GetDashboardStats)

	return r
}
