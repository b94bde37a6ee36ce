package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

type AdminController struct {
	DB       *gorm.DB
	Registry *services.TableRegistry
	KOT      *services.KOTRouter
}

func NewAdminController(db *gorm.DB, registry *services.TableRegistry, kot *services.KOTRouter) *AdminController {
	return &AdminController{DB: db, Registry: registry, KOT: kot}
}

type salesByMethod struct {
	PaymentMethod string  `json:"payment_method"`
	Count         int64   `json:"count"`
	Total         float64 `json:"total"`
}

type dashboardStats struct {
	OrdersByStatus  map[models.OrderStatus]int64 `json:"orders_by_status"`
	OccupiedTables  int                          `json:"occupied_tables"`
	TotalTables     int64                        `json:"total_tables"`
	PendingWork     services.PendingSummary      `json:"pending_work"`
	TodayCheckouts  int64                        `json:"today_checkouts"`
	TodaySales      decimal.Decimal              `json:"today_sales"`
	TodaySalesLabel string                       `json:"today_sales_label"`
	TodayByMethod   []salesByMethod              `json:"today_by_method"`
}

// GetDashboardStats -> live floor and today's takings
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()
	db := ac.DB.WithContext(ctx)

	stats := dashboardStats{OrdersByStatus: make(map[models.OrderStatus]int64)}

	var statusRows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&statusRows).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	for _, row := range statusRows {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	occupied, err := ac.Registry.ListOccupied(ctx)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	stats.OccupiedTables = len(occupied)
	if err := db.Model(&models.Table{}).Count(&stats.TotalTables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if stats.PendingWork, err = ac.KOT.PendingWork(ctx); err != nil {
		utils.RespondServiceError(c, err)
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.Receipt{}).
		Select("payment_method, COUNT(*) AS count, COALESCE(SUM(grand_total), 0) AS total").
		Where("created_at >= ?", startOfDay).
		Group("payment_method").
		Order("payment_method").
		Scan(&stats.TodayByMethod).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	stats.TodaySales = decimal.Zero
	for _, m := range stats.TodayByMethod {
		stats.TodayCheckouts += m.Count
		stats.TodaySales = stats.TodaySales.Add(decimal.NewFromFloat(m.Total))
	}
	stats.TodaySales = stats.TodaySales.Round(2)
	stats.TodaySalesLabel = utils.FormatCurrency(stats.TodaySales)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}
