package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// MenuController lists the catalog orders are built from. Editing the menu is
// done outside this service.
type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

// GetMenu -> categories with their dishes, plus combos and add-ons. Unavailable
// items are left out unless ?all=true.
func (mc *MenuController) GetMenu(c *gin.Context) {
	db := mc.DB.WithContext(c.Request.Context())
	onlyAvailable := c.Query("all") != "true"

	dishes := func(tx *gorm.DB) *gorm.DB {
		if onlyAvailable {
			tx = tx.Where("available = ?", true)
		}
		return tx.Order("name")
	}

	var categories []models.MenuCategory
	if err := db.Preload("Dishes", dishes).Order("name").Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var uncategorized []models.Dish
	if err := dishes(db.Where("category_id IS NULL")).Find(&uncategorized).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var combos []models.Combo
	if err := dishes(db.Model(&models.Combo{})).Find(&combos).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var addOns []models.AddOn
	if err := db.Order("name").Find(&addOns).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu", gin.H{
		"categories":    categories,
		"uncategorized": uncategorized,
		"combos":        combos,
		"add_ons":       addOns,
	})
}
