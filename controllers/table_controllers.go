package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Registry *services.TableRegistry
	Layout   *services.LayoutService
}

func NewTableController(registry *services.TableRegistry, layout *services.LayoutService) *TableController {
	return &TableController{Registry: registry, Layout: layout}
}

// GetAllTables -> every table in layout order
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Layout.ListTables(c.Request.Context())
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetOccupiedTables -> open sessions with their tables
func (tc *TableController) GetOccupiedTables(c *gin.Context) {
	sessions, err := tc.Registry.ListOccupied(c.Request.Context())
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Occupied tables", sessions)
}

// GetTableSession -> the open session of one table, null when it is free
func (tc *TableController) GetTableSession(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	session, err := tc.Registry.ActiveSession(c.Request.Context(), id)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session", session)
}

// ReleaseTable clears a stale session, one whose order is already finished or
// gone. A table held by a live order answers 409 with the session and order; the
// order must be cancelled or checked out instead. Closing a free table is not an
// error.
func (tc *TableController) ReleaseTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Registry.CloseSession(c.Request.Context(), id); err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.InfoLogger.WithField("table_id", id).Info("table released")
	utils.RespondJSON(c, http.StatusOK, "Table released", nil)
}

func (tc *TableController) GetAllSpaces(c *gin.Context) {
	spaces, err := tc.Layout.ListSpaces(c.Request.Context())
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of spaces", spaces)
}

type reorderRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// ReorderTables -> PUT /tables/order {"ids": [...]}
func (tc *TableController) ReorderTables(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := tc.Layout.ReorderTables(c.Request.Context(), req.IDs); err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables reordered", req.IDs)
}

// ReorderSpaces -> PUT /spaces/order {"ids": [...]}
func (tc *TableController) ReorderSpaces(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := tc.Layout.ReorderSpaces(c.Request.Context(), req.IDs); err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Spaces reordered", req.IDs)
}
