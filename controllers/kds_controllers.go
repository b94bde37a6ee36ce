package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// KDSController serves kitchen/bar tickets and the live websocket feed.
type KDSController struct {
	Hub      *kds.Hub
	KOT      *services.KOTRouter
	upgrader websocket.Upgrader
}

func NewKDSController(hub *kds.Hub, kot *services.KOTRouter, allowedOrigin string) *KDSController {
	return &KDSController{
		Hub: hub,
		KOT: kot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middlewares.OriginAllowed(allowedOrigin, origin)
			},
		},
	}
}

func stationParam(c *gin.Context) models.Station {
	return models.Station(strings.ToUpper(c.Param("station")))
}

// KDSHandler -> GET /ws/kds?token=&station=
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString("role")
	switch role {
	case models.RoleChef, models.RoleCashier, models.RoleWaiter, models.RoleAdmin:
	default:
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	station := models.Station(strings.ToUpper(c.Query("station")))
	if station != "" && !station.Valid() {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown station %q", station))
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kc.Hub.Register(ws, role, station)
	defer kc.Hub.Unregister(ws)

	// screens only listen; reading keeps the close handshake flowing
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

// GetTickets -> both station tickets of an order
func (kc *KDSController) GetTickets(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	tickets, err := kc.KOT.Tickets(c.Request.Context(), id)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order tickets", tickets)
}

// ReprintTicket -> one station's ticket, without touching the order
func (kc *KDSController) ReprintTicket(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	ticket, err := kc.KOT.Ticket(c.Request.Context(), id, stationParam(c))
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ticket", ticket)
}

// UpdateTicketItem -> PATCH /kot/:station/items/:item_id
func (kc *KDSController) UpdateTicketItem(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var body struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := kc.KOT.UpdateTicketItemStatus(c.Request.Context(), stationParam(c), id, body.Status)
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item status updated", item)
}

func (kc *KDSController) GetPendingWork(c *gin.Context) {
	summary, err := kc.KOT.PendingWork(c.Request.Context())
	if err != nil {
		utils.RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pending work", summary)
}
