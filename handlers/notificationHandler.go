package handlers

import (
	"MediCare/middlewares"
	"MediCare/services"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	alerts        *services.AlertService
	notifications *services.NotificationService
}

func NewNotificationHandler(alerts *services.AlertService, notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{alerts: alerts, notifications: notifications}
}

// SendSOS fans an emergency alert out to the caller's caregivers. Delivery
// failures are reported in the counts, not as an error status.
func (h *NotificationHandler) SendSOS(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	result, err := h.alerts.SendSOSAlert(c.Request.Context(), actor.UserID, body.Latitude, body.Longitude)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "SOS alert sent",
		"result":  result,
	})
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.notifications.List(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id, actor.UserID); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
