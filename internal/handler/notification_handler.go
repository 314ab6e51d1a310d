package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/service"
	appErrors "github.com/noah-isme/station-compliance-api/pkg/errors"
	"github.com/noah-isme/station-compliance-api/pkg/response"
)

type notificationFeed interface {
	List() []service.Notification
}

// NotificationHandler serves the dashboard toast feed.
type NotificationHandler struct {
	feed notificationFeed
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(feed notificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List godoc
// @Summary Recent notifications, newest first
// @Tags Notifications
// @Produce json
// @Param limit query int false "Maximum number of notifications"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items := h.feed.List()
	total := len(items)
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		if limit < len(items) {
			items = items[:limit]
		}
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{Page: 1, PageSize: len(items), TotalCount: total})
}
