package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onsamiro-welfare-service/onsae-console/internal/logger"
	logicv1 "github.com/onsamiro-welfare-service/onsae-console/internal/logic/v1"
	"github.com/onsamiro-welfare-service/onsae-console/internal/upstream"
)

// LoginPage serves the entry-point descriptor for a login form. The edge
// gate has already redirected authenticated visitors away, so this never
// shows a login form to a logged-in user.
func (h *Handler) LoginPage(kind upstream.LoginKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"page":      "login",
			"kind":      kind,
			"returnUrl": c.Query("returnUrl"),
		})
	}
}

// SignUpPage serves the public institution sign-up descriptor.
func (h *Handler) SignUpPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "sign-up"})
}

// DashboardPage serves the general console shell state.
func (h *Handler) DashboardPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page": "dashboard",
		"user": h.session(c).User(),
	})
}

// SystemAdminPage serves the system-admin shell state.
func (h *Handler) SystemAdminPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page": "system-admin",
		"user": h.session(c).User(),
	})
}

// respondUpstreamError maps an upstream failure onto the console response:
// a dead session surfaces as 401 so the page tree re-enters login, upstream
// API errors are forwarded with their message, anything else is a 502.
func respondUpstreamError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error().Err(err).Msg("Upstream call failed")

	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, logicv1.ErrNotAuthenticated),
		errors.Is(err, logicv1.ErrRefreshFailed),
		errors.Is(err, upstream.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = "upstream request failed"
		}
		c.JSON(apiErr.Status, gin.H{"error": msg})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// DashboardStats proxies the dashboard aggregates.
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.api.GetDashboardStats(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers proxies the institution's user list.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.api.ListUsers(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser proxies user creation.
func (h *Handler) CreateUser(c *gin.Context) {
	var u upstream.User
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.api.CreateUser(c.Request.Context(), h.session(c), u)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateUser proxies a user update.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var u upstream.User
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u.ID = id
	if err := h.api.UpdateUser(c.Request.Context(), h.session(c), u); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUser proxies a user deletion.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteUser(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListGroups proxies the group list.
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.api.ListGroups(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// CreateGroup proxies group creation.
func (h *Handler) CreateGroup(c *gin.Context) {
	var g upstream.Group
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.api.CreateGroup(c.Request.Context(), h.session(c), g)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteGroup proxies group deletion.
func (h *Handler) DeleteGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteGroup(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCategories proxies the category list.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.api.ListCategories(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory proxies category creation.
func (h *Handler) CreateCategory(c *gin.Context) {
	var cat upstream.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.api.CreateCategory(c.Request.Context(), h.session(c), cat)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteCategory proxies category deletion.
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteCategory(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListQuestions proxies the question list, honoring the categoryId filter.
func (h *Handler) ListQuestions(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("categoryId"); raw != "" {
		var err error
		categoryID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || categoryID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid categoryId"})
			return
		}
	}
	questions, err := h.api.ListQuestions(c.Request.Context(), h.session(c), categoryID)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// CreateQuestion proxies question creation.
func (h *Handler) CreateQuestion(c *gin.Context) {
	var q upstream.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.api.CreateQuestion(c.Request.Context(), h.session(c), q)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteQuestion proxies question deletion.
func (h *Handler) DeleteQuestion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteQuestion(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAssignments proxies a user's question assignments.
func (h *Handler) ListAssignments(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter required"})
		return
	}
	assignments, err := h.api.ListAssignments(c.Request.Context(), h.session(c), userID)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignments)
}

// BulkAssign proxies the category-based bulk-assignment workflow: every
// question in the category is assigned to each selected user upstream.
func (h *Handler) BulkAssign(c *gin.Context) {
	var req upstream.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CategoryID <= 0 || len(req.UserIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "categoryId and userIds required"})
		return
	}
	if err := h.api.BulkAssign(c.Request.Context(), h.session(c), req); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAssignment proxies assignment removal.
func (h *Handler) DeleteAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteAssignment(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListNotifications proxies recent upload notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.api.ListNotifications(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// UnreadNotificationCount proxies the unread-count used by the header badge.
func (h *Handler) UnreadNotificationCount(c *gin.Context) {
	count, err := h.api.GetUnreadNotificationCount(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead proxies marking one notification read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.MarkNotificationRead(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NotificationStream pushes the unread count over server-sent events. The
// poller is owned by this request: when the subscriber goes away the request
// context ends and the poll goroutine is released with it.
func (h *Handler) NotificationStream(c *gin.Context) {
	if !h.cfg.Notify.Enabled {
		c.Status(http.StatusNoContent)
		return
	}

	interval := h.cfg.GetNotifyIntervalDuration()
	notifier := logicv1.NewNotifier(h.api, h.session(c), interval)
	notifier.Start(c.Request.Context())
	defer notifier.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")

	ctx := c.Request.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.SSEvent("unread", notifier.Unread())
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("unread", notifier.Unread())
			c.Writer.Flush()
		}
	}
}

// ListInstitutions proxies the institution list (system-admin area).
func (h *Handler) ListInstitutions(c *gin.Context) {
	institutions, err := h.api.ListInstitutions(c.Request.Context(), h.session(c))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, institutions)
}

// ApproveInstitution proxies approving a pending institution.
func (h *Handler) ApproveInstitution(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.api.ApproveInstitution(c.Request.Context(), h.session(c), id); err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
