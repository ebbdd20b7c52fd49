package upstream

import (
	"context"
	"fmt"
	"net/http"
)

// DashboardStats is the aggregate view backing the dashboard landing screen.
type DashboardStats struct {
	TotalUsers        int64            `json:"totalUsers"`
	ActiveUsers       int64            `json:"activeUsers"`
	TotalQuestions    int64            `json:"totalQuestions"`
	TotalAssignments  int64            `json:"totalAssignments"`
	AnswerRate        float64          `json:"answerRate"`
	AnswersByCategory map[string]int64 `json:"answersByCategory"`
}

// User is a care-receiving user managed by an institution.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LoginCode string `json:"loginCode,omitempty"`
	GroupID   int64  `json:"groupId,omitempty"`
	GroupName string `json:"groupName,omitempty"`
	Active    bool   `json:"active"`
}

// Group is a named collection of users within an institution.
type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UserCount int64  `json:"userCount"`
}

// Category labels questions for filtering and bulk assignment.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Question is a care survey question.
type Question struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	CategoryID int64  `json:"categoryId,omitempty"`
	Type       string `json:"type"`
}

// Assignment links a question to a user.
type Assignment struct {
	ID         int64 `json:"id"`
	QuestionID int64 `json:"questionId"`
	UserID     int64 `json:"userId"`
}

// BulkAssignRequest assigns every question in a category to a set of users
// in one call. The assignment rules themselves live upstream.
type BulkAssignRequest struct {
	CategoryID int64   `json:"categoryId"`
	UserIDs    []int64 `json:"userIds"`
}

// Institution is a welfare institution registered on the platform.
type Institution struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Approved bool   `json:"approved"`
}

// Notification is an upload notification shown in the console header.
type Notification struct {
	ID        int64  `json:"id"`
	UserName  string `json:"userName"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	Read      bool   `json:"read"`
}

// GetDashboardStats fetches the dashboard aggregates.
func (c *Client) GetDashboardStats(ctx context.Context, creds Credentials) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.authorized(ctx, creds, http.MethodGet, "/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListUsers fetches the users of the caller's institution.
func (c *Client) ListUsers(ctx context.Context, creds Credentials) ([]User, error) {
	var users []User
	if err := c.authorized(ctx, creds, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser registers a new user.
func (c *Client) CreateUser(ctx context.Context, creds Credentials, u User) (*User, error) {
	var created User
	if err := c.authorized(ctx, creds, http.MethodPost, "/users", u, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser updates an existing user.
func (c *Client) UpdateUser(ctx context.Context, creds Credentials, u User) error {
	return c.authorized(ctx, creds, http.MethodPut, fmt.Sprintf("/users/%d", u.ID), u, nil)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// ListGroups fetches the groups of the caller's institution.
func (c *Client) ListGroups(ctx context.Context, creds Credentials) ([]Group, error) {
	var groups []Group
	if err := c.authorized(ctx, creds, http.MethodGet, "/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup registers a new group.
func (c *Client) CreateGroup(ctx context.Context, creds Credentials, g Group) (*Group, error) {
	var created Group
	if err := c.authorized(ctx, creds, http.MethodPost, "/groups", g, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodDelete, fmt.Sprintf("/groups/%d", id), nil, nil)
}

// ListCategories fetches all question categories.
func (c *Client) ListCategories(ctx context.Context, creds Credentials) ([]Category, error) {
	var categories []Category
	if err := c.authorized(ctx, creds, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory registers a new category.
func (c *Client) CreateCategory(ctx context.Context, creds Credentials, cat Category) (*Category, error) {
	var created Category
	if err := c.authorized(ctx, creds, http.MethodPost, "/categories", cat, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}

// ListQuestions fetches questions, optionally filtered by category.
func (c *Client) ListQuestions(ctx context.Context, creds Credentials, categoryID int64) ([]Question, error) {
	path := "/questions"
	if categoryID > 0 {
		path = fmt.Sprintf("/questions?categoryId=%d", categoryID)
	}
	var questions []Question
	if err := c.authorized(ctx, creds, http.MethodGet, path, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateQuestion registers a new question.
func (c *Client) CreateQuestion(ctx context.Context, creds Credentials, q Question) (*Question, error) {
	var created Question
	if err := c.authorized(ctx, creds, http.MethodPost, "/questions", q, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteQuestion removes a question.
func (c *Client) DeleteQuestion(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodDelete, fmt.Sprintf("/questions/%d", id), nil, nil)
}

// ListAssignments fetches question assignments for a user.
func (c *Client) ListAssignments(ctx context.Context, creds Credentials, userID int64) ([]Assignment, error) {
	var assignments []Assignment
	path := fmt.Sprintf("/assignments?userId=%d", userID)
	if err := c.authorized(ctx, creds, http.MethodGet, path, nil, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// BulkAssign assigns every question in a category to the given users.
func (c *Client) BulkAssign(ctx context.Context, creds Credentials, req BulkAssignRequest) error {
	return c.authorized(ctx, creds, http.MethodPost, "/assignments/bulk", req, nil)
}

// DeleteAssignment removes a single question assignment.
func (c *Client) DeleteAssignment(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodDelete, fmt.Sprintf("/assignments/%d", id), nil, nil)
}

// ListInstitutions fetches all institutions. System-admin only upstream.
func (c *Client) ListInstitutions(ctx context.Context, creds Credentials) ([]Institution, error) {
	var institutions []Institution
	if err := c.authorized(ctx, creds, http.MethodGet, "/institutions", nil, &institutions); err != nil {
		return nil, err
	}
	return institutions, nil
}

// ApproveInstitution approves a pending institution registration.
func (c *Client) ApproveInstitution(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodPost, fmt.Sprintf("/institutions/%d/approve", id), nil, nil)
}

// GetUnreadNotificationCount fetches the unread upload-notification count.
func (c *Client) GetUnreadNotificationCount(ctx context.Context, creds Credentials) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.authorized(ctx, creds, http.MethodGet, "/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ListNotifications fetches recent upload notifications.
func (c *Client) ListNotifications(ctx context.Context, creds Credentials) ([]Notification, error) {
	var notifications []Notification
	if err := c.authorized(ctx, creds, http.MethodGet, "/notifications", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, creds Credentials, id int64) error {
	return c.authorized(ctx, creds, http.MethodPost, fmt.Sprintf("/notifications/%d/read", id), nil, nil)
}
