package dto

import (
	"time"

	"taskPlanner/internal/models/category"
	"taskPlanner/internal/models/task"
)

type CreateTaskRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Priority      *task.Priority `json:"priority,omitempty"`
	Status        *task.Status   `json:"status,omitempty"`
	DueDate       time.Time      `json:"dueDate"`
	EstimatedTime *int           `json:"estimatedTime,omitempty"`
	CategoryID    string         `json:"categoryId,omitempty"`
}

type UpdateTaskRequest struct {
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Priority      *task.Priority `json:"priority,omitempty"`
	Status        *task.Status   `json:"status,omitempty"`
	DueDate       *time.Time     `json:"dueDate,omitempty"`
	EstimatedTime *int           `json:"estimatedTime,omitempty"`
	ActualTime    *int           `json:"actualTime,omitempty"`
	CategoryID    *string        `json:"categoryId,omitempty"`
}

type TaskResponse struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Priority          task.Priority `json:"priority"`
	Status            task.Status   `json:"status"`
	DueDate           time.Time     `json:"dueDate"`
	EstimatedTime     int           `json:"estimatedTime"`
	ActualTime        *int          `json:"actualTime,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	CategoryID        string        `json:"categoryId"`
	CategoryName      string        `json:"categoryName"`
	IsCompletedOnTime *bool         `json:"isCompletedOnTime,omitempty"`
	IsOverdue         bool          `json:"isOverdue"`
}

func FromTask(t task.Task, categoryName string, now time.Time) TaskResponse {
	return TaskResponse{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		Priority:          t.Priority,
		Status:            t.Status,
		DueDate:           t.DueDate,
		EstimatedTime:     t.EstimatedTime,
		ActualTime:        t.ActualTime,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		CategoryID:        t.CategoryID,
		CategoryName:      categoryName,
		IsCompletedOnTime: t.IsCompletedOnTime,
		IsOverdue:         t.IsOverdue(now),
	}
}

func FromTaskList(tasks []task.Task, names func(categoryID string) string, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, names(t.CategoryID), now)
	}
	return result
}

type CategoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	IsDefault bool      `json:"isDefault"`
}

func FromCategory(c category.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
		IsDefault: c.IsDefault,
	}
}

func FromCategoryList(items []category.Category) []CategoryResponse {
	result := make([]CategoryResponse, len(items))
	for i, c := range items {
		result[i] = FromCategory(c)
	}
	return result
}

type SuggestRequest struct {
	Title string `json:"title"`
}

type SuggestResponse struct {
	Subtasks []string `json:"suggestions"`
}
