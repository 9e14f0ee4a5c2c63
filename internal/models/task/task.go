package task

import (
	"time"
)

type Task struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Priority          Priority  `json:"priority"`
	Status            Status    `json:"status"`
	DueDate           time.Time `json:"dueDate"`
	EstimatedTime     int       `json:"estimatedTime"`
	ActualTime        *int      `json:"actualTime,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	CategoryID        string    `json:"categoryId"`
	IsCompletedOnTime *bool     `json:"isCompletedOnTime,omitempty"`
}

type Priority string
type Status string

const PriorityHigh Priority = "high"
const PriorityMedium Priority = "medium"
const PriorityLow Priority = "low"

const StatusPending Status = "pending"
const StatusInProgress Status = "in-progress"
const StatusCompleted Status = "completed"

// агрегаты для страницы аналитики
type Stats struct {
	TotalTasks            int     `json:"totalTasks"`
	CompletedTasks        int     `json:"completedTasks"`
	OverdueTasks          int     `json:"overdueTasks"`
	AverageCompletionTime float64 `json:"averageCompletionTime"`
}

func ValidPriority(p Priority) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// задача просрочена, если не выполнена и дедлайн уже прошёл
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.DueDate.Before(now)
}
