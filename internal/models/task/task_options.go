package task

import (
	"time"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithPriority(priority Priority) TaskOption {
	if !ValidPriority(priority) {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithStatus(status Status) TaskOption {
	if !ValidStatus(status) {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	if dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.DueDate = dueDate
	}
}

func WithEstimatedTime(minutes int) TaskOption {
	if minutes <= 0 {
		return nil
	}
	return func(task *Task) {
		task.EstimatedTime = minutes
	}
}

func WithActualTime(minutes int) TaskOption {
	if minutes < 0 {
		return nil
	}
	return func(task *Task) {
		task.ActualTime = &minutes
	}
}

func WithCategory(categoryID string) TaskOption {
	if categoryID == "" {
		return nil
	}
	return func(task *Task) {
		task.CategoryID = categoryID
	}
}
