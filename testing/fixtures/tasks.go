// Package fixtures provides canned task API data for tests.
package fixtures

import (
	"encoding/json"
	"time"

	"github.com/gaborage/taskclient/tasks"
)

// FixedTime is the creation time of every fixture task.
var FixedTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Task returns a task with the given id and title.
func Task(id, title string, completed bool) tasks.Task {
	created := FixedTime
	return tasks.Task{
		ID:        tasks.ID(id),
		Title:     title,
		Completed: completed,
		UserID:    "user-1",
		CreatedAt: &created,
		UpdatedAt: &created,
	}
}

// SampleTasks returns two tasks, the second one completed.
func SampleTasks() []tasks.Task {
	return []tasks.Task{
		Task("1", "Write report", false),
		Task("2", "Review PR", true),
	}
}

// EnvelopeBody encodes ts as {"tasks": [...], "total": n, "limit": limit, "offset": offset}.
func EnvelopeBody(ts []tasks.Task, limit, offset int) []byte {
	return mustJSON(map[string]any{
		"tasks":  ts,
		"total":  len(ts),
		"limit":  limit,
		"offset": offset,
	})
}

// ArrayBody encodes ts as a bare JSON array.
func ArrayBody(ts []tasks.Task) []byte {
	return mustJSON(ts)
}

// TaskBody encodes a single task.
func TaskBody(t tasks.Task) []byte {
	return mustJSON(t)
}

// DetailBody encodes an API error body.
func DetailBody(detail string) []byte {
	return mustJSON(map[string]string{"detail": detail})
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
