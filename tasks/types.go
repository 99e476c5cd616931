package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ID identifies a task or user. The API may encode it as a JSON string or number.
type ID string

// UnmarshalJSON accepts "abc" and 42.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Task is one item of the task API.
type Task struct {
	ID          ID         `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	UserID      ID         `json:"user_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Page is one slice of the task list. When the API answers with a bare array,
// Total is the number of tasks returned and Limit/Offset are zero.
type Page struct {
	Tasks  []Task `json:"tasks"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ListParams filters the task list. Nil fields are not sent.
type ListParams struct {
	Completed *bool
	Limit     *int `validate:"omitempty,min=1"`
	Offset    *int `validate:"omitempty,min=0"`
}

// CreateInput is the body of a new task. Description is sent only when non-blank,
// Completed only when set.
type CreateInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Completed   *bool   `json:"completed,omitempty"`
}

// UpdateInput is a partial update. Every non-nil field is sent, including
// false and the empty string.
type UpdateInput struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Completed   *bool   `json:"completed,omitempty"`
}

type toggleInput struct {
	Completed bool `json:"completed"`
}

// ErrUnexpectedListBody is returned when the list response is neither an array
// nor an object with a tasks array.
var ErrUnexpectedListBody = errors.New("tasks: unexpected list response body")

// decodePage extracts tasks from either {"tasks":[...], ...} or a bare array.
func decodePage(body []byte) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnexpectedListBody
	}

	switch trimmed[0] {
	case '[':
		var list []Task
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode task list: %w", err)
		}
		return &Page{Tasks: list, Total: len(list)}, nil
	case '{':
		var envelope struct {
			Tasks  *[]Task `json:"tasks"`
			Total  *int    `json:"total"`
			Limit  int     `json:"limit"`
			Offset int     `json:"offset"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode task list: %w", err)
		}
		if envelope.Tasks == nil {
			return nil, ErrUnexpectedListBody
		}
		page := &Page{Tasks: *envelope.Tasks, Limit: envelope.Limit, Offset: envelope.Offset}
		if page.Tasks == nil {
			page.Tasks = []Task{}
		}
		page.Total = len(page.Tasks)
		if envelope.Total != nil {
			page.Total = *envelope.Total
		}
		return page, nil
	default:
		return nil, ErrUnexpectedListBody
	}
}
