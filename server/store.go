package server

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is the stub's representation of a task.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// taskStore keeps tasks in insertion order.
type taskStore struct {
	mu     sync.RWMutex
	byID   map[string]*Task
	order  []string
	userID string
	now    func() time.Time
}

func newTaskStore(userID string) *taskStore {
	return &taskStore{
		byID:   make(map[string]*Task),
		userID: userID,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *taskStore) create(title string, description *string, completed bool) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := &Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Completed:   completed,
		UserID:      s.userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[t.ID] = t
	s.order = append(s.order, t.ID)
	return *t
}

func (s *taskStore) get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// list filters by completed when non-nil and returns one page plus the filtered total.
func (s *taskStore) list(completed *bool, limit, offset int) ([]Task, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		t := s.byID[id]
		if completed != nil && t.Completed != *completed {
			continue
		}
		matched = append(matched, *t)
	}

	total := len(matched)
	if offset >= total {
		return []Task{}, total
	}
	end := min(offset+limit, total)
	return matched[offset:end], total
}

// update applies fn to the task under the write lock.
func (s *taskStore) update(id string, fn func(t *Task)) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return Task{}, false
	}
	fn(t)
	t.UpdatedAt = s.now()
	return *t, true
}

func (s *taskStore) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return true
}

func (s *taskStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
