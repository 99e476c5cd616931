package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type createRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool   `json:"completed"`
}

type updateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool   `json:"completed"`
}

type toggleRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// ListResponse is the envelope returned by the list route unless bare mode is on.
type ListResponse struct {
	Tasks  []Task `json:"tasks"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func (s *Server) registerRoutes() {
	s.echo.GET(HealthPath, s.health)

	g := s.echo.Group(TasksPath)
	g.GET("", s.listTasks)
	g.POST("", s.createTask)
	g.GET("/:id", s.getTask)
	g.PUT("/:id", s.updateTask)
	g.DELETE("/:id", s.deleteTask)
	g.PATCH("/:id/complete", s.toggleTask)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "tasks": s.store.count()})
}

func (s *Server) listTasks(c echo.Context) error {
	var completed *bool
	if raw := c.QueryParam("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return queryError("completed", "value could not be parsed to a boolean")
		}
		completed = &v
	}

	limit, err := intQuery(c, "limit", DefaultListLimit)
	if err != nil {
		return err
	}
	if limit < 1 || limit > MaxListLimit {
		return queryError("limit", "ensure this value is between 1 and "+strconv.Itoa(MaxListLimit))
	}

	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return err
	}
	if offset < 0 {
		return queryError("offset", "ensure this value is greater than or equal to 0")
	}

	page, total := s.store.list(completed, limit, offset)
	if s.bare.Load() {
		return c.JSON(http.StatusOK, page)
	}
	return c.JSON(http.StatusOK, ListResponse{Tasks: page, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) getTask(c echo.Context) error {
	id := c.Param("id")
	t, ok := s.store.get(id)
	if !ok {
		return NewNotFoundError(id)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) createTask(c echo.Context) error {
	var req createRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	t := s.store.create(req.Title, req.Description, req.Completed != nil && *req.Completed)
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTask(c echo.Context) error {
	var req updateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	t, ok := s.store.update(id, func(t *Task) {
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = req.Description
		}
		if req.Completed != nil {
			t.Completed = *req.Completed
		}
	})
	if !ok {
		return NewNotFoundError(id)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTask(c echo.Context) error {
	id := c.Param("id")
	if !s.store.remove(id) {
		return NewNotFoundError(id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) toggleTask(c echo.Context) error {
	var req toggleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	t, ok := s.store.update(id, func(t *Task) { t.Completed = *req.Completed })
	if !ok {
		return NewNotFoundError(id)
	}
	return c.JSON(http.StatusOK, t)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return NewAPIError(http.StatusUnprocessableEntity, "request body is not valid JSON")
	}
	return c.Validate(req)
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(name, "value is not a valid integer")
	}
	return v, nil
}
