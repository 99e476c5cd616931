// Package tasks exposes the task API resources on top of the resilient client.
// Each operation returns decoded data or the client's original error, after
// logging the diagnostic detail of the failure.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	taskhttp "github.com/gaborage/taskclient/http"
	"github.com/gaborage/taskclient/logger"
)

// BasePath is the collection path of the task API.
const BasePath = "/api/v1/tasks"

// API issues task calls through a shared client.
type API struct {
	client   taskhttp.Client
	log      logger.Logger
	validate *validator.Validate
}

// New creates the task API. client and log are shared; API holds no per-call state.
func New(client taskhttp.Client, log logger.Logger) *API {
	return &API{
		client:   client,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ListTasks returns the tasks matching params.
func (a *API) ListTasks(ctx context.Context, params ListParams) ([]Task, error) {
	page, err := a.ListTasksPage(ctx, params)
	if err != nil {
		return nil, err
	}
	return page.Tasks, nil
}

// ListTasksPage is ListTasks with the paging metadata the API reports.
func (a *API) ListTasksPage(ctx context.Context, params ListParams) (*Page, error) {
	const op = "list_tasks"
	if err := a.validateInput(op, params); err != nil {
		return nil, err
	}

	body, err := a.client.Get(ctx, &taskhttp.Request{URL: listURL(params)})
	if err != nil {
		a.logFailure(ctx, op, err)
		return nil, err
	}

	page, err := decodePage(body)
	if err != nil {
		a.logFailure(ctx, op, err)
		return nil, err
	}
	return page, nil
}

// GetTask fetches one task.
func (a *API) GetTask(ctx context.Context, id string) (*Task, error) {
	const op = "get_task"
	path, err := a.taskPath(op, id)
	if err != nil {
		return nil, err
	}

	body, err := a.client.Get(ctx, &taskhttp.Request{URL: path})
	if err != nil {
		a.logFailure(ctx, op, err)
		return nil, err
	}
	return a.decodeTask(ctx, op, body)
}

// CreateTask creates a task. Title is required.
func (a *API) CreateTask(ctx context.Context, in CreateInput) (*Task, error) {
	const op = "create_task"
	if err := a.validateInput(op, in); err != nil {
		return nil, err
	}

	payload := in
	if payload.Description != nil && strings.TrimSpace(*payload.Description) == "" {
		payload.Description = nil
	}

	body, err := a.send(ctx, op, nethttp.MethodPost, BasePath, payload)
	if err != nil {
		return nil, err
	}
	return a.decodeTask(ctx, op, body)
}

// UpdateTask sends the fields set in in.
func (a *API) UpdateTask(ctx context.Context, id string, in UpdateInput) (*Task, error) {
	const op = "update_task"
	path, err := a.taskPath(op, id)
	if err != nil {
		return nil, err
	}
	if err := a.validateInput(op, in); err != nil {
		return nil, err
	}

	body, err := a.send(ctx, op, nethttp.MethodPut, path, in)
	if err != nil {
		return nil, err
	}
	return a.decodeTask(ctx, op, body)
}

// DeleteTask deletes a task and returns the response body, usually empty.
func (a *API) DeleteTask(ctx context.Context, id string) ([]byte, error) {
	const op = "delete_task"
	path, err := a.taskPath(op, id)
	if err != nil {
		return nil, err
	}

	body, err := a.client.Delete(ctx, &taskhttp.Request{URL: path})
	if err != nil {
		a.logFailure(ctx, op, err)
		return nil, err
	}
	return body, nil
}

// ToggleTaskCompletion sets the completion flag explicitly.
func (a *API) ToggleTaskCompletion(ctx context.Context, id string, completed bool) (*Task, error) {
	const op = "toggle_task"
	path, err := a.taskPath(op, id)
	if err != nil {
		return nil, err
	}

	body, err := a.send(ctx, op, nethttp.MethodPatch, path+"/complete", toggleInput{Completed: completed})
	if err != nil {
		return nil, err
	}
	return a.decodeTask(ctx, op, body)
}

func (a *API) send(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op, err)
	}

	body, err := a.client.Do(ctx, method, &taskhttp.Request{URL: path, Body: data})
	if err != nil {
		a.logFailure(ctx, op, err)
		return nil, err
	}
	return body, nil
}

func (a *API) decodeTask(ctx context.Context, op string, body []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		err = fmt.Errorf("decode task: %w", err)
		a.logFailure(ctx, op, err)
		return nil, err
	}
	return &t, nil
}

func (a *API) taskPath(op, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		err := taskhttp.NewValidationError("task id is required", "id")
		a.log.Error().Err(err).Str("operation", op).Msg("Invalid task API call")
		return "", err
	}
	return BasePath + "/" + url.PathEscape(id), nil
}

func (a *API) validateInput(op string, in any) error {
	if err := a.validate.Struct(in); err != nil {
		field := ""
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field = strings.ToLower(verrs[0].Field())
		}
		cerr := taskhttp.NewValidationError(err.Error(), field)
		a.log.Error().Err(cerr).Str("operation", op).Msg("Invalid task API call")
		return cerr
	}
	return nil
}

// logFailure records what the caller needs to diagnose a failed call:
// status, body and headers for HTTP errors, the error class otherwise.
func (a *API) logFailure(ctx context.Context, op string, err error) {
	event := a.log.WithContext(ctx).Error().
		Err(err).
		Str("operation", op).
		Str("class", string(taskhttp.Classify(err)))

	if status, ok := taskhttp.StatusCode(err); ok {
		body, headers, _ := taskhttp.ErrorBody(err)
		event = event.
			Int("status", status).
			Bytes("response_body", body).
			Interface("response_headers", headers)
		event.Msg("Task API returned an error response")
		return
	}

	var clientErr taskhttp.ClientError
	if errors.As(err, &clientErr) {
		event = event.Str("error_type", string(clientErr.Type()))
		event.Msg("Task API request failed without a response")
		return
	}
	event.Msg("Task API call failed")
}

func listURL(p ListParams) string {
	q := url.Values{}
	if p.Completed != nil {
		q.Set("completed", strconv.FormatBool(*p.Completed))
	}
	if p.Limit != nil {
		q.Set("limit", strconv.Itoa(*p.Limit))
	}
	if p.Offset != nil {
		q.Set("offset", strconv.Itoa(*p.Offset))
	}
	if len(q) == 0 {
		return BasePath
	}
	return BasePath + "?" + q.Encode()
}
