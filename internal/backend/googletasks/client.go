// Package googletasks implements service.RecordStore on the Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tarevity/internal/config"
	"tarevity/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// UserID is stamped on records from this backend; the API has no owner field.
	UserID = "google"

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// Client implements service.RecordStore over one Google task list.
type Client struct {
	svc    *tasks.Service
	listID string
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	// Load OAuth client config
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes automatically
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	return NewWithHTTPClient(ctx, httpClient, cfg.TaskList)
}

// NewWithHTTPClient creates a client with a custom HTTP client. Extra
// options (such as option.WithEndpoint) are passed to the API client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, opts ...option.ClientOption) (*Client, error) {
	if listID == "" {
		listID = DefaultListID
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, listID: listID}, nil
}

// OAuthScope is the scope requested at login.
func OAuthScope() string {
	return tasksScope
}

// List returns every task in the list, including completed and hidden ones.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	result := []service.Task{}
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, gt := range resp.Items {
				result = append(result, fromAPI(gt))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// Create inserts a task.
func (c *Client) Create(ctx context.Context, in service.NewTask) (*service.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, service.E(service.KindValidation, "create", "Title is required")
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	priority := in.Priority
	if priority == 0 {
		priority = service.PriorityMedium
	}
	status := in.Status
	if in.IsCompleted {
		status = service.StatusCompleted
	} else if status == "" {
		status = service.StatusActive
	}
	t := service.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		IsCompleted: in.IsCompleted,
		Priority:    priority,
		Status:      status,
		DueDate:     in.DueDate,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	created, err := c.svc.Tasks.Insert(c.listID, toAPI(t)).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	out := fromAPI(created)
	return &out, nil
}

// Update reads the task, applies patch and writes the whole task back so
// cleared fields are removed.
func (c *Client) Update(ctx context.Context, id string, patch service.TaskPatch) (*service.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, service.E(service.KindValidation, "update", "Title is required")
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	current, err := c.svc.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	next := patch.Apply(fromAPI(current))

	gt := toAPI(next)
	gt.Id = current.Id
	updated, err := c.svc.Tasks.Update(c.listID, id, gt).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	out := fromAPI(updated)
	return &out, nil
}

// Delete deletes a task.
func (c *Client) Delete(ctx context.Context, id string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return 0, wrapError(err)
	}
	return 1, nil
}

func fromAPI(gt *tasks.Task) service.Task {
	meta := decodeNotes(gt.Notes)
	t := service.Task{
		ID:          gt.Id,
		Title:       gt.Title,
		Description: meta.description,
		IsCompleted: gt.Status == statusCompleted,
		Priority:    meta.priority,
		Status:      meta.status,
		CreatedAt:   meta.created,
		UserID:      UserID,
	}
	if updated, err := time.Parse(time.RFC3339, gt.Updated); err == nil {
		t.UpdatedAt = updated
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}
	if due, err := time.Parse(time.RFC3339, gt.Due); err == nil {
		t.DueDate = &due
	}
	if !t.Priority.Valid() {
		t.Priority = service.PriorityMedium
	}
	// The completion flag lives in the API status; keep ours consistent.
	switch {
	case t.IsCompleted:
		t.Status = service.StatusCompleted
	case !t.Status.Valid() || t.Status == service.StatusCompleted:
		t.Status = service.StatusActive
	}
	return t
}

func toAPI(t service.Task) *tasks.Task {
	gt := &tasks.Task{
		Title:  t.Title,
		Notes:  encodeNotes(t.Description, t.Priority, t.Status, t.CreatedAt),
		Status: statusNeedsAction,
	}
	if t.IsCompleted {
		gt.Status = statusCompleted
	}
	if t.DueDate != nil {
		gt.Due = t.DueDate.UTC().Format(time.RFC3339)
	}
	return gt
}

// wrapError classifies API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return &service.Error{Kind: service.KindTransport, Message: "request timed out", Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return &service.Error{Kind: service.KindUnauthenticated, Message: "token expired or revoked (run: tarevity login)", Err: err}
		case apiErr.Code == http.StatusNotFound:
			return &service.Error{Kind: service.KindNotFound, Message: "not found", Err: err}
		case apiErr.Code == http.StatusBadRequest:
			msg := apiErr.Message
			if msg == "" {
				msg = "invalid task data"
			}
			return &service.Error{Kind: service.KindValidation, Message: msg, Err: err}
		case apiErr.Code >= 500:
			return service.Wrap(service.KindTransport, "", err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return service.Wrap(service.KindTransport, "", err)
	}
	return err
}
