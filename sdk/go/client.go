// Package taskhubsdk is a minimal Go client for the Taskhub HTTP API.
package taskhubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Taskhub server.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User is the API user model.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	IsVerified bool   `json:"is_verified"`
	IsActive   bool   `json:"is_active"`
}

// Session is returned by login.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Project is the API project model.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	OwnerID     string `json:"owner_id"`
}

// Team is the API team model.
type Team struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
}

// Task is the API task model.
type Task struct {
	ID         string  `json:"id"`
	ProjectID  string  `json:"project_id"`
	TeamID     *string `json:"team_id,omitempty"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// Activity is one feed entry.
type Activity struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ActorID    string `json:"actor_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	if err == nil {
		c.BearerToken = resp.AccessToken
	}
	return resp, err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", map[string]any{
		"name":        name,
		"description": description,
	}, &resp)
	return resp, err
}

// ListProjects returns the projects visible to the caller.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, "projects", nil, &resp)
	return resp, err
}

// CreateTeam creates a team in a project.
func (c *Client) CreateTeam(ctx context.Context, projectID, name string) (Team, error) {
	var resp Team
	endpoint := fmt.Sprintf("projects/%s/teams", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"name": name}, &resp)
	return resp, err
}

// InviteToTeam sends a team invitation.
func (c *Client) InviteToTeam(ctx context.Context, teamID, email, role string) error {
	endpoint := fmt.Sprintf("teams/%s/invites", url.PathEscape(teamID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{
		"email": email,
		"role":  role,
	}, nil)
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, projectID, title string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", map[string]any{
		"project_id": projectID,
		"title":      title,
	}, &resp)
	return resp, err
}

// ListTasks returns visible tasks, optionally filtered by project.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	endpoint := "tasks"
	if projectID != "" {
		endpoint = fmt.Sprintf("tasks?project_id=%s", url.QueryEscape(projectID))
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Activity returns recent activity entries.
func (c *Client) Activity(ctx context.Context, limit int) ([]Activity, error) {
	endpoint := "activity"
	if limit > 0 {
		endpoint = fmt.Sprintf("activity?limit=%d", limit)
	}
	var resp []Activity
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
