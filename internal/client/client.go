// Package client provides a Go client for the microblog API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alphabot-ai/microblog/internal/model"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRegistered = errors.New("already registered")
	ErrNotAuthenticated  = errors.New("not authenticated")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
	UserID     string
}

// Credentials identifies an account by email and password.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// NewCredentials makes credentials with a random password for name.
func NewCredentials(name string) Credentials {
	return Credentials{
		Username: name,
		Email:    name + "@example.test",
		Password: "pw-" + uuid.NewString(),
	}
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Register(creds Credentials) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	err := c.call("register", http.MethodPost, "/api/auth/register", map[string]string{
		"username": creds.Username,
		"email":    creds.Email,
		"password": creds.Password,
	}, &out)
	if StatusOf(err) == http.StatusConflict {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login stores the issued token on the client.
func (c *Client) Login(email, password string) (*model.User, error) {
	var out struct {
		Token     string     `json:"token"`
		ExpiresAt time.Time  `json:"expires_at"`
		User      model.User `json:"user"`
	}
	err := c.call("login", http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token
	c.TokenExp = out.ExpiresAt
	c.UserID = out.User.ID
	return &out.User, nil
}

func (c *Client) RegisterAndLogin(creds Credentials) error {
	if _, err := c.Register(creds); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return fmt.Errorf("register: %w", err)
	}
	_, err := c.Login(creds.Email, creds.Password)
	return err
}

func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

func (c *Client) Me() (*model.User, error) {
	if c.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	return c.GetUser(c.UserID)
}

func (c *Client) ListUsers() ([]model.User, error) {
	var out struct {
		Users []model.User `json:"users"`
	}
	err := c.call("list users", http.MethodGet, "/api/users", nil, &out)
	return out.Users, err
}

func (c *Client) GetUser(id string) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.call("get user", http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateUser changes the fields that are non-empty.
func (c *Client) UpdateUser(id, username, email string) (*model.User, error) {
	body := map[string]string{}
	if username != "" {
		body["username"] = username
	}
	if email != "" {
		body["email"] = email
	}
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.call("update user", http.MethodPut, "/api/users/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ChangePassword(id, current, next string) error {
	return c.call("change password", http.MethodPut, "/api/users/"+url.PathEscape(id)+"/password", map[string]string{
		"current_password": current,
		"new_password":     next,
	}, nil)
}

func (c *Client) DeleteUser(id string) error {
	return c.call("delete user", http.MethodDelete, "/api/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreatePost(content string) (*model.Post, error) {
	var out struct {
		Post model.Post `json:"post"`
	}
	if err := c.call("create post", http.MethodPost, "/api/posts", map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

func (c *Client) ListPosts() ([]model.Post, error) {
	var out struct {
		Posts []model.Post `json:"posts"`
	}
	err := c.call("list posts", http.MethodGet, "/api/posts", nil, &out)
	return out.Posts, err
}

func (c *Client) ListUserPosts(userID string) ([]model.Post, error) {
	var out struct {
		Posts []model.Post `json:"posts"`
	}
	err := c.call("list user posts", http.MethodGet, "/api/posts/user/"+url.PathEscape(userID), nil, &out)
	return out.Posts, err
}

func (c *Client) GetPost(id string) (*model.Post, error) {
	var out struct {
		Post model.Post `json:"post"`
	}
	if err := c.call("get post", http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

func (c *Client) UpdatePost(id, content string) (*model.Post, error) {
	var out struct {
		Post model.Post `json:"post"`
	}
	if err := c.call("update post", http.MethodPut, "/api/posts/"+url.PathEscape(id), map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

func (c *Client) DeletePost(id string) error {
	return c.call("delete post", http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateComment(postID, content string) (*model.Comment, error) {
	var out struct {
		Comment model.Comment `json:"comment"`
	}
	body := map[string]string{"post_id": postID, "content": content}
	if err := c.call("create comment", http.MethodPost, "/api/comments", body, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) ListComments(postID string) ([]model.Comment, error) {
	var out struct {
		Comments []model.Comment `json:"comments"`
	}
	err := c.call("list comments", http.MethodGet, "/api/comments/post/"+url.PathEscape(postID), nil, &out)
	return out.Comments, err
}

func (c *Client) GetComment(id string) (*model.Comment, error) {
	var out struct {
		Comment model.Comment `json:"comment"`
	}
	if err := c.call("get comment", http.MethodGet, "/api/comments/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) UpdateComment(id, content string) (*model.Comment, error) {
	var out struct {
		Comment model.Comment `json:"comment"`
	}
	if err := c.call("update comment", http.MethodPut, "/api/comments/"+url.PathEscape(id), map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) DeleteComment(id string) error {
	return c.call("delete comment", http.MethodDelete, "/api/comments/"+url.PathEscape(id), nil, nil)
}

// call sends body as JSON and decodes a 2xx response into out when out is non-nil.
func (c *Client) call(op, method, path string, body, out any) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := string(respBody)
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers name with a random password and
// returns a logged in client.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, Credentials, error) {
	creds := NewCredentials(name)
	c := New(h.BaseURL)
	if err := c.RegisterAndLogin(creds); err != nil {
		return nil, Credentials{}, err
	}
	return c, creds, nil
}

// GetToken is CreateAuthenticatedClient for tests that only need the token.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, _, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
