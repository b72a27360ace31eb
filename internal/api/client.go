package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Client is a Postify API client. Credentials travel as a server-issued
// session cookie held in the client's jar.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Error is a server-rejected request: a non-2xx status plus the message
// from the response body, when the server sent one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// ErrorMessage extracts the server's message from err, falling back to
// the action-specific text when the body carried none or the failure was
// transport-level.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or 0 for transport
// failures.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// NewClient creates a new Postify API client. The jar is optional; when
// nil an in-memory jar is created.
func NewClient(baseURL string, jar http.CookieJar) *Client {
	if jar == nil {
		jar, _ = cookiejar.New(nil)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar exposes the cookie jar so callers can persist the session cookie.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// do performs one JSON request. A non-2xx response is decoded as
// {message} and returned as *Error; out may be nil for calls whose body
// is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{Status: resp.StatusCode, Message: errBody.Message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CurrentUser probes the session cookie. The endpoint returns the user
// object bare, not wrapped in an envelope.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/user", nil, &user); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

// Login authenticates with username and password.
func (c *Client) Login(ctx context.Context, creds LoginRequest) (*User, error) {
	var result struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &result.User, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, profile RegisterRequest) (*User, error) {
	var result struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", profile, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &result.User, nil
}

// Logout asks the server to invalidate the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// RefreshToken extends the server-side session validity. It never
// returns user data.
func (c *Client) RefreshToken(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/refresh-token", nil, nil); err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	return nil
}

// UpdateUser sends only the changed settings fields.
func (c *Client) UpdateUser(ctx context.Context, changes map[string]interface{}) (*User, error) {
	var result struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/user", changes, &result); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &result.User, nil
}

// ListPosts fetches the global post feed.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var result struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &result); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return result.Posts, nil
}

// GetPost fetches a single post by id.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var result struct {
		Post *Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return result.Post, nil
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, draft PostDraft) (*Post, error) {
	var result struct {
		Post *Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts", draft, &result); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return result.Post, nil
}

// UpdatePost replaces an existing post's content.
func (c *Client) UpdatePost(ctx context.Context, id string, draft PostDraft) (*Post, error) {
	var result struct {
		Post *Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(id), draft, &result); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return result.Post, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// ToggleFavorite flips the viewer's favorite on a post and returns the
// post with the server's authoritative counters.
func (c *Client) ToggleFavorite(ctx context.Context, id string) (*Post, error) {
	var result struct {
		Post *Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(id)+"/favorite", nil, &result); err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	return result.Post, nil
}

// ListComments fetches the comments for a post.
func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var result struct {
		Comments []Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil, &result); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return result.Comments, nil
}

// AddComment posts a comment.
func (c *Client) AddComment(ctx context.Context, postID, body string) (*Comment, error) {
	payload := map[string]string{"body": body}
	var result struct {
		Comment *Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", payload, &result); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return result.Comment, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	path := "/posts/" + url.PathEscape(postID) + "/comments/" + url.PathEscape(commentID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// GetProfile fetches a user's public profile.
func (c *Client) GetProfile(ctx context.Context, username string) (*Profile, error) {
	var result struct {
		Profile *Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/profile/"+url.PathEscape(username), nil, &result); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return result.Profile, nil
}

// ToggleFollow flips the viewer's follow on a user and returns the
// refreshed profile.
func (c *Client) ToggleFollow(ctx context.Context, username string) (*Profile, error) {
	var result struct {
		Profile *Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPut, "/profile/"+url.PathEscape(username)+"/follow", nil, &result); err != nil {
		return nil, fmt.Errorf("toggle follow: %w", err)
	}
	return result.Profile, nil
}

// ListTags fetches the popular tags.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var result struct {
		Tags []string `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/tags", nil, &result); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return result.Tags, nil
}
