package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"alumnihub.com/alumni-feed/models"
	"alumnihub.com/alumni-feed/routes"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxErrorBody          = 4 << 10
)

// Client calls the alumni REST backend. Every request carries the bearer token
// when one is set.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	routes  *routes.Table
	token   string
	timeout time.Duration
	log     *logrus.Entry
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithRequestTimeout bounds every request. It takes precedence over the
// timeout of a client passed with WithHTTPClient, which is left untouched.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithClientLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("new client: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("new client: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: parsed,
		http:    &http.Client{},
		routes:  routes.NewTable(),
		log:     logrus.StandardLogger().WithField("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	timeout := c.timeout
	if timeout == 0 {
		timeout = c.http.Timeout
	}
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	owned := *c.http
	owned.Timeout = timeout
	c.http = &owned

	return c, nil
}

// Do sends one JSON request to path, which must already be escaped. body may
// be nil; out may be nil to discard the response body. Non-2xx responses and
// transport failures return *APIError.
func (c *Client) Do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": method, "path": path}).WithError(err).Debug("request failed")
		return &APIError{Method: method, Path: path, Message: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
		c.log.WithFields(logrus.Fields{"method": method, "path": path, "status": resp.StatusCode}).Debug("request rejected")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: %d: %w", method, path, resp.StatusCode, ErrEmptyResponse)
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	return nil
}

func (c *Client) call(ctx context.Context, route string, pairs []string, body any, out any) error {
	method, path, err := c.routes.Build(route, pairs...)
	if err != nil {
		return err
	}

	return c.Do(ctx, method, path, body, out)
}

func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	return strings.TrimSpace(string(raw))
}

func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.call(ctx, routes.ListPosts, nil, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, postID string) (models.Post, error) {
	var post models.Post
	err := c.call(ctx, routes.GetPost, []string{"postId", postID}, nil, &post)
	return post, err
}

func (c *Client) UpdatePost(ctx context.Context, postID string, patch models.PostPatch) (models.Post, error) {
	var post models.Post
	err := c.call(ctx, routes.UpdatePost, []string{"postId", postID}, patch, &post)
	return post, err
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.call(ctx, routes.DeletePost, []string{"postId", postID}, nil, nil)
}

func (c *Client) LikePost(ctx context.Context, postID string) (models.LikeState, error) {
	var state models.LikeState
	err := c.call(ctx, routes.LikePost, []string{"postId", postID}, nil, &state)
	return state, err
}

func (c *Client) UnlikePost(ctx context.Context, postID string) (models.LikeState, error) {
	var state models.LikeState
	err := c.call(ctx, routes.UnlikePost, []string{"postId", postID}, nil, &state)
	return state, err
}

func (c *Client) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.call(ctx, routes.ListComments, []string{"postId", postID}, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, postID string, content string) (models.Comment, error) {
	var comment models.Comment
	body := map[string]string{"content": content}
	err := c.call(ctx, routes.CreateComment, []string{"postId", postID}, body, &comment)
	return comment, err
}

func (c *Client) ReplyComment(ctx context.Context, postID string, parentID string, content string) (models.Comment, error) {
	var comment models.Comment
	body := map[string]string{"post_id": postID, "content": content}
	err := c.call(ctx, routes.ReplyComment, []string{"commentId", parentID}, body, &comment)
	return comment, err
}

func (c *Client) EditComment(ctx context.Context, commentID string, content string) (models.Comment, error) {
	var comment models.Comment
	body := map[string]string{"content": content}
	err := c.call(ctx, routes.EditComment, []string{"commentId", commentID}, body, &comment)
	return comment, err
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.call(ctx, routes.DeleteComment, []string{"commentId", commentID}, nil, nil)
}

func (c *Client) LikeComment(ctx context.Context, commentID string) (models.LikeState, error) {
	var state models.LikeState
	err := c.call(ctx, routes.LikeComment, []string{"commentId", commentID}, nil, &state)
	return state, err
}

func (c *Client) UnlikeComment(ctx context.Context, commentID string) (models.LikeState, error) {
	var state models.LikeState
	err := c.call(ctx, routes.UnlikeComment, []string{"commentId", commentID}, nil, &state)
	return state, err
}
