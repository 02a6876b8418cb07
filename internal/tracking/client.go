// Package tracking is the REST client for the trace and assessment service
// that owns traces, assessments and labeling sessions.
package tracking

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

	"github.com/cognobserve/labeling/internal/model"
)

const (
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is kept
	maxErrorBody = 4096
)

// ErrNotFound is wrapped by errors for 404 responses
var ErrNotFound = errors.New("not found")

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the tracking service
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. An empty token sends no Authorization header.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type traceResponse struct {
	Trace model.Trace `json:"trace"`
}

type assessmentResponse struct {
	Assessment model.Assessment `json:"assessment"`
}

type sessionResponse struct {
	Session model.LabelingSession `json:"labeling_session"`
}

type schemasResponse struct {
	Schemas []model.LabelingSchema `json:"labeling_schemas"`
}

type itemResponse struct {
	Item model.LabelingItem `json:"item"`
}

type updateItemRequest struct {
	Item       model.ItemUpdate `json:"item"`
	UpdateMask string           `json:"update_mask"`
}

type tagValue struct {
	Value string `json:"value"`
}

// GetTrace fetches a trace with its spans and assessments
func (c *Client) GetTrace(ctx context.Context, traceID string) (*model.Trace, error) {
	var resp traceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/traces/"+url.PathEscape(traceID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get trace %s: %w", traceID, err)
	}
	return &resp.Trace, nil
}

// CreateAssessment logs a new feedback or expectation on a trace
func (c *Client) CreateAssessment(ctx context.Context, traceID string, in model.AssessmentInput) (*model.Assessment, error) {
	path := fmt.Sprintf("/api/v1/traces/%s/%s", url.PathEscape(traceID), collection(in.Type))

	var resp assessmentResponse
	if err := c.do(ctx, http.MethodPost, path, in, &resp); err != nil {
		return nil, fmt.Errorf("failed to create %s %q: %w", in.Type, in.Name, err)
	}
	return &resp.Assessment, nil
}

// UpdateAssessment changes an existing feedback or expectation
func (c *Client) UpdateAssessment(ctx context.Context, traceID, assessmentID string, in model.AssessmentInput) (*model.Assessment, error) {
	path := fmt.Sprintf("/api/v1/traces/%s/%s/%s", url.PathEscape(traceID), collection(in.Type), url.PathEscape(assessmentID))

	var resp assessmentResponse
	if err := c.do(ctx, http.MethodPatch, path, in, &resp); err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", in.Type, assessmentID, err)
	}
	return &resp.Assessment, nil
}

// GetSession fetches a labeling session with its items
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.LabelingSession, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/labeling-sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get labeling session %s: %w", sessionID, err)
	}
	return &resp.Session, nil
}

// GetItem fetches one item of a session
func (c *Client) GetItem(ctx context.Context, sessionID, itemID string) (*model.LabelingItem, error) {
	var resp itemResponse
	if err := c.do(ctx, http.MethodGet, itemPath(sessionID, itemID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}
	return &resp.Item, nil
}

// ListSchemas returns all labeling schema definitions
func (c *Client) ListSchemas(ctx context.Context) ([]model.LabelingSchema, error) {
	var resp schemasResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/labeling-schemas", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list labeling schemas: %w", err)
	}
	return resp.Schemas, nil
}

// UpdateItem applies upd to an item; only the set fields are sent in the mask
func (c *Client) UpdateItem(ctx context.Context, sessionID, itemID string, upd model.ItemUpdate) (*model.LabelingItem, error) {
	req := updateItemRequest{Item: upd, UpdateMask: upd.UpdateMask()}

	var resp itemResponse
	if err := c.do(ctx, http.MethodPatch, itemPath(sessionID, itemID), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", itemID, err)
	}
	return &resp.Item, nil
}

// GetRunTag reads a tag of a run. A missing tag is an empty value.
func (c *Client) GetRunTag(ctx context.Context, runID, key string) (string, error) {
	var resp tagValue
	err := c.do(ctx, http.MethodGet, tagPath(runID, key), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get tag %s of run %s: %w", key, runID, err)
	}
	return resp.Value, nil
}

// SetRunTag writes a tag of a run
func (c *Client) SetRunTag(ctx context.Context, runID, key, value string) error {
	if err := c.do(ctx, http.MethodPut, tagPath(runID, key), tagValue{Value: value}, nil); err != nil {
		return fmt.Errorf("failed to set tag %s of run %s: %w", key, runID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
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
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func collection(t model.AssessmentType) string {
	if t == model.AssessmentTypeExpectation {
		return "expectations"
	}
	return "feedback"
}

func itemPath(sessionID, itemID string) string {
	return fmt.Sprintf("/api/v1/labeling-sessions/%s/items/%s", url.PathEscape(sessionID), url.PathEscape(itemID))
}

func tagPath(runID, key string) string {
	return fmt.Sprintf("/api/v1/runs/%s/tags/%s", url.PathEscape(runID), url.PathEscape(key))
}
