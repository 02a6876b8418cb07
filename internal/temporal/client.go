package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/cognobserve/labeling/internal/model"
)

// Workflow names registered by the downstream worker
const (
	AssessmentWorkflowName   = "assessmentWorkflow"
	LabelingItemWorkflowName = "labelingItemWorkflow"
)

// Workflow execution timeouts
const (
	AssessmentWorkflowTimeout   = 2 * time.Minute
	LabelingItemWorkflowTimeout = 5 * time.Minute
)

// Client wraps the Temporal SDK client for workflow operations
type Client struct {
	client    client.Client
	taskQueue string
}

// New creates a new Temporal client connection
func New(address, namespace, taskQueue string) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal at %s: %w", address, err)
	}

	return NewWithClient(c, taskQueue), nil
}

// NewWithClient wraps an existing SDK client
func NewWithClient(c client.Client, taskQueue string) *Client {
	return &Client{client: c, taskQueue: taskQueue}
}

// AssessmentSaved starts the assessment workflow for a persisted assessment
func (c *Client) AssessmentSaved(ctx context.Context, event model.AssessmentEvent) error {
	_, err := c.StartAssessmentWorkflow(ctx, AssessmentWorkflowInput{
		EventID:      event.ID,
		SessionID:    event.SessionID,
		ItemID:       event.ItemID,
		TraceID:      event.TraceID,
		AssessmentID: event.Assessment.AssessmentID,
		Name:         event.Assessment.Name,
		Type:         string(event.Assessment.Type),
		Value:        event.Assessment.Value,
		Rationale:    event.Assessment.Rationale,
		Source:       event.Assessment.Source.String(),
		Created:      event.Created,
		Timestamp:    event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	return err
}

// ItemChanged starts the item workflow for a state or comment change
func (c *Client) ItemChanged(ctx context.Context, event model.ItemEvent) error {
	_, err := c.StartLabelingItemWorkflow(ctx, ItemWorkflowInput{
		EventID:   event.ID,
		SessionID: event.SessionID,
		ItemID:    event.ItemID,
		TraceID:   event.TraceID,
		State:     string(event.State),
		Comment:   event.Comment,
		Reviewer:  event.Reviewer,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	return err
}

// StartAssessmentWorkflow starts an assessment workflow.
// Returns the workflow ID for tracking
func (c *Client) StartAssessmentWorkflow(ctx context.Context, input AssessmentWorkflowInput) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:                       "assessment-" + input.EventID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: AssessmentWorkflowTimeout,
	}

	we, err := c.client.ExecuteWorkflow(ctx, opts, AssessmentWorkflowName, input)
	if err != nil {
		return "", fmt.Errorf("failed to start assessment workflow: %w", err)
	}

	return we.GetID(), nil
}

// StartLabelingItemWorkflow starts a labeling item workflow.
// Returns the workflow ID for tracking
func (c *Client) StartLabelingItemWorkflow(ctx context.Context, input ItemWorkflowInput) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:                       "labeling-item-" + input.ItemID + "-" + input.EventID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: LabelingItemWorkflowTimeout,
	}

	we, err := c.client.ExecuteWorkflow(ctx, opts, LabelingItemWorkflowName, input)
	if err != nil {
		return "", fmt.Errorf("failed to start labeling item workflow: %w", err)
	}

	return we.GetID(), nil
}

// Close closes the Temporal client connection
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// IsHealthy checks if the Temporal connection is healthy
func (c *Client) IsHealthy(ctx context.Context) bool {
	_, err := c.client.CheckHealth(ctx, &client.CheckHealthRequest{})
	return err == nil
}
