package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognobserve/labeling/internal/config"
	"github.com/cognobserve/labeling/internal/handler"
	"github.com/cognobserve/labeling/internal/labeltest"
	authmw "github.com/cognobserve/labeling/internal/middleware"
	"github.com/cognobserve/labeling/internal/model"
	"github.com/cognobserve/labeling/internal/renderer"
	"github.com/cognobserve/labeling/internal/review"
	"github.com/cognobserve/labeling/internal/server"
)

const secret = "test-secret"

type testEnv struct {
	api   *labeltest.FakeTracking
	srv   *httptest.Server
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := labeltest.NewFakeTracking()
	api.SetSchemas(
		model.LabelingSchema{Name: "quality", Type: model.SchemaTypeFeedback, Numeric: &model.NumericInput{Min: 1, Max: 5}},
		model.LabelingSchema{Name: "helpfulness", Type: model.SchemaTypeFeedback, Categorical: &model.CategoricalInput{Options: []string{"Very Helpful", "Not Helpful"}}},
	)
	api.AddSession(model.LabelingSession{
		SessionID:   "sess-1",
		RunID:       "run-1",
		SchemaNames: []string{"quality", "helpfulness"},
		Items:       []model.LabelingItem{{ItemID: "item-1", State: model.ItemStatePending, Source: model.ItemSource{TraceID: "tr-1"}}},
	})
	api.AddTrace(model.Trace{TraceID: "tr-1", State: model.TraceStateOK})

	selector := renderer.NewSelector(renderer.Builtin(), api, nil)
	manager := review.NewManager(api, review.Options{Delay: 10 * time.Millisecond, Selector: selector})
	t.Cleanup(manager.Close)

	cfg := &config.Config{Port: "0", JWTSecret: secret}
	s := server.New(cfg, handler.New(manager, selector, map[string]handler.HealthCheck{}))
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &authmw.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Email:            "alice@example.com",
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	return &testEnv{api: api, srv: srv, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, auth bool) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestPublicEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, body = e.do(t, http.MethodGet, "/v1/renderers", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list handler.RenderersResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "default", list.Default)
	assert.Contains(t, list.Renderers, "tool-calls")

	resp, body = e.do(t, http.MethodGet, "/v1/renderers/resolve?tag=fancy", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"tag":"fancy","renderer":"default"}`, string(body))

	trace := model.Trace{
		TraceID: "tr-x",
		Spans: []model.Span{{
			Name: "agent", SpanID: "s1", StartTime: 1700000000000, EndTime: 1700000000250,
			Attributes: map[string]any{"mlflow.spanInputs": `{"query": "hi"}`, "mlflow.spanOutputs": `"hello"`},
		}},
	}
	resp, body = e.do(t, http.MethodPost, "/v1/normalize?renderer=chat", trace, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var norm handler.NormalizeResponse
	require.NoError(t, json.Unmarshal(body, &norm))
	require.NotNil(t, norm.Conversation.UserRequest)
	assert.Equal(t, "hi", norm.Conversation.UserRequest.Content)
	assert.Equal(t, "chat", norm.View.Renderer)

	match := map[string]any{
		"schemas": []map[string]any{{"name": "quality", "type": "FEEDBACK", "numeric": map[string]any{"min": 1, "max": 5}}},
		"assessments": []map[string]any{
			{"assessment_id": "5", "name": "quality", "type": "feedback", "value": 2, "source": "alice"},
			{"assessment_id": "12", "name": "quality", "type": "feedback", "value": 4, "source": "alice"},
		},
	}
	resp, body = e.do(t, http.MethodPost, "/v1/match", match, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var matched handler.MatchResponse
	require.NoError(t, json.Unmarshal(body, &matched))
	require.Len(t, matched.Rows, 1)
	assert.Equal(t, "12", matched.Rows[0].Assessment.AssessmentID)

	resp, _ = e.do(t, http.MethodPost, "/v1/match", map[string]any{"schemas": []map[string]any{{"name": "bad"}}}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkspaceRequiresAuth(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodGet, "/v1/workspace", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReviewFlowOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/v1/workspace", nil, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/v1/sessions/sess-1/items/missing/open", nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/v1/sessions/sess-1/items/item-1/open", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var snap review.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, "tr-1", snap.TraceID)
	assert.Len(t, snap.Fields, 2)

	resp, _ = e.do(t, http.MethodPut, "/v1/workspace/assessments/quality", map[string]any{"value": 9}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPut, "/v1/workspace/assessments/tone", map[string]any{"value": "x"}, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, "/v1/workspace/assessments/quality", map[string]any{"value": 4}, true)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPut, "/v1/workspace/assessments/helpfulness", map[string]any{"value": "Very Helpful", "rationale": "direct"}, true)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		item, _ := e.api.Item("sess-1", "item-1")
		return item.State == model.ItemStateCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, e.api.CountOp("create"))
	assert.Len(t, e.api.ItemCalls(), 1)

	resp, body = e.do(t, http.MethodGet, "/v1/workspace/save-status", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "last_error")

	resp, body = e.do(t, http.MethodPut, "/v1/workspace/comment", map[string]any{"comment": "good"}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"comment":"good"`)

	resp, _ = e.do(t, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunRendererEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/v1/runs/run-1/renderer", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"run_id":"run-1","renderer":"default"}`, string(body))

	resp, _ = e.do(t, http.MethodPut, "/v1/runs/run-1/renderer", map[string]any{"renderer": "fancy"}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, "/v1/runs/run-1/renderer", map[string]any{"renderer": "tool-calls"}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = e.do(t, http.MethodGet, "/v1/runs/run-1/renderer", nil, true)
	assert.JSONEq(t, `{"run_id":"run-1","renderer":"tool-calls"}`, string(body))

	resp, body = e.do(t, http.MethodPost, "/v1/sessions/sess-1/items/item-1/open", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"renderer":"tool-calls"`)
}
