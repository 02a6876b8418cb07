package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	var span struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
		D Timestamp `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 1700000000000, "b": "1700000000000000000", "c": null, "d": "soon"}`), &span)
	require.NoError(t, err)

	assert.Equal(t, Timestamp(1700000000000), span.A)
	assert.Equal(t, Timestamp(1.7e18), span.B)
	assert.Equal(t, Timestamp(0), span.C)
	assert.True(t, math.IsNaN(float64(span.D)))
	assert.False(t, span.D.Valid())
	assert.False(t, span.C.Valid())
	assert.True(t, span.A.Valid())
}

func TestTimestampMarshalNaN(t *testing.T) {
	b, err := json.Marshal(Timestamp(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestSourceShapes(t *testing.T) {
	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(`{"name":"quality","source":"alice@example.com"}`), &a))
	assert.Equal(t, "alice@example.com", a.Source.String())

	require.NoError(t, json.Unmarshal([]byte(`{"name":"quality","source":{"source_type":"HUMAN","source_id":"bob"}}`), &a))
	assert.Equal(t, "bob", a.Source.SourceID)
	assert.Contains(t, a.Source.String(), `"source_id":"bob"`)

	out, err := json.Marshal(StringSource("carol"))
	require.NoError(t, err)
	assert.Equal(t, `"carol"`, string(out))

	out, err = json.Marshal(HumanSource("dave"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"source_type":"HUMAN","source_id":"dave"}`, string(out))
}

func TestAssessmentCreateTimeOmittedUntilKnown(t *testing.T) {
	out, err := json.Marshal(Assessment{Name: "quality", Value: 4.0})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "create_time")

	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(`{"name":"quality","create_time":"2024-05-01T12:00:00Z"}`), &a))
	require.NotNil(t, a.CreateTime)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), a.Created().UTC())
	assert.True(t, Assessment{}.Created().IsZero())
}

func TestIsEmptyValue(t *testing.T) {
	empty := []any{nil, "", "   ", []string{}, []any{}, map[string]any{}}
	for _, v := range empty {
		assert.True(t, IsEmptyValue(v), "%#v", v)
	}

	answered := []any{0, 4.5, false, true, "ok", []string{"a"}, map[string]any{"k": 1}}
	for _, v := range answered {
		assert.False(t, IsEmptyValue(v), "%#v", v)
	}
}

func TestValueKind(t *testing.T) {
	assert.Equal(t, "number", ValueKind(3))
	assert.Equal(t, "string", ValueKind("x"))
	assert.Equal(t, "list", ValueKind([]string{"a"}))
	assert.Equal(t, "struct", ValueKind(map[string]any{"a": 1}))
	assert.Equal(t, "null", ValueKind(nil))
	assert.Equal(t, "bool", ValueKind(true))
}

func TestSchemaValidate(t *testing.T) {
	ok := LabelingSchema{Name: "quality", Type: SchemaTypeFeedback, Numeric: &NumericInput{Min: 1, Max: 5}}
	require.NoError(t, ok.Validate())

	none := LabelingSchema{Name: "quality", Type: SchemaTypeFeedback}
	assert.Error(t, none.Validate())

	both := ok
	both.Text = &TextInput{}
	assert.Error(t, both.Validate())

	badType := ok
	badType.Type = "OPINION"
	assert.Error(t, badType.Validate())
}

func TestSchemaCheckValue(t *testing.T) {
	numeric := LabelingSchema{Name: "quality", Type: SchemaTypeFeedback, Numeric: &NumericInput{Min: 1, Max: 5}}
	assert.NoError(t, numeric.CheckValue(4.0))
	assert.NoError(t, numeric.CheckValue(nil))
	assert.ErrorIs(t, numeric.CheckValue(9.0), ErrInvalidValue)
	assert.ErrorIs(t, numeric.CheckValue("four"), ErrInvalidValue)

	categorical := LabelingSchema{Name: "helpfulness", Type: SchemaTypeFeedback, Categorical: &CategoricalInput{Options: []string{"Very Helpful", "Not Helpful"}}}
	assert.NoError(t, categorical.CheckValue("Very Helpful"))
	assert.NoError(t, categorical.CheckValue([]any{"Not Helpful"}))
	assert.ErrorIs(t, categorical.CheckValue("Meh"), ErrInvalidValue)

	text := LabelingSchema{Name: "notes", Type: SchemaTypeExpectation, Text: &TextInput{MaxLength: 5}}
	assert.NoError(t, text.CheckValue("short"))
	assert.ErrorIs(t, text.CheckValue("too long"), ErrInvalidValue)
}

func TestItemStateAndMask(t *testing.T) {
	assert.True(t, ItemStateCompleted.IsTerminal())
	assert.True(t, ItemStateSkipped.IsTerminal())
	assert.False(t, ItemStatePending.IsTerminal())
	assert.False(t, ItemStateInProgress.IsTerminal())

	state := ItemStateCompleted
	comment := "done"
	assert.Equal(t, "state", ItemUpdate{State: &state}.UpdateMask())
	assert.Equal(t, "state,comment", ItemUpdate{State: &state, Comment: &comment}.UpdateMask())
	assert.Equal(t, "", ItemUpdate{}.UpdateMask())
}
