package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognobserve/labeling/internal/model"
)

var (
	quality = model.LabelingSchema{
		Name:    "quality",
		Type:    model.SchemaTypeFeedback,
		Numeric: &model.NumericInput{Min: 1, Max: 5},
	}
	helpfulness = model.LabelingSchema{
		Name:        "helpfulness",
		Type:        model.SchemaTypeFeedback,
		Categorical: &model.CategoricalInput{Options: []string{"Very Helpful", "Not Helpful"}},
	}
	reference = model.LabelingSchema{
		Name: "reference_answer",
		Type: model.SchemaTypeExpectation,
		Text: &model.TextInput{},
	}
)

func feedback(id, name string, value any, source string) model.Assessment {
	return model.Assessment{
		AssessmentID: id,
		Name:         name,
		Value:        value,
		Type:         model.AssessmentTypeFeedback,
		Source:       model.StringSource(source),
	}
}

func TestMatchSelectsLatestByID(t *testing.T) {
	rows := Match(
		[]model.LabelingSchema{quality},
		[]model.Assessment{
			feedback("12", "quality", 5.0, "alice"),
			feedback("5", "quality", 2.0, "alice"),
		},
		nil,
	)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Assessment)
	assert.Equal(t, "12", rows[0].Assessment.AssessmentID)
}

func TestMatchOneRowPerSchema(t *testing.T) {
	rows := Match(
		[]model.LabelingSchema{quality, helpfulness, reference},
		[]model.Assessment{feedback("1", "quality", 4.0, "alice")},
		nil,
	)
	require.Len(t, rows, 3)
	assert.NotNil(t, rows[0].Assessment)
	assert.Nil(t, rows[1].Assessment)
	assert.Nil(t, rows[2].Assessment)
	assert.Equal(t, "helpfulness", rows[1].Schema.Name)
}

func TestMatchFiltersByUser(t *testing.T) {
	user := &Identity{Username: "alice", Emails: []string{"Alice@Example.com"}}
	assessments := []model.Assessment{
		feedback("30", "quality", 1.0, "bob@example.com"),
		feedback("20", "quality", 4.0, "alice@example.com"),
		{
			AssessmentID: "40",
			Name:         "helpfulness",
			Value:        "Not Helpful",
			Type:         model.AssessmentTypeFeedback,
			Source:       model.HumanSource("bob"),
		},
	}

	rows := Match([]model.LabelingSchema{quality, helpfulness}, assessments, user)
	require.NotNil(t, rows[0].Assessment)
	assert.Equal(t, "20", rows[0].Assessment.AssessmentID)
	assert.Nil(t, rows[1].Assessment, "another reviewer's judgment must not show as ours")

	for _, r := range rows {
		if r.Assessment != nil {
			assert.True(t, user.Owns(r.Assessment.Source))
		}
	}
}

func TestMatchStructuredSourceOwnership(t *testing.T) {
	user := &Identity{Username: "ALICE"}
	a := model.Assessment{AssessmentID: "1", Name: "quality", Type: model.AssessmentTypeFeedback, Source: model.HumanSource("alice")}
	rows := Match([]model.LabelingSchema{quality}, []model.Assessment{a}, user)
	require.NotNil(t, rows[0].Assessment)
}

func TestMatchUnpersistedNeverOutranksPersisted(t *testing.T) {
	draft := feedback("", "quality", 3.0, "alice")
	now, earlier := time.Now(), time.Now().Add(-time.Hour)
	draft.CreateTime = &now
	saved := feedback("7", "quality", 2.0, "alice")
	saved.CreateTime = &earlier

	rows := Match([]model.LabelingSchema{quality}, []model.Assessment{saved, draft}, nil)
	assert.Equal(t, "7", rows[0].Assessment.AssessmentID)

	rows = Match([]model.LabelingSchema{quality}, []model.Assessment{draft, saved}, nil)
	assert.Equal(t, "7", rows[0].Assessment.AssessmentID)
}

func TestMatchGroupsByType(t *testing.T) {
	asFeedback := feedback("9", "reference_answer", "fb", "alice")
	asExpectation := model.Assessment{
		AssessmentID: "3",
		Name:         "reference_answer",
		Value:        "exp",
		Type:         model.AssessmentTypeExpectation,
		Source:       model.StringSource("alice"),
	}
	rows := Match([]model.LabelingSchema{reference}, []model.Assessment{asFeedback, asExpectation}, nil)
	assert.Equal(t, "3", rows[0].Assessment.AssessmentID)
}

func TestMatchIdempotent(t *testing.T) {
	schemas := []model.LabelingSchema{quality, helpfulness}
	assessments := []model.Assessment{
		feedback("2", "quality", 3.0, "alice"),
		feedback("11", "helpfulness", "Very Helpful", "alice"),
		feedback("10", "helpfulness", "Not Helpful", "alice"),
	}
	user := &Identity{Username: "alice"}
	assert.Equal(t, Match(schemas, assessments, user), Match(schemas, assessments, user))
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("5", "12"))
	assert.Equal(t, 1, CompareIDs("a-0000b", "a-0000a"))
	assert.Equal(t, 0, CompareIDs("x", "x"))
}

func TestWorkingSet(t *testing.T) {
	rows := Match(
		[]model.LabelingSchema{quality, helpfulness},
		[]model.Assessment{feedback("1", "quality", 4.0, "alice")},
		nil,
	)
	ws := WorkingSet(rows)
	require.Len(t, ws, 1)
	assert.Equal(t, 4.0, ws["quality"].Value)
}

func TestIdentityPrimary(t *testing.T) {
	assert.Equal(t, "a@example.com", Identity{Username: "alice", Emails: []string{"a@example.com"}}.Primary())
	assert.Equal(t, "alice", Identity{Username: "alice"}.Primary())
	assert.False(t, Identity{}.Owns(model.StringSource("anyone")))
}
