package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswer_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Answer
	}{
		{name: "list", data: `{"options":[2,1],"comment":"hi"}`, want: Answer{Options: []int{2, 1}, Comment: "hi"}},
		{name: "legacy single option", data: `{"option":3}`, want: Answer{Options: []int{3}}},
		{name: "checkbox object", data: `{"options":{"3":1,"1":1,"2":0}}`, want: Answer{Options: []int{1, 3}}},
		{name: "empty", data: `{}`, want: Answer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Answer
			require.NoError(t, json.Unmarshal([]byte(tt.data), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttempt_PayloadRoundTrip(t *testing.T) {
	attempt := &Attempt{
		Answers: AnswerSet{1: {Options: []int{2}}},
		Points: AttemptPoints{
			Q: map[uint]PointMap{1: {1: 0, 2: 1}},
			C: PointMap{1: 0, 2: 1},
		},
		Feedbacks: []uint{4},
	}
	require.NoError(t, attempt.EncodePayload())

	loaded := &Attempt{
		AnswersData:   attempt.AnswersData,
		PointsData:    attempt.PointsData,
		FeedbacksData: attempt.FeedbacksData,
	}
	loaded.DecodePayload()

	assert.True(t, attempt.Answers.Equal(loaded.Answers))
	assert.Equal(t, attempt.Points, loaded.Points)
	assert.Equal(t, attempt.Feedbacks, loaded.Feedbacks)
}

func TestAttempt_DecodeMalformedPayload(t *testing.T) {
	attempt := &Attempt{
		AnswersData: []byte(`[1,2`),
		PointsData:  []byte(`"oops"`),
	}
	attempt.DecodePayload()

	assert.NotNil(t, attempt.Answers)
	assert.Empty(t, attempt.Answers)
	assert.NotNil(t, attempt.Points.Q)
	assert.NotNil(t, attempt.Points.C)
	assert.Nil(t, attempt.Feedbacks)
}

func TestAttempt_Status(t *testing.T) {
	now := time.Now()

	assert.Equal(t, AttemptInProgress, (&Attempt{}).Status())
	assert.Equal(t, AttemptFinished, (&Attempt{TimeFinished: &now}).Status())
	assert.Equal(t, AttemptOverridden, (&Attempt{TimeFinished: &now, Overridden: true}).Status())
}

func TestCriterion_TotalPoints(t *testing.T) {
	points := AttemptPoints{Q: map[uint]PointMap{
		1: {1: 2, 2: 1},
		2: {1: 3},
		3: {},
	}}

	assert.Equal(t, 5.0, (&Criterion{ID: 1}).TotalPoints(points))
	assert.Equal(t, 1.0, (&Criterion{ID: 2}).TotalPoints(points))
	assert.Equal(t, 0.0, (&Criterion{ID: 9}).TotalPoints(points))
}

func TestQuiz_IsOpenAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.True(t, (&Quiz{}).IsOpenAt(now))
	assert.True(t, (&Quiz{TimeOpen: &before, TimeClose: &after}).IsOpenAt(now))
	assert.False(t, (&Quiz{TimeOpen: &after}).IsOpenAt(now))
	assert.False(t, (&Quiz{TimeClose: &before}).IsOpenAt(now))
}
