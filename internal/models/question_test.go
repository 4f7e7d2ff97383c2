package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_AddOption(t *testing.T) {
	q := &Question{}

	a := q.AddOption("A")
	b := q.AddOption("B")
	assert.Equal(t, 1, a.Idx)
	assert.Equal(t, 2, b.Idx)

	again := q.AddOption("A")
	assert.Equal(t, 1, again.Idx)
	assert.Len(t, q.Options, 2)
}

func TestQuestion_OptionIndexesAreNeverReused(t *testing.T) {
	q := &Question{}
	q.AddOption("A")
	q.AddOption("B")

	// Replace the option list with only the first option, then round-trip it through storage.
	q.Options = []Option{q.Options[0]}
	require.NoError(t, q.EncodePayload())

	loaded := &Question{OptionsData: q.OptionsData, AddInfoData: q.AddInfoData}
	loaded.DecodePayload()

	added := loaded.AddOption("C")
	assert.Equal(t, 3, added.Idx)
}

func TestQuestion_AssignOptionIndexes(t *testing.T) {
	q := &Question{
		Options: []Option{{Idx: 4, Value: "kept"}, {Value: "new"}, {Value: "newer"}},
	}
	q.AssignOptionIndexes()

	assert.Equal(t, []int{4, 5, 6}, []int{q.Options[0].Idx, q.Options[1].Idx, q.Options[2].Idx})
	assert.Equal(t, 6, q.AddInfo.LastOptionIdx)
}

func TestQuestion_SetOptionEvaluation(t *testing.T) {
	q := &Question{}
	q.SetOptionEvaluation("A", 10, 2)
	q.SetOptionEvaluation("A", 2, 1)
	q.SetOptionEvaluation("A", 10, 3)

	option := q.OptionByValue("A")
	require.NotNil(t, option)
	assert.Equal(t, PointMap{2: 1, 10: 3}, option.Points)

	data, err := json.Marshal(option.Points)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2":1,"10":3}`, string(data))
	assert.Equal(t, `{"2":1,"10":3}`, string(data), "keys are serialized in numeric order")

	q.SetOptionEvaluation("A", 2, 0)
	assert.Equal(t, PointMap{10: 3}, option.Points)
}

func TestQuestion_EarnedPoints(t *testing.T) {
	q := &Question{
		Options: []Option{
			{Idx: 1, Value: "A", Points: PointMap{1: 1}},
			{Idx: 2, Value: "B", Points: PointMap{2: 1}},
			{Idx: 3, Value: "C", Points: PointMap{1: 2, 2: 2}},
		},
	}

	tests := []struct {
		name   string
		answer *Answer
		want   PointMap
	}{
		{name: "no answer", answer: nil, want: PointMap{}},
		{name: "single option", answer: &Answer{Options: []int{2}}, want: PointMap{2: 1}},
		{name: "several options", answer: &Answer{Options: []int{1, 3}}, want: PointMap{1: 3, 2: 2}},
		{name: "unknown option ignored", answer: &Answer{Options: []int{9}}, want: PointMap{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.EarnedPoints(tt.answer))
		})
	}
}

func TestQuestion_MaxPossiblePoints(t *testing.T) {
	q := &Question{
		Options: []Option{
			{Idx: 1, Points: PointMap{1: 2}},
			{Idx: 2, Points: PointMap{1: 5}},
			{Idx: 3, Points: PointMap{1: 3, 2: -1}},
		},
	}

	maxPoints := q.MaxPossiblePoints()
	assert.Equal(t, 5.0, maxPoints[1])
	assert.Equal(t, -1.0, maxPoints[2])
}

func TestQuestion_IsAnswered(t *testing.T) {
	withOptions := &Question{Options: []Option{{Idx: 1}, {Idx: 2}}}
	commentRequired := &Question{
		Options: []Option{{Idx: 1}},
		AddInfo: QuestionAddInfo{Comment: CommentRequired},
	}

	assert.False(t, withOptions.IsAnswered(nil))
	assert.False(t, withOptions.IsAnswered(&Answer{}))
	assert.True(t, withOptions.IsAnswered(&Answer{Options: []int{2}}))

	assert.False(t, commentRequired.IsAnswered(&Answer{Options: []int{1}}))
	assert.False(t, commentRequired.IsAnswered(&Answer{Options: []int{1}, Comment: "  "}))
	assert.True(t, commentRequired.IsAnswered(&Answer{Options: []int{1}, Comment: "because"}))
}

func TestQuestion_ValidateAnswer(t *testing.T) {
	single := &Question{Options: []Option{{Idx: 1}, {Idx: 2}, {Idx: 3}}}
	multi := &Question{
		Options: []Option{{Idx: 1}, {Idx: 2}, {Idx: 3}},
		AddInfo: QuestionAddInfo{MinOptions: 2, MaxOptions: 3},
	}

	assert.Empty(t, single.ValidateAnswer(&Answer{Options: []int{1}}))
	assert.Len(t, single.ValidateAnswer(&Answer{Options: []int{1, 2}}), 1)
	assert.Len(t, single.ValidateAnswer(&Answer{Options: []int{7}}), 1)

	assert.True(t, multi.IsMultiSelect())
	assert.False(t, single.IsMultiSelect())
	assert.Empty(t, multi.ValidateAnswer(&Answer{Options: []int{1, 3}}))
	assert.Len(t, multi.ValidateAnswer(&Answer{Options: []int{1}}), 1)
	assert.Len(t, multi.ValidateAnswer(&Answer{Options: []int{1, 1, 2, 3}}), 2)

	exactlyTwo := &Question{
		Options: []Option{{Idx: 1}, {Idx: 2}, {Idx: 3}},
		AddInfo: QuestionAddInfo{MinOptions: 2, MaxOptions: 2},
	}
	assert.True(t, exactlyTwo.IsMultiSelect())
	assert.Empty(t, exactlyTwo.ValidateAnswer(&Answer{Options: []int{1, 2}}))
	assert.Equal(t, []string{"at least 2 options must be selected"}, exactlyTwo.ValidateAnswer(&Answer{Options: []int{1}}))
	assert.Equal(t, []string{"at most 2 options can be selected"}, exactlyTwo.ValidateAnswer(&Answer{Options: []int{1, 2, 3}}))

	optional := &Question{
		Options: []Option{{Idx: 1}, {Idx: 2}},
		AddInfo: QuestionAddInfo{MinOptions: 0, MaxOptions: 1},
	}
	assert.True(t, optional.IsMultiSelect())
	assert.Len(t, optional.ValidateAnswer(&Answer{Options: []int{1, 2}}), 1)
}

func TestQuestion_ReplaceOptions(t *testing.T) {
	q := &Question{Options: []Option{{Idx: 1, Value: "A"}, {Idx: 2, Value: "B"}}}

	q.ReplaceOptions([]Option{{Idx: 1, Value: "A"}})
	q.ReplaceOptions([]Option{{Idx: 1, Value: "A"}, {Idx: 2, Value: "C"}, {Idx: 9, Value: "D"}})

	require.Len(t, q.Options, 3)
	assert.Equal(t, 1, q.OptionByValue("A").Idx)
	assert.Equal(t, 3, q.OptionByValue("C").Idx, "idx of a removed option is not handed out again")
	assert.Equal(t, 4, q.OptionByValue("D").Idx)
	assert.Equal(t, 4, q.AddInfo.LastOptionIdx)
}

func TestQuestion_DecodeMalformedPayload(t *testing.T) {
	q := &Question{
		OptionsData: []byte(`{not json`),
		AddInfoData: []byte(`{"minoptions":1,"maxoptions":2}`),
	}
	q.DecodePayload()

	assert.Empty(t, q.Options)
	assert.Equal(t, 2, q.AddInfo.MaxOptions)
}
