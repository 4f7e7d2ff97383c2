package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedback_IsApplicable(t *testing.T) {
	criteria := []*Criterion{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	scores := PointMap{1: 5, 2: 3}

	tests := []struct {
		name    string
		formula string
		want    bool
		wantErr bool
	}{
		{name: "empty formula", formula: "", want: true},
		{name: "blank formula", formula: "  ", want: true},
		{name: "comparison", formula: "${A} > ${B} AND ${A} < 10", want: true},
		{name: "unknown criterion", formula: "${Unknown} == 0", want: true},
		{name: "case insensitive", formula: "${a} == 5", want: true},
		{name: "not applicable", formula: "${B} > 3", want: false},
		{name: "malformed", formula: "${A} >", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Feedback{AddInfo: FeedbackAddInfo{Formula: tt.formula}}
			got, err := f.IsApplicable(scores, criteria)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeedback_EmptyFormulaIgnoresScores(t *testing.T) {
	f := &Feedback{}
	ok, err := f.IsApplicable(nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefaultFeedback(t *testing.T) {
	f := DefaultFeedback(7)
	assert.Equal(t, "Thank you", f.Text)
	assert.Equal(t, uint(7), f.QuizID)
	assert.Zero(t, f.ID)
	assert.True(t, f.IsDefault)
	assert.Empty(t, f.AddInfo.Formula)
}
