package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
	"github.com/SAP-F-2025/instantquiz-service/internal/validator"
)

func TestQuizService_Create(t *testing.T) {
	env := newTestEnv(t)
	quizzes := env.manager.Quiz()

	resp, err := quizzes.Create(env.ctx, &CreateQuizRequest{
		Name:     "Team roles",
		Settings: &validator.QuizSettingsRequest{AttemptsLimit: 3, AttemptDuration: 600},
	}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.TemplateBasic, resp.Template)
	assert.Equal(t, teacherID, resp.CreatedBy)
	assert.Equal(t, 3, resp.Settings.AttemptsLimit)
	assert.True(t, resp.CanManage)
	assert.True(t, resp.CanViewSummary)

	stored, err := env.store.Quiz().GetByID(env.ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 600, stored.Settings.AttemptDuration)

	tests := []struct {
		name    string
		req     *CreateQuizRequest
		userID  string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "student",
			req:    &CreateQuizRequest{Name: "Mine"},
			userID: studentID,
			checkFn: func(t *testing.T, err error) {
				assert.True(t, IsPermissionError(err))
			},
		},
		{
			name:   "missing name",
			req:    &CreateQuizRequest{},
			userID: teacherID,
			checkFn: func(t *testing.T, err error) {
				var errs validator.ValidationErrors
				require.ErrorAs(t, err, &errs)
				assert.Equal(t, "name", errs[0].Field)
			},
		},
		{
			name:   "unknown template",
			req:    &CreateQuizRequest{Name: "Quiz", Template: "personality"},
			userID: teacherID,
			checkFn: func(t *testing.T, err error) {
				var errs validator.ValidationErrors
				assert.ErrorAs(t, err, &errs)
			},
		},
		{
			name:   "unknown user",
			req:    &CreateQuizRequest{Name: "Quiz"},
			userID: "ghost",
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUserNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quizzes.Create(env.ctx, tt.req, tt.userID)
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestQuizService_Update(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, validator.QuizSettingsRequest{})
	quizzes := env.manager.Quiz()

	resp, err := quizzes.Update(env.ctx, quiz.ID, &UpdateQuizRequest{
		Name:     ptr("Renamed"),
		Settings: &validator.QuizSettingsRequest{ResultAfterAnswer: true},
	}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)
	assert.True(t, resp.Settings.ResultAfterAnswer)

	_, err = quizzes.Update(env.ctx, quiz.ID, &UpdateQuizRequest{Template: ptr(models.TemplateOpen)}, teacherID)
	assert.True(t, IsValidationError(err), "the template is fixed at creation")

	_, err = quizzes.Update(env.ctx, quiz.ID, &UpdateQuizRequest{Template: ptr(models.TemplateBasic)}, teacherID)
	assert.NoError(t, err, "repeating the current template is allowed")

	_, err = quizzes.Update(env.ctx, quiz.ID, &UpdateQuizRequest{Name: ptr("Hijacked")}, otherTeacherID)
	assert.True(t, IsPermissionError(err))

	_, err = quizzes.Update(env.ctx, quiz.ID, &UpdateQuizRequest{Name: ptr("By admin")}, adminID)
	assert.NoError(t, err)

	_, err = quizzes.Update(env.ctx, quiz.ID, &UpdateQuizRequest{
		Schedule: &validator.QuizScheduleRequest{
			TimeOpen:  ptr(env.now),
			TimeClose: ptr(env.now),
		},
	}, teacherID)
	var errs validator.ValidationErrors
	assert.ErrorAs(t, err, &errs)
}

func TestQuizService_DeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ls := env.learningStyles(t, validator.QuizSettingsRequest{})
	resp := env.finish(t, ls, studentID, 2)

	err := env.manager.Quiz().Delete(env.ctx, ls.quiz.ID, studentID)
	assert.True(t, IsPermissionError(err))

	require.NoError(t, env.manager.Quiz().Delete(env.ctx, ls.quiz.ID, teacherID))

	_, err = env.manager.Quiz().GetByID(env.ctx, ls.quiz.ID, teacherID)
	assert.ErrorIs(t, err, ErrQuizNotFound)
	_, err = env.store.Attempt().GetByID(env.ctx, resp.ID)
	assert.True(t, repositories.IsNotFoundError(err))
	_, err = env.store.Question().GetByID(env.ctx, ls.quiz.ID, ls.question.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestQuizService_List(t *testing.T) {
	env := newTestEnv(t)
	env.createQuiz(t, validator.QuizSettingsRequest{})
	_, err := env.manager.Quiz().Create(env.ctx, &CreateQuizRequest{Name: "Conflict styles", Template: models.TemplateOpen}, otherTeacherID)
	require.NoError(t, err)

	all, err := env.manager.Quiz().List(env.ctx, &ListQuizzesRequest{}, studentID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
	assert.Equal(t, defaultQuizPageSize, all.Limit)
	for _, quiz := range all.Quizzes {
		assert.True(t, quiz.CanAttempt)
		assert.False(t, quiz.CanManage)
	}

	mine, err := env.manager.Quiz().List(env.ctx, &ListQuizzesRequest{Mine: true}, otherTeacherID)
	require.NoError(t, err)
	require.Len(t, mine.Quizzes, 1)
	assert.Equal(t, "Conflict styles", mine.Quizzes[0].Name)
	assert.True(t, mine.Quizzes[0].CanManage)

	found, err := env.manager.Quiz().List(env.ctx, &ListQuizzesRequest{Search: "learning"}, studentID)
	require.NoError(t, err)
	require.Len(t, found.Quizzes, 1)
	assert.Equal(t, "Learning styles", found.Quizzes[0].Name)
}
