package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/validator"
)

type questionService struct {
	serviceBase
	summary SummaryService
}

func NewQuestionService(deps Dependencies, summary SummaryService) QuestionService {
	return &questionService{
		serviceBase: newServiceBase(deps),
		summary:     summary,
	}
}

func (s *questionService) Create(ctx context.Context, quizID uint, req *CreateQuestionRequest, userID string) (*models.Question, error) {
	s.Logger.Info("Creating question",
		"quiz_id", quizID,
		"user_id", userID)

	if err := s.validate(req); err != nil {
		return nil, err
	}

	qc, err := s.manage(ctx, quizID, userID, "add question")
	if err != nil {
		return nil, err
	}

	defaults := qc.Template.QuestionDefaults()
	question := &models.Question{
		QuizID:     quizID,
		Text:       req.Text,
		TextFormat: req.TextFormat,
		SortOrder:  models.SortOrderAuto,
		AddInfo: models.QuestionAddInfo{
			MinOptions: req.MinOptions,
			MaxOptions: req.MaxOptions,
			Comment:    defaults.Comment,
		},
	}
	if req.SortOrder != nil {
		question.SortOrder = *req.SortOrder
	}
	if question.TextFormat == "" {
		question.TextFormat = "html"
	}
	if req.MinOptions == 0 && req.MaxOptions == 0 {
		question.AddInfo.MinOptions = defaults.MinOptions
		question.AddInfo.MaxOptions = defaults.MaxOptions
	}
	if req.Comment != "" {
		question.AddInfo.Comment, _ = validator.ParseCommentMode(req.Comment)
	}

	if errs := s.Validator.ValidateCardinality(question.AddInfo.MinOptions, question.AddInfo.MaxOptions); len(errs) > 0 {
		return nil, errs
	}
	if errs := s.Validator.ValidateOptions(req.Options, nil); len(errs) > 0 {
		return nil, errs
	}
	for _, option := range req.Options {
		question.Options = append(question.Options, option.ToModel())
	}

	if err := s.Repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	if question.Text == "" {
		question.Text = models.DefaultQuestionText(question.SortOrder)
		if err := s.Repo.Question().Update(ctx, question); err != nil {
			return nil, fmt.Errorf("failed to name question: %w", err)
		}
	}

	s.summary.EntityUpdated(ctx, quizID, "question", question.ID)

	s.Logger.Info("Question created successfully",
		"quiz_id", quizID,
		"question_id", question.ID)

	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, quizID, id uint, userID string) (*models.Question, error) {
	qc, user, err := s.readable(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	question, err := s.Repo.Question().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound, "get question")
	}
	return presentQuestion(qc, user, question), nil
}

func (s *questionService) Update(ctx context.Context, quizID, id uint, req *UpdateQuestionRequest, userID string) (*models.Question, error) {
	s.Logger.Info("Updating question",
		"quiz_id", quizID,
		"question_id", id,
		"user_id", userID)

	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "update question"); err != nil {
		return nil, err
	}

	question, err := s.Repo.Question().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound, "get question")
	}

	if req.Text != nil {
		question.Text = *req.Text
		if question.Text == "" {
			question.Text = models.DefaultQuestionText(question.SortOrder)
		}
	}
	if req.TextFormat != nil {
		question.TextFormat = *req.TextFormat
	}
	if req.SortOrder != nil {
		question.SortOrder = *req.SortOrder
	}
	if req.MinOptions != nil {
		question.AddInfo.MinOptions = *req.MinOptions
	}
	if req.MaxOptions != nil {
		question.AddInfo.MaxOptions = *req.MaxOptions
	}
	if req.Comment != nil {
		question.AddInfo.Comment, _ = validator.ParseCommentMode(*req.Comment)
	}
	if errs := s.Validator.ValidateCardinality(question.AddInfo.MinOptions, question.AddInfo.MaxOptions); len(errs) > 0 {
		return nil, errs
	}

	if req.Options != nil {
		existingIdx := make([]int, 0, len(question.Options))
		for _, option := range question.Options {
			existingIdx = append(existingIdx, option.Idx)
		}
		if errs := s.Validator.ValidateOptions(req.Options, existingIdx); len(errs) > 0 {
			return nil, errs
		}
		options := make([]models.Option, 0, len(req.Options))
		for _, option := range req.Options {
			options = append(options, option.ToModel())
		}
		question.ReplaceOptions(options)
	}

	return s.save(ctx, question, "update question")
}

func (s *questionService) Delete(ctx context.Context, quizID, id uint, userID string) error {
	if _, err := s.manage(ctx, quizID, userID, "delete question"); err != nil {
		return err
	}

	if err := s.Repo.Question().Delete(ctx, quizID, id); err != nil {
		return notFoundAs(err, ErrQuestionNotFound, "delete question")
	}

	s.summary.EntityUpdated(ctx, quizID, "question", id)

	s.Logger.Info("Question deleted successfully",
		"quiz_id", quizID,
		"question_id", id)
	return nil
}

func (s *questionService) List(ctx context.Context, quizID uint, userID string) ([]*models.Question, error) {
	qc, user, err := s.readable(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.Repo.Question().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	out := make([]*models.Question, 0, len(questions))
	for _, question := range questions {
		out = append(out, presentQuestion(qc, user, question))
	}
	return out, nil
}

func (s *questionService) AddOption(ctx context.Context, quizID, id uint, req *AddOptionRequest, userID string) (*models.Question, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "add option"); err != nil {
		return nil, err
	}

	question, err := s.Repo.Question().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound, "get question")
	}

	question.AddOption(req.Value)
	return s.save(ctx, question, "add option")
}

func (s *questionService) SetOptionEvaluation(ctx context.Context, quizID, id uint, req *OptionEvaluationRequest, userID string) (*models.Question, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, quizID, userID, "set option evaluation"); err != nil {
		return nil, err
	}

	if _, err := s.Repo.Criterion().GetByID(ctx, quizID, req.CriterionID); err != nil {
		return nil, notFoundAs(err, ErrCriterionNotFound, "get criterion")
	}
	question, err := s.Repo.Question().GetByID(ctx, quizID, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound, "get question")
	}

	question.SetOptionEvaluation(req.Value, req.CriterionID, req.Points)
	return s.save(ctx, question, "set option evaluation")
}

func (s *questionService) save(ctx context.Context, question *models.Question, action string) (*models.Question, error) {
	if err := s.Repo.Question().Update(ctx, question); err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound, action)
	}

	s.summary.EntityUpdated(ctx, question.QuizID, "question", question.ID)

	s.Logger.Info("Question saved",
		"quiz_id", question.QuizID,
		"question_id", question.ID,
		"action", action)
	return question, nil
}

// readable checks that the user may see the questions of the quiz
func (s *questionService) readable(ctx context.Context, quizID uint, userID string) (*quizContext, *models.User, error) {
	qc, err := s.loadQuiz(ctx, s.Repo, quizID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !qc.can(user, CapAttempt) && !qc.can(user, CapManage) {
		return nil, nil, NewPermissionError(userID, quizID, "quiz", "view questions", "missing capability attempt")
	}
	return qc, user, nil
}

// presentQuestion hides option points from users who cannot manage the quiz
func presentQuestion(qc *quizContext, user *models.User, question *models.Question) *models.Question {
	if qc.can(user, CapManage) {
		return question
	}

	cp := *question
	cp.Options = make([]models.Option, len(question.Options))
	for i, option := range question.Options {
		cp.Options[i] = models.Option{Idx: option.Idx, Value: option.Value}
	}
	return &cp
}
