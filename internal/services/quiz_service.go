package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

const defaultQuizPageSize = 20

type quizService struct {
	serviceBase
	summary SummaryService
}

func NewQuizService(deps Dependencies, summary SummaryService) QuizService {
	return &quizService{
		serviceBase: newServiceBase(deps),
		summary:     summary,
	}
}

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, userID string) (*QuizResponse, error) {
	s.Logger.Info("Creating quiz",
		"name", req.Name,
		"user_id", userID)

	if err := s.validate(req); err != nil {
		return nil, err
	}
	if errs := s.Validator.ValidateSchedule(req.TimeOpen, req.TimeClose); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsManager() {
		return nil, NewPermissionError(userID, 0, "quiz", "create", "only teachers and admins can create quizzes")
	}

	quiz := &models.Quiz{
		Name:      req.Name,
		Intro:     req.Intro,
		Template:  req.Template,
		CreatedBy: userID,
		TimeOpen:  req.TimeOpen,
		TimeClose: req.TimeClose,
	}
	if quiz.Template == "" {
		quiz.Template = models.TemplateBasic
	}
	if req.Settings != nil {
		quiz.Settings = req.Settings.ToModel()
	}

	if err := s.Repo.Quiz().Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.Logger.Info("Quiz created successfully",
		"quiz_id", quiz.ID,
		"template", quiz.Template,
		"user_id", userID)

	return s.buildResponse(&quizContext{Quiz: quiz, Template: s.Templates.Resolve(quiz.Template)}, user), nil
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	qc, err := s.loadQuiz(ctx, s.Repo, id)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(qc, user), nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	s.Logger.Info("Updating quiz",
		"quiz_id", id,
		"user_id", userID)

	if err := s.validate(req); err != nil {
		return nil, err
	}

	qc, user, err := s.loadForUser(ctx, id, userID, CapManage, "update")
	if err != nil {
		return nil, err
	}
	quiz := qc.Quiz

	if req.Template != nil && *req.Template != quiz.Template {
		return nil, NewValidationError("template", "cannot be changed after the quiz is created", *req.Template)
	}

	if req.Name != nil {
		quiz.Name = *req.Name
	}
	if req.Intro != nil {
		quiz.Intro = *req.Intro
	}
	if req.Schedule != nil {
		if errs := s.Validator.ValidateSchedule(req.Schedule.TimeOpen, req.Schedule.TimeClose); len(errs) > 0 {
			return nil, errs
		}
		quiz.TimeOpen = req.Schedule.TimeOpen
		quiz.TimeClose = req.Schedule.TimeClose
	}
	if req.Settings != nil {
		quiz.Settings = req.Settings.ToModel()
	}

	if err := s.Repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound, "update quiz")
	}

	s.summary.EntityUpdated(ctx, id, "quiz", id)

	s.Logger.Info("Quiz updated successfully", "quiz_id", id)
	return s.buildResponse(qc, user), nil
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.Logger.Info("Deleting quiz",
		"quiz_id", id,
		"user_id", userID)

	if _, err := s.manage(ctx, id, userID, "delete"); err != nil {
		return err
	}

	if err := s.Repo.Quiz().Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrQuizNotFound, "delete quiz")
	}

	s.Logger.Info("Quiz deleted successfully", "quiz_id", id)
	return nil
}

func (s *quizService) List(ctx context.Context, req *ListQuizzesRequest, userID string) (*QuizListResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	filters := models.QuizFilters{
		Search: req.Search,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filters.Limit == 0 {
		filters.Limit = defaultQuizPageSize
	}
	if req.Mine {
		filters.CreatedBy = userID
	}

	quizzes, total, err := s.Repo.Quiz().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	response := &QuizListResponse{
		Quizzes: make([]*QuizResponse, 0, len(quizzes)),
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}
	for _, quiz := range quizzes {
		qc := &quizContext{Quiz: quiz, Template: s.Templates.Resolve(quiz.Template)}
		response.Quizzes = append(response.Quizzes, s.buildResponse(qc, user))
	}
	return response, nil
}

func (s *quizService) buildResponse(qc *quizContext, user *models.User) *QuizResponse {
	return &QuizResponse{
		Quiz:           qc.Quiz,
		CanManage:      qc.can(user, CapManage),
		CanAttempt:     qc.can(user, CapAttempt),
		CanViewSummary: qc.can(user, CapViewSummary),
	}
}
