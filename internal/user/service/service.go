// Package service implements user directory operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"

	"middleoffice/internal/user/models"
	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/platform/sentinel"
	"middleoffice/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store persists users.
type Store interface {
	Insert(ctx context.Context, user models.User) (string, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// CreationRecorder counts created users.
type CreationRecorder interface {
	IncrementUsersCreated()
}

type Service struct {
	users    Store
	validate *validator.Validate
	logger   *slog.Logger
	metrics  CreationRecorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m CreationRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(users Store, opts ...Option) *Service {
	s := &Service{
		users:    users,
		validate: validator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates req and stores a new user.
func (s *Service) Create(ctx context.Context, req models.CreateUserRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, formatValidationError(err))
	}
	id, err := s.users.Insert(ctx, models.User{Name: req.Name, Location: req.Location, Title: req.Title})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Error creating user : %s", err))
	}
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	s.logger.InfoContext(ctx, "user created",
		"user_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	if !validID(id) {
		return models.User{}, dErrors.New(dErrors.CodeOidFormat, "ObjectId wrongly structure.")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.User{}, dErrors.New(dErrors.CodeDataNotFound, "No result.")
		}
		return models.User{}, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Error getting user's detail : %s", err))
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Error getting list of users : %s", err))
	}
	return users, nil
}

// Delete removes id. Nothing removed is a not-found error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return dErrors.New(dErrors.CodeOidFormat, "ObjectId wrongly structure.")
	}
	n, err := s.users.Delete(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Error deleting user : %s", err))
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeDataNotFound, "No result.")
	}
	s.logger.InfoContext(ctx, "user deleted",
		"user_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func validID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
