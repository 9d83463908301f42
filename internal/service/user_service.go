package service

import (
	"context"
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService registers and authenticates users.
type UserService struct {
	userRepo repository.UserRepository
	cost     int
}

// NewUserService returns a UserService hashing with bcrypt.DefaultCost.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost.
func (s *UserService) WithCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Register validates the signup form and creates the user.
func (s *UserService) Register(ctx context.Context, form *validation.SignupForm) (*models.User, error) {
	fields := validation.CheckSignup(form)

	if _, ok := fields["username"]; !ok {
		taken, err := userExists(s.userRepo.GetByUsername(ctx, form.Username))
		if err != nil {
			return nil, err
		}
		if taken {
			fields = addField(fields, "username", "A user with that username already exists.")
		}
	}
	if _, ok := fields["email"]; !ok {
		taken, err := userExists(s.userRepo.GetByEmail(ctx, form.Email))
		if err != nil {
			return nil, err
		}
		if taken {
			fields = addField(fields, "email", "A user with that email already exists.")
		}
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password1), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		Password:  string(hash),
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}

	middleware.Logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

func userExists(_ *models.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case models.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Authenticate checks credentials. Unknown users and wrong passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, form *validation.LoginForm) (*models.User, error) {
	if fields := validation.CheckLogin(form); fields != nil {
		return nil, models.NewFieldValidationError(fields)
	}

	user, err := s.userRepo.GetByUsername(ctx, form.Username)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)) != nil {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
	}
	return user, nil
}

// GetByUsername resolves a profile owner.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// GetByID resolves a user by id.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
