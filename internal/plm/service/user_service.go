package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages accounts. Notification mail is fire-and-forget
// through EmailService.
type UserService struct {
	repo  *repository.UserRepository
	email *EmailService
}

func NewUserService(repo *repository.UserRepository, email *EmailService) *UserService {
	return &UserService{repo: repo, email: email}
}

type CreateUserInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (s *UserService) ListAll(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListAll(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, in *CreateUserInput) (*entity.User, error) {
	if !entity.IsValidRole(in.Role) {
		return nil, fmt.Errorf("unknown role %q: %w", in.Role, ErrInvalid)
	}

	if existing, err := s.repo.FindByUsername(ctx, in.Username); err == nil && existing != nil {
		return nil, fmt.Errorf("username %s already exists: %w", in.Username, ErrConflict)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing, err := s.repo.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("email %s already exists: %w", in.Email, ErrConflict)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		ID:           newID(),
		Username:     in.Username,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.email.SendWelcome(user.Name, user.Email, user.Username, in.Password)

	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in *UpdateUserInput) (*entity.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []string
	if in.Name != nil && *in.Name != user.Name {
		user.Name = *in.Name
		changes = append(changes, "Tên: "+*in.Name)
	}
	if in.Email != nil && *in.Email != user.Email {
		if existing, err := s.repo.FindByEmail(ctx, *in.Email); err == nil && existing != nil && existing.ID != id {
			return nil, fmt.Errorf("email %s already exists: %w", *in.Email, ErrConflict)
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = *in.Email
		changes = append(changes, "Email: "+*in.Email)
	}
	if in.Role != nil && *in.Role != user.Role {
		if !entity.IsValidRole(*in.Role) {
			return nil, fmt.Errorf("unknown role %q: %w", *in.Role, ErrInvalid)
		}
		user.Role = *in.Role
		changes = append(changes, "Vai trò: "+*in.Role)
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, fmt.Errorf("password must be at least 6 characters: %w", ErrInvalid)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
		changes = append(changes, "Mật khẩu")
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if len(changes) > 0 {
		s.email.SendProfileUpdated(user.Name, user.Email, changes)
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.email.SendAccountDeleted(user.Name, user.Email)

	return nil
}
