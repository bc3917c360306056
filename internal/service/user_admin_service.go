package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/bankcards-service/internal/auth"
	"github.com/spec-kit/bankcards-service/internal/domain"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// UserUpdateInput holds optional changes; nil fields are left untouched.
type UserUpdateInput struct {
	Username *string
	Password *string
	Role     *domain.Role
}

// UserPage is one page of users.
type UserPage struct {
	Items []domain.User
	Page  int
	Size  int
	Total int
}

// UserAdminService lets administrators manage accounts.
type UserAdminService struct {
	directory  *AccountDirectory
	bcryptCost int
	logger     *zap.Logger
}

// NewUserAdminService builds the service.
func NewUserAdminService(directory *AccountDirectory, bcryptCost int, logger *zap.Logger) *UserAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserAdminService{directory: directory, bcryptCost: bcryptCost, logger: logger}
}

// List returns all users, or those whose username contains q (case-insensitive).
func (s *UserAdminService) List(ctx context.Context, q string, page, size int) (*UserPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}
	users, total, err := s.directory.List(ctx, q, size, page*size)
	if err != nil {
		return nil, err
	}
	return &UserPage{Items: users, Page: page, Size: size, Total: total}, nil
}

// Get returns one user.
func (s *UserAdminService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.directory.RequireByID(ctx, id)
}

// Create adds a user with an explicit role.
func (s *UserAdminService) Create(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.directory.Create(ctx, user); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Update applies the non-nil fields of in.
func (s *UserAdminService) Update(ctx context.Context, id string, in UserUpdateInput) (*domain.User, error) {
	current, err := s.directory.RequireByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user := *current

	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(*in.Role)})
		}
		user.Role = *in.Role
	}
	user.PasswordHash = ""
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.directory.Update(ctx, &user); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", id), zap.String("role", string(user.Role)))
	user.PasswordHash = ""
	return &user, nil
}

// Delete removes the user together with the cards it owns.
func (s *UserAdminService) Delete(ctx context.Context, id string) error {
	_, err := s.directory.Delete(ctx, id)
	return err
}

// EnsureAdmin creates an ADMIN account unless the username is already taken.
func (s *UserAdminService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.Create(ctx, username, password, domain.RoleAdmin)
	if errors.Is(err, apperrors.ErrConflict) {
		s.logger.Debug("bootstrap admin already exists", zap.String("username", username))
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("username", username))
	return nil
}
