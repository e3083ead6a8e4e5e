package service

import (
	"context"
	"errors"
	"time"

	"factory/internal/apperror"
	"factory/internal/auth"
	"factory/internal/model"
	"factory/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin staff viewer"`
}

type UpdateUserRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name" binding:"max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=admin staff viewer"`
	IsActive *bool  `json:"is_active"`
}

type UpdateProfileRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name" binding:"max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type LoginRequest struct {
	// Username accepts either the username or the email address.
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    time.Time     `json:"expires_at"`
	User         *UserResponse `json:"user"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserService covers authentication and user administration.
type UserService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	// Refresh rotates the refresh token: the presented one is revoked and a
	// new pair is issued.
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, id uint) (*UserResponse, error)
	UpdateProfile(ctx context.Context, id uint, req UpdateProfileRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, id uint, req ChangePasswordRequest) error

	CreateUser(ctx context.Context, actor uint, req CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, id uint) (*UserResponse, error)
	ListUsers(ctx context.Context, search string, page, limit int) (*ListResult[UserResponse], error)
	UpdateUser(ctx context.Context, actor uint, id uint, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor uint, id uint) error

	// EnsureAdmin creates the first administrator when no user exists yet.
	EnsureAdmin(ctx context.Context, username, email, password string) (bool, error)
}

type userService struct {
	txManager repository.TransactionManager
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	tokens    *auth.TokenManager
	now       func() time.Time
}

func NewUserService(txManager repository.TransactionManager, repo repository.UserRepository, auditRepo repository.AuditRepository, tokens *auth.TokenManager) UserService {
	return &userService{txManager: txManager, repo: repo, auditRepo: auditRepo, tokens: tokens, now: time.Now}
}

func toUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func validRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleStaff || role == model.RoleViewer
}

var errBadCredentials = apperror.Unauthorized("invalid username or password")

func (s *userService) findLogin(ctx context.Context, identifier string) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	var nf *apperror.NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}
	user, err = s.repo.GetByEmail(ctx, identifier)
	if errors.As(err, &nf) {
		return nil, errBadCredentials
	}
	return user, err
}

// issue signs a new access token and stores a fresh refresh token.
func (s *userService) issue(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := s.now()
	access, expires, err := s.tokens.Issue(user.ID, user.Role, now)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
	}); err != nil {
		return nil, err
	}
	return &TokenResponse{Token: access, RefreshToken: refresh, ExpiresAt: expires, User: toUserResponse(user)}, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.findLogin(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("account is disabled")
	}

	var res *TokenResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.now()
		user.LastLogin = &now
		if err := s.repo.Update(txCtx, user); err != nil {
			return err
		}
		res, err = s.issue(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var res *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.repo.FindRefreshToken(txCtx, refreshToken)
		if err != nil {
			return apperror.Unauthorized("invalid refresh token")
		}
		if stored.RevokedAt != nil || s.now().After(stored.ExpiresAt) {
			return apperror.Unauthorized("refresh token expired or revoked")
		}
		user, err := s.repo.GetByID(txCtx, stored.UserID)
		if err != nil || !user.IsActive {
			return apperror.Unauthorized("account is disabled")
		}
		if err := s.repo.RevokeRefreshToken(txCtx, refreshToken); err != nil {
			return err
		}
		res, err = s.issue(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *userService) Me(ctx context.Context, id uint) (*UserResponse, error) {
	return s.GetUser(ctx, id)
}

func (s *userService) UpdateProfile(ctx context.Context, id uint, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ChangePassword also revokes every refresh token of the user.
func (s *userService) ChangePassword(ctx context.Context, id uint, req ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperror.Validation("current password is incorrect")
	}
	if len(req.NewPassword) < 6 {
		return apperror.Validation("new password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user.Password = string(hashed)
		if err := s.repo.Update(txCtx, user); err != nil {
			return err
		}
		return s.repo.RevokeUserTokens(txCtx, user.ID)
	})
}

func (s *userService) CreateUser(ctx context.Context, actor uint, req CreateUserRequest) (*UserResponse, error) {
	if !validRole(req.Role) {
		return nil, apperror.Validation("invalid role: must be admin, staff or viewer")
	}
	if len(req.Password) < 6 {
		return nil, apperror.Validation("password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: string(hashed),
		Role:     req.Role,
		IsActive: true,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateUser, "user", user.ID, user.Username,
			map[string]string{"username": user.Username, "email": user.Email, "role": user.Role})
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, search string, page, limit int) (*ListResult[UserResponse], error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.repo.List(ctx, search, page, limit)
	if err != nil {
		return nil, err
	}
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, *toUserResponse(&users[i]))
	}
	return &ListResult[UserResponse]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor uint, id uint, req UpdateUserRequest) (*UserResponse, error) {
	if req.Role != "" && !validRole(req.Role) {
		return nil, apperror.Validation("invalid role: must be admin, staff or viewer")
	}

	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if req.Email != "" {
			user.Email = req.Email
		}
		if req.FullName != "" {
			user.FullName = req.FullName
		}
		if req.Role != "" {
			user.Role = req.Role
		}
		if req.IsActive != nil {
			if !*req.IsActive && id == actor {
				return apperror.Validation("you cannot deactivate your own account")
			}
			user.IsActive = *req.IsActive
		}
		if err := s.repo.Update(txCtx, user); err != nil {
			return err
		}
		if !user.IsActive {
			if err := s.repo.RevokeUserTokens(txCtx, user.ID); err != nil {
				return err
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateUser, "user", user.ID, user.Username, req)
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor uint, id uint) error {
	if id == actor {
		return apperror.Validation("you cannot delete your own account")
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.RevokeUserTokens(txCtx, id); err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteUser, "user", user.ID, user.Username, nil)
	})
}

func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		return false, apperror.Validation("ADMIN_PASSWORD is required to create the first administrator")
	}
	_, err = s.CreateUser(ctx, 0, CreateUserRequest{
		Username: username,
		Email:    email,
		FullName: "Administrator",
		Password: password,
		Role:     model.RoleAdmin,
	})
	return err == nil, err
}
