package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthResult struct {
	User   *models.User `json:"user"`
	Tokens Tokens       `json:"tokens"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Signup(ctx context.Context, req models.SignupRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	// Logout revokes the actor's refresh token. Access tokens stay valid until they expire.
	Logout(ctx context.Context, actor authz.Actor) error
	// SeedAdmin creates the admin account when no user has that email yet.
	SeedAdmin(ctx context.Context, name, email, password string) error
}

type AuthOptions struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type authService struct {
	users repositories.UserRepository
	opts  AuthOptions
	now   func() time.Time
}

func NewAuthService(users repositories.UserRepository, opts AuthOptions) AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	return &authService{users: users, opts: opts, now: time.Now}
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("[auth][login] unknown email=%q", email)
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("get user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("[auth][login] bcrypt mismatch userID=%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *authService) Signup(ctx context.Context, req models.SignupRequest) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || len(req.Password) < 6 {
		return nil, validationf("name, email and a password of at least 6 characters are required")
	}
	user := &models.User{Name: name, Email: email, RoleID: authz.RoleUser}
	if err := s.createWithPassword(ctx, user, req.Password); err != nil {
		return nil, err
	}
	log.Printf("[auth][signup][ok] userID=%d", user.ID)
	return s.issue(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	old := strings.TrimSpace(refreshToken)
	if old == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByRefreshToken(ctx, old)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("get user", err)
	}
	if user.RefreshExpiresAt == nil || s.now().After(*user.RefreshExpiresAt) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *authService) Logout(ctx context.Context, actor authz.Actor) error {
	if actor.ID == 0 {
		return ErrInvalidCredentials
	}
	if err := s.users.ClearRefresh(ctx, actor.ID); err != nil {
		return persistence("clear refresh token", err)
	}
	log.Printf("[auth][logout][ok] userID=%d", actor.ID)
	return nil
}

func (s *authService) SeedAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return persistence("get user", err)
	}
	admin := &models.User{Name: name, Email: email, RoleID: authz.RoleAdmin}
	if err := s.createWithPassword(ctx, admin, password); err != nil {
		return err
	}
	log.Printf("[auth][seed] admin created id=%d email=%q", admin.ID, email)
	return nil
}

func (s *authService) createWithPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return conflictf("email already registered")
		}
		return persistence("create user", err)
	}
	return nil
}

// issue signs a new access token and rotates the refresh token.
func (s *authService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	now := s.now()
	access, exp, err := utils.SignAccessToken(s.opts.Secret, user.ID, user.RoleID, user.Name, s.opts.AccessTTL, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	rtExp := now.Add(s.opts.RefreshTTL)
	if err := s.users.UpdateRefresh(ctx, user.ID, rt, rtExp); err != nil {
		return nil, persistence("store refresh token", err)
	}
	user.RefreshToken = &rt
	user.RefreshExpiresAt = &rtExp
	return &AuthResult{User: user, Tokens: Tokens{AccessToken: access, RefreshToken: rt, ExpiresAt: exp}}, nil
}
