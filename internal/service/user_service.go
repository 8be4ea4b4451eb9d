package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jellydator/validation"
	"golang.org/x/crypto/bcrypt"

	"fishlog/internal/domain"
	"fishlog/internal/repository"
)

// UserService covers the account lifecycle and session handling. Tokens
// returned by Login are signed JWTs that carry a server-side session id;
// a token is only accepted while its sessions row exists and has not
// expired, so Logout revokes immediately.
type UserService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	CurrentUser(ctx context.Context, token string) (int64, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

type userService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	jwtSecret  []byte
	sessionTTL time.Duration
}

func NewUserService(users repository.UserRepository, sessions repository.SessionRepository, jwtSecret string, sessionTTL time.Duration) UserService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &userService{
		users:      users,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
	}
}

func (s *userService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)

	if err := validation.Validate(username,
		validation.Required.Error("username is required"),
		validation.Length(1, 64),
	); err != nil {
		return nil, fmt.Errorf("%w: username: %v", ErrValidation, err)
	}
	if err := validation.Validate(password,
		validation.Required.Error("password is required"),
	); err != nil {
		return nil, fmt.Errorf("%w: password: %v", ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", nil, err
	}

	token, err := s.signSession(sess)
	if err != nil {
		return "", nil, err
	}

	return token, sanitizeUser(user), nil
}

func (s *userService) CurrentUser(ctx context.Context, token string) (int64, error) {
	sid, userID, err := s.parseToken(token)
	if err != nil {
		return 0, ErrUnauthenticated
	}

	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUnauthenticated
		}
		return 0, err
	}

	if sess.UserID != userID {
		return 0, ErrUnauthenticated
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, sid)
		return 0, ErrUnauthenticated
	}

	return sess.UserID, nil
}

// Logout removes the backing session. Tokens that no longer resolve to a
// session (already logged out, expired, garbage) are treated as ended.
func (s *userService) Logout(ctx context.Context, token string) error {
	sid, _, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, sid)
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if err := validation.Validate(newPassword,
		validation.Required.Error("new password is required"),
	); err != nil {
		return fmt.Errorf("%w: new password: %v", ErrValidation, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrIncorrectOldPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.UpdatePasswordHash(ctx, userID, string(hash))
}

func (s *userService) signSession(sess *domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   fmt.Sprintf("%d", sess.UserID),
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (s *userService) parseToken(token string) (sessionID string, userID int64, err error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid || claims.ID == "" {
		return "", 0, errors.New("session token is not valid")
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse token subject: %w", err)
	}

	return claims.ID, uid, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
