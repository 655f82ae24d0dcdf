// Package session issues and rotates login sessions. Login is the downstream
// consumer of "account is active": an unverified account cannot sign in.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/pkg/id"
	pkgtoken "github.com/saas-starter-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Disable(ctx context.Context, sessionID string) error
}

type jwtSigner interface {
	Sign(accountID, role, sessionID string) (string, error)
}

type service struct {
	accounts        accountStore
	sessions        sessionStore
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	AccountRepo     accountStore
	SessionRepo     sessionStore
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accounts:        deps.AccountRepo,
		sessions:        deps.SessionRepo,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		// Unknown address and wrong password look identical to the caller.
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !a.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if !a.Verified {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrUnauthorized)
	}

	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		AccountID:        a.AccountID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(a.AccountID, a.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Account = a
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if !sess.Enable || sess.RefreshExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	a, err := s.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}

	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(a.AccountID, a.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.RefreshToken = newToken
	sess.RefreshExpiresAt = newExpiry
	sess.Account = a
	return &LoginResult{Bearer: bearer, RefreshToken: newToken, Session: sess}, nil
}

// GetCurrent returns the caller's session with its account attached. A
// session disabled since the JWT was minted (logout elsewhere, admin action)
// is refused, so a live token cannot outlast its session.
func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session disabled: %w", domain.ErrUnauthorized)
	}
	a, err := s.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	sess.Account = a
	return sess, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Disable(ctx, sessionID)
}
