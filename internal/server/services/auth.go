// Package services contains server-side business logic. This file implements
// AuthService, which issues one-time codes to registered devices, exchanges
// them for session tokens and revokes sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/auth"
	"github.com/dmitrijs2005/devicegate/internal/server/config"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/notify"
	"github.com/dmitrijs2005/devicegate/internal/server/pending"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
)

// AuthService provides the authentication operations:
// - RequestCode: issue a code for a registered (email, device) pair
// - VerifyCode: consume the code and open a session
// - Logout: close a session
type AuthService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	pending        *pending.Store
	notifier       notify.Notifier
	hasher         *auth.CodeHasher
	logger         logging.Logger
	codeTTL        time.Duration
	resendInterval time.Duration
	sessionTTL     time.Duration

	now           func() time.Time
	generateCode  func() (string, error)
	generateToken func(code, deviceID string) (string, error)
}

// NewAuthService wires the service. store must be shared by every caller
// that issues or verifies codes, so a process normally builds exactly one.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, store *pending.Store,
	n notify.Notifier, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:             db,
		repomanager:    m,
		pending:        store,
		notifier:       n,
		hasher:         auth.NewCodeHasher(cfg.SecretKey),
		logger:         logger.With("module", "auth"),
		codeTTL:        cfg.CodeTTL,
		resendInterval: cfg.CodeResendInterval,
		sessionTTL:     cfg.SessionTTL,
		now:            time.Now,
		generateCode:   auth.GenerateCode,
		generateToken:  auth.GenerateSessionToken,
	}
}

// RequestCode issues a fresh code for (email, deviceID) and hands it to the
// notifier. The code is returned for callers that deliver it themselves;
// transports must not echo it back to the client.
//
// Nothing is stored unless the pair is registered.
func (s *AuthService) RequestCode(ctx context.Context, email, deviceID string) (string, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	deviceID, err = auth.NormalizeDeviceID(deviceID)
	if err != nil {
		return "", err
	}

	user, err := s.repomanager.Users(s.db).Lookup(ctx, email, deviceID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "code requested for unknown identity", "device_id", deviceID)
			return "", common.ErrorUnknownIdentity
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.generateCode()
	if err != nil {
		return "", fmt.Errorf("%w: generate code: %v", common.ErrorInternal, err)
	}

	hash := s.hasher.Hash(code)
	if err := s.pending.PutIfIdle(deviceID, hash, s.now(), s.codeTTL, s.resendInterval); err != nil {
		return "", err
	}

	if err := s.notifier.SendCode(ctx, user, code); err != nil {
		s.pending.DeleteIf(deviceID, hash)
		return "", fmt.Errorf("send code: %w", err)
	}

	return code, nil
}

// VerifyCode consumes the pending code for deviceID and opens a session.
// A wrong code keeps the pending entry so the caller can retry, up to the
// configured number of attempts.
func (s *AuthService) VerifyCode(ctx context.Context, deviceID, code string) (string, error) {
	deviceID, err := auth.NormalizeDeviceID(deviceID)
	if err != nil {
		return "", err
	}
	if err := auth.ValidateCode(code); err != nil {
		return "", err
	}

	user, err := s.repomanager.Users(s.db).LookupByDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
		return "", fmt.Errorf("lookup device: %w", err)
	}

	codeHash := s.hasher.Hash(code)
	now := s.now()
	if err := s.pending.Verify(deviceID, codeHash, now); err != nil {
		s.logger.Info(ctx, "code verification failed", "device_id", deviceID, "error", err)
		return "", err
	}

	token, err := s.generateToken(code, deviceID)
	if err != nil {
		return "", fmt.Errorf("%w: generate token: %v", common.ErrorInternal, err)
	}

	session := &models.Session{
		Token:     token,
		CodeHash:  codeHash,
		DeviceID:  deviceID,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	s.logger.Info(ctx, "session opened", "device_id", deviceID, "user_id", user.ID)
	return token, nil
}

// Logout deletes the session identified by token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := auth.ValidateTokenFormat(token); err != nil {
		return err
	}

	repo := s.repomanager.Sessions(s.db)
	session, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorSessionNotFound
		}
		return fmt.Errorf("find session: %w", err)
	}
	if err := repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info(ctx, "session closed", "user_id", session.UserID)
	return nil
}

// Sweep drops expired pending codes and sessions and reports how many of
// each went away.
func (s *AuthService) Sweep(ctx context.Context) (codes int, sessions int64, err error) {
	now := s.now()
	codes = s.pending.Sweep(now)
	sessions, err = s.repomanager.Sessions(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return codes, 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return codes, sessions, nil
}
