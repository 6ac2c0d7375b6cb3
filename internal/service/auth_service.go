package service

import (
	"context"
	"strings"
	"time"

	"github.com/docport/docport/internal/model"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/pkg/jwt"
	"github.com/docport/docport/internal/pkg/otp"
	"github.com/docport/docport/internal/pkg/password"
	"github.com/docport/docport/internal/pkg/timeutil"
	"github.com/docport/docport/internal/repo"
)

const (
	verificationPurposeLogin    = "login"
	verificationExpireMinutes   = 10
	verificationCooldownSeconds = 60
)

// AuthService implements passwordless login: a 6-digit code is emailed, and
// verifying it yields a session JWT. Unknown emails become users on first
// successful verification.
type AuthService struct {
	users     *repo.UserRepo
	codes     *repo.EmailVerificationRepo
	sender    EmailSender
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, codes *repo.EmailVerificationRepo, sender EmailSender, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, codes: codes, sender: sender, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) SendLoginCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return appErr.ErrInvalid
	}
	if err := s.ensureCooldown(ctx, email, verificationPurposeLogin); err != nil {
		return err
	}
	code := otp.New(otp.DefaultLength)
	hash, err := password.Hash(code)
	if err != nil {
		return err
	}
	now := timeutil.NowUnix()
	item := &model.EmailVerificationCode{
		ID:        newID(),
		Email:     email,
		Purpose:   verificationPurposeLogin,
		CodeHash:  hash,
		Used:      0,
		Ctime:     now,
		ExpiresAt: now + int64(verificationExpireMinutes*60),
	}
	if err := s.codes.Create(ctx, item); err != nil {
		return err
	}
	body, err := renderLoginEmail(code, verificationExpireMinutes)
	if err != nil {
		return err
	}
	return s.sender.Send(email, "Your login code", body)
}

func (s *AuthService) VerifyLoginCode(ctx context.Context, email, code string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	code = strings.TrimSpace(code)
	if email == "" || !otp.IsCode(code, otp.DefaultLength) {
		return nil, "", appErr.ErrInvalid
	}
	item, err := s.codes.LatestByEmail(ctx, email, verificationPurposeLogin)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	now := timeutil.NowUnix()
	if item.Used != 0 || item.ExpiresAt <= now {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Compare(item.CodeHash, code); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := s.codes.MarkUsed(ctx, item.ID); err != nil {
		return nil, "", err
	}
	user, err := s.ensureUser(ctx, email, now)
	if err != nil {
		return nil, "", err
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) ensureUser(ctx context.Context, email string, now int64) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	user = &model.User{
		ID:    newID(),
		Email: email,
		State: 1,
		Ctime: now,
		Mtime: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if appErr.IsConflict(err) {
			return s.users.GetByEmail(ctx, email)
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ensureCooldown(ctx context.Context, email, purpose string) error {
	item, err := s.codes.LatestByEmail(ctx, email, purpose)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if item.Ctime+verificationCooldownSeconds > timeutil.NowUnix() {
		return appErr.ErrTooMany
	}
	return nil
}
