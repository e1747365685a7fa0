package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires an encryption key")
)

// Credential is the login view of an employee row.
type Credential struct {
	EmployeeCode string
	Name         string
	Role         Role
	Active       bool
	PasswordHash string
	MFAEnabled   bool
	MFASecretEnc []byte
}

type CredentialStore interface {
	Credential(ctx context.Context, code string) (Credential, error)
	SetMFASecret(ctx context.Context, code string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, code string, enabled bool) error
}

// SecretSealer protects TOTP seeds at rest.
type SecretSealer interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Service struct {
	Store    CredentialStore
	Sealer   SecretSealer
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

func NewService(store CredentialStore, sealer SecretSealer, secret string, ttl time.Duration, issuer string) *Service {
	return &Service{Store: store, Sealer: sealer, Secret: secret, TokenTTL: ttl, Issuer: issuer}
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserContext `json:"user"`
}

func (s *Service) Login(ctx context.Context, code, password, mfaCode string) (Session, error) {
	cred, err := s.Store.Credential(ctx, strings.TrimSpace(code))
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !cred.Active || cred.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := CheckPassword(cred.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	if cred.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return Session{}, ErrMFARequired
		}
		secret, err := s.openSecret(cred.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return Session{}, ErrMFAInvalid
		}
	}

	user := UserContext{EmployeeCode: cred.EmployeeCode, Name: cred.Name, Role: cred.Role}
	token, err := GenerateToken(s.Secret, Claims{EmployeeCode: user.EmployeeCode, Name: user.Name, Role: user.Role}, s.TokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: time.Now().Add(s.TokenTTL), User: user}, nil
}

// SetupMFA generates a fresh TOTP seed for the caller. The seed is stored
// disabled until EnableMFA confirms a code from the authenticator.
func (s *Service) SetupMFA(ctx context.Context, code string) (secret, url string, err error) {
	if s.Sealer == nil || !s.Sealer.Configured() {
		return "", "", ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: code,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", err
	}
	enc, err := s.Sealer.EncryptString(key.Secret())
	if err != nil {
		return "", "", err
	}
	if err := s.Store.SetMFASecret(ctx, code, enc); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (s *Service) EnableMFA(ctx context.Context, code, mfaCode string) error {
	cred, err := s.Store.Credential(ctx, code)
	if err != nil {
		return err
	}
	secret, err := s.openSecret(cred.MFASecretEnc)
	if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFAEnabled(ctx, code, true)
}

func (s *Service) openSecret(enc []byte) (string, error) {
	if s.Sealer == nil {
		return string(enc), nil
	}
	return s.Sealer.DecryptString(enc)
}
