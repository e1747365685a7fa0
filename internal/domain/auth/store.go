package auth

import (
	"context"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Credential(ctx context.Context, code string) (Credential, error) {
	var out Credential
	var role, status string
	err := s.DB.QueryRow(ctx, `
    SELECT code, name, role, status, COALESCE(password_hash, ''), mfa_enabled, mfa_secret_enc
    FROM employees
    WHERE code = $1
  `, code).Scan(&out.EmployeeCode, &out.Name, &role, &status, &out.PasswordHash, &out.MFAEnabled, &out.MFASecretEnc)
	if err != nil {
		return Credential{}, err
	}
	out.Role = Role(role)
	out.Active = status != "deactivated"
	return out, nil
}

func (s *Store) SetMFASecret(ctx context.Context, code string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE employees SET mfa_secret_enc = $1, mfa_enabled = false WHERE code = $2", secretEnc, code)
	if err != nil {
		return apperr.Store("set mfa secret", err)
	}
	return nil
}

func (s *Store) SetMFAEnabled(ctx context.Context, code string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE employees SET mfa_enabled = $1 WHERE code = $2", enabled, code)
	if err != nil {
		return apperr.Store("set mfa enabled", err)
	}
	return nil
}
