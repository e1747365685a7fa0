package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"hrflow/internal/domain/auth"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/querier"
)

// Seed creates the first superadmin so the system can be bootstrapped.
// An existing employee with the same code is left untouched.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	code := strings.TrimSpace(cfg.SeedAdminCode)
	if code == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}

	var existing string
	err := db.QueryRow(ctx, "SELECT code FROM employees WHERE code = $1", code).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(cfg.SeedAdminName)
	if name == "" {
		name = code
	}
	if _, err := db.Exec(ctx, `
    INSERT INTO employees (code, name, email, role, status, password_hash)
    VALUES ($1,$2,NULLIF($3,''),$4,'active',$5)
    ON CONFLICT (code) DO NOTHING
  `, code, name, strings.TrimSpace(cfg.SeedAdminEmail), string(auth.RoleSuperAdmin), hash); err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("seeded superadmin")
	return nil
}
