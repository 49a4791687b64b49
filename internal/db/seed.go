package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"staffdir/internal/config"
)

// Seed makes sure a Director-level root actor exists so the
// authorization policy has someone who can create Leaders and
// Directors on a fresh database. Idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}

	if err := ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	return ensureRootEmployee(ctx, pool, cfg.SeedAdminEmail)
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO users (first_name, last_name, email, password_hash)
    VALUES ('System', 'Admin', $1, $2)
  `, email, string(hash))
	return err
}

func ensureRootEmployee(ctx context.Context, pool *pgxpool.Pool, email string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := pool.Exec(ctx, `
    INSERT INTO employees (first_name, last_name, email, doc_number, age, position,
      department, salary, hire_date, permission_level)
    VALUES ('System', 'Admin', $1, 'SEED-0001', 30, 'Administrator', '', 0, now(), 3)
    ON CONFLICT (doc_number) DO NOTHING
  `, email)
	return err
}
