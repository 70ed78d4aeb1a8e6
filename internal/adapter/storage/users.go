package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.UserStorage = UserRepository{}

const userColumns = `
	id, external_id, email, first_name, last_name, image_url, phone, role,
	created_at, updated_at`

type UserRepository struct {
	sqldb sqldb
}

func NewUserRepository(sqldb sqldb) UserRepository {
	return UserRepository{sqldb}
}

// UpsertUser inserts or refreshes the profile keyed by external id.
// An existing row keeps its id and role.
func (r UserRepository) UpsertUser(ctx context.Context, u *domain.User) error {
	const op = "UserRepository.UpsertUser"

	query := `
		INSERT INTO users (
			id, external_id, email, first_name, last_name, image_url, phone, role
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			image_url = EXCLUDED.image_url,
			phone = EXCLUDED.phone,
			updated_at = now()
		RETURNING id, role, created_at, updated_at;`

	err := r.sqldb.QueryRowContext(ctx, query,
		u.ID, u.ExternalID, u.Email, u.FirstName, u.LastName,
		u.ImageURL, u.Phone, u.Role,
	).Scan(&u.ID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r UserRepository) DeleteUserByExternalID(
	ctx context.Context, externalID string,
) error {
	const op = "UserRepository.DeleteUserByExternalID"

	res, err := r.sqldb.ExecContext(ctx,
		`DELETE FROM users WHERE external_id = $1;`, externalID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrUserNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r UserRepository) UserByExternalID(
	ctx context.Context, externalID string,
) (domain.User, error) {
	const op = "UserRepository.UserByExternalID"

	query := `SELECT` + userColumns + ` FROM users WHERE external_id = $1;`

	u, err := scanUser(r.sqldb.QueryRowContext(ctx, query, externalID))
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r UserRepository) UserByID(
	ctx context.Context, id uuid.UUID,
) (domain.User, error) {
	const op = "UserRepository.UserByID"

	query := `SELECT` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(r.sqldb.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r UserRepository) ListUsers(
	ctx context.Context, page domain.Page,
) ([]domain.User, error) {
	const op = "UserRepository.ListUsers"

	query := `SELECT` + userColumns + `
		FROM users ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2;`

	rows, err := r.sqldb.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var us []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		us = append(us, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return us, nil
}

func (r UserRepository) SetUserRole(
	ctx context.Context, id uuid.UUID, role domain.Role,
) error {
	const op = "UserRepository.SetUserRole"

	res, err := r.sqldb.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1;`, id, role,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrUserNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.LastName,
		&u.ImageURL, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}
