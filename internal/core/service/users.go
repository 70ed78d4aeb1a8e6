package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.UserSyncer = (*UserService)(nil)
var _ port.UserManager = (*UserService)(nil)

type UserService struct {
	storage port.UserStorage
}

func NewUserService(storage port.UserStorage) UserService {
	return UserService{storage}
}

// SyncUser mirrors the auth provider's view of a user. The local role is
// never overwritten by a sync.
func (s UserService) SyncUser(
	ctx context.Context, u domain.User,
) (domain.User, error) {
	const op = "UserService.SyncUser"
	log := slog.With("op", op)

	u.ExternalID = strings.TrimSpace(u.ExternalID)
	if u.ExternalID == "" {
		return domain.User{}, fmt.Errorf(
			"%s: %w: empty external id", op, domain.ErrInvalidInput,
		)
	}
	u.Email = normalizeEmail(u.Email)

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if !u.Role.Valid() {
		u.Role = domain.RoleUser
	}

	if err := s.storage.UpsertUser(ctx, &u); err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user synced", "externalID", u.ExternalID)
	return u, nil
}

func (s UserService) DeleteUser(ctx context.Context, externalID string) error {
	const op = "UserService.DeleteUser"
	log := slog.With("op", op)

	if err := s.storage.DeleteUserByExternalID(ctx, externalID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user deleted", "externalID", externalID)
	return nil
}

func (s UserService) UserByExternalID(
	ctx context.Context, externalID string,
) (domain.User, error) {
	const op = "UserService.UserByExternalID"

	u, err := s.storage.UserByExternalID(ctx, externalID)
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s UserService) ListUsers(
	ctx context.Context, page domain.Page,
) ([]domain.User, error) {
	const op = "UserService.ListUsers"

	us, err := s.storage.ListUsers(ctx, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return us, nil
}

func (s UserService) SetRole(
	ctx context.Context, id uuid.UUID, role domain.Role,
) (domain.User, error) {
	const op = "UserService.SetRole"

	if !role.Valid() {
		return domain.User{}, fmt.Errorf(
			"%s: %w: unknown role %q", op, domain.ErrInvalidInput, role,
		)
	}

	if err := s.storage.SetUserRole(ctx, id, role); err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
