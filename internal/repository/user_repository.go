package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/token-auth-service/internal/domain"
)

// UserRepository defines access to accounts that may use the login form.
// Lookups of unknown logins return pgx.ErrNoRows.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (login, password_hash, roles, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Login,
		user.PasswordHash,
		user.Roles,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	const query = `
        SELECT id, login, password_hash, roles, status, created_at, updated_at
        FROM users WHERE login=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, login).Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Roles,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// staticUserRepository keeps accounts in memory. It backs the configured
// bootstrap account when no database is available.
type staticUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewStaticUserRepository returns an in-memory implementation seeded with users.
func NewStaticUserRepository(users ...domain.User) UserRepository {
	r := &staticUserRepository{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		r.users[strings.ToLower(u.Login)] = u
	}
	return r
}

func (r *staticUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	r.users[strings.ToLower(user.Login)] = *user
	return nil
}

func (r *staticUserRepository) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[strings.ToLower(login)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}
