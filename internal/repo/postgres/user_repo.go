package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/flexora/jobboard-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// UserRepository is the durable account directory. Find methods return
// (nil, nil) when no account matches.
type UserRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByUserID(ctx context.Context, userID string) (*domain.Account, error)
	Update(ctx context.Context, userID string, req *UpdateAccountRequest) (*domain.Account, error)
}

type UpdateAccountRequest struct {
	Name     *string          `json:"name,omitempty"`
	Phone    *string          `json:"phone,omitempty"`
	Location *domain.Location `json:"location,omitempty"`
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const accountCols = `id, user_id, email, password_hash, name, role, phone, is_verified,
	location, skills, experience, availability, business_details, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.Phone, &a.IsVerified,
		&a.Location, &a.Skills, &a.Experience, &a.Availability, &a.BusinessDetails, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a verified account. The unique index on email is the final
// arbiter for concurrent promotions of the same staged registration; a
// violation surfaces as domain.ErrEmailExists rather than a raw pg error.
func (r *userRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	const q = `
		INSERT INTO users (user_id, email, password_hash, name, role, phone, is_verified,
			location, skills, experience, availability, business_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanAccount(r.pool.QueryRow(ctx, q,
		account.UserID, account.Email, account.PasswordHash, account.Name, account.Role,
		account.Phone, account.IsVerified, account.Location, account.Skills,
		account.Experience, account.Availability, account.BusinessDetails,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}

	return created, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *userRepository) FindByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM users WHERE user_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *userRepository) Update(ctx context.Context, userID string, req *UpdateAccountRequest) (*domain.Account, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			location = COALESCE($4, location),
			updated_at = now()
		WHERE user_id = $1
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, userID, req.Name, req.Phone, req.Location))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}
