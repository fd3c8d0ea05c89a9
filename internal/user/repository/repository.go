package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"

	"github.com/squadboard/backend/internal/common/db"
	commonerrors "github.com/squadboard/backend/internal/common/errors"
	"github.com/squadboard/backend/internal/user/domain"
)

const usersTable = "users"

type Repository interface {
	Create(ctx context.Context, username, passwordHash string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// Querier is the part of *pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type PgRepository struct {
	db Querier
}

func NewPgRepository(db Querier) *PgRepository {
	return &PgRepository{db: db}
}

// Create inserts a user and lets the database assign the id. The unique
// constraint on username is the authority on duplicates.
func (r *PgRepository) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	start := time.Now()
	user := domain.User{Username: username, PasswordHash: passwordHash}
	var id string

	err := r.db.QueryRow(
		ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		username,
		passwordHash,
	).Scan(&id, &user.CreatedAt, &user.UpdatedAt)
	if err != nil && db.IsUniqueViolation(err) {
		db.HandleQueryError(nil, nil, "create_user", usersTable, start)
		return domain.User{}, commonerrors.ErrUsernameAlreadyExists.WithCause(err)
	}
	if err := db.HandleQueryError(err, nil, "create_user", usersTable, start); err != nil {
		return domain.User{}, err
	}

	user.ID = domain.ID(id)
	return user, nil
}

func (r *PgRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	start := time.Now()
	row := r.db.QueryRow(
		ctx,
		`SELECT id, username, password, created_at, updated_at FROM users WHERE username = $1`,
		username,
	)

	user, err := scanUser(row)
	if err := db.HandleQueryError(err, commonerrors.ErrUserNotFound, "find_user_by_username", usersTable, start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	start := time.Now()
	row := r.db.QueryRow(
		ctx,
		`SELECT id, username, password, created_at, updated_at FROM users WHERE id = $1`,
		string(id),
	)

	user, err := scanUser(row)
	if err := db.HandleQueryError(err, commonerrors.ErrUserNotFound, "find_user_by_id", usersTable, start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	start := time.Now()
	var exists bool
	err := r.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err := db.HandleQueryError(err, nil, "exists_user_by_username", usersTable, start); err != nil {
		return false, err
	}
	return exists, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		id   string
	)
	err := row.Scan(&id, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	user.ID = domain.ID(id)
	return user, err
}
