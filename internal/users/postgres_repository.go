package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, profile_image_url, phone, bio, role, password_hash, created_at, updated_at`

// Find looks up a user by their subject id.
func (r *PostgresRepository) Find(ctx context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// Upsert inserts the user or refreshes claim-sourced profile fields.
// The role column is deliberately absent from the conflict update so a
// remote identity provider can never change a stored role.
func (r *PostgresRepository) Upsert(ctx context.Context, user User) (User, error) {
	const query = `
		INSERT INTO users (id, email, first_name, last_name, profile_image_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    profile_image_url = EXCLUDED.profile_image_url,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns + `
	`

	var row userRow
	err := r.db.GetContext(ctx, &row, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ProfileImageURL,
		user.Role,
		time.Now(),
	)
	if err != nil {
		return User{}, err
	}

	return *row.toUser(), nil
}

// UpdateContact sets the self-service contact fields.
func (r *PostgresRepository) UpdateContact(ctx context.Context, id, phone, bio string) (*User, error) {
	const query = `
		UPDATE users
		SET phone = $2, bio = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns + `
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id, phone, bio, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// List returns all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at
	`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make([]User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toUser())
	}
	return out, nil
}

// userRow is a database row representation of User.
type userRow struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	ProfileImageURL string    `db:"profile_image_url"`
	Phone           string    `db:"phone"`
	Bio             string    `db:"bio"`
	Role            string    `db:"role"`
	PasswordHash    string    `db:"password_hash"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r *userRow) toUser() *User {
	role, ok := ParseRole(r.Role)
	if !ok {
		role = DefaultRole
	}
	return &User{
		ID:              r.ID,
		Email:           r.Email,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		ProfileImageURL: r.ProfileImageURL,
		Phone:           r.Phone,
		Bio:             r.Bio,
		Role:            role,
		PasswordHash:    r.PasswordHash,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
