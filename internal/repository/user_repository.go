package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/persons-api/internal/model"
)

const userColumns = "id, email, password_hash, first_name, last_name, is_active, is_staff, is_superuser, last_login, created_at, updated_at"

// UserRepo is the credential store: users_user rows with bcrypt hashes.
type UserRepo struct{ DB DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{DB: db} }

// Create inserts user and populates its ID.  The email is normalised and a
// unique-index violation is reported as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = model.NormalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users_user (email, password_hash, first_name, last_name, is_active, is_staff, is_superuser) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive, u.IsStaff, u.IsSuperuser)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, "SELECT "+userColumns+" FROM users_user WHERE email=? LIMIT 1", model.NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.get(ctx, "SELECT "+userColumns+" FROM users_user WHERE id=? LIMIT 1", id)
}

// Update writes the profile fields and password hash.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = model.NormalizeEmail(u.Email)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users_user SET email=?, password_hash=?, first_name=?, last_name=?, is_active=?, is_staff=? WHERE id=?",
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive, u.IsStaff, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// TouchLastLogin stamps a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users_user SET last_login=? WHERE id=?", at.UTC(), id)
	return err
}

// Delete removes a user.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users_user WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns users ordered by id.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users_user ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	var lastLogin sql.NullTime
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
