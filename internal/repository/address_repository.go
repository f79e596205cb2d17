package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/persons-api/internal/model"
)

const addressColumns = "id, country, city, address_line, address_line_extra, state, zipcode, area, dadata, created_at, updated_at"

// AddressRepo encapsulates all database queries related to addresses.
type AddressRepo struct {
	db DBTX
}

// NewAddressRepo constructs an AddressRepo on a pool or transaction.
func NewAddressRepo(db DBTX) *AddressRepo { return &AddressRepo{db: db} }

// Create inserts a new address.  On success ID and the timestamps are
// populated from the database.
func (r *AddressRepo) Create(ctx context.Context, a *model.Address) error {
	if a.Dadata == nil {
		a.Dadata = model.JSONMap{}
	}
	const q = `INSERT INTO addresses (country, city, address_line, address_line_extra, state, zipcode, area, dadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		a.Country, a.City, nullable(a.AddressLine), nullable(a.AddressLineExtra),
		nullable(a.State), nullable(a.Zipcode), nullable(a.Area), a.Dadata)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return r.reloadTimestamps(ctx, a)
}

// GetByID fetches an address or returns ErrAddressNotFound.
func (r *AddressRepo) GetByID(ctx context.Context, id uint64) (*model.Address, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+addressColumns+" FROM addresses WHERE id = ?", id)
	a, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	return a, err
}

// GetMany fetches the addresses with the given ids, keyed by id.  Missing
// ids are simply absent from the result.
func (r *AddressRepo) GetMany(ctx context.Context, ids []uint64) (map[uint64]*model.Address, error) {
	out := make(map[uint64]*model.Address, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// Update writes every column of a.  It returns ErrAddressNotFound when the
// row does not exist.
func (r *AddressRepo) Update(ctx context.Context, a *model.Address) error {
	if a.Dadata == nil {
		a.Dadata = model.JSONMap{}
	}
	const q = `UPDATE addresses SET country = ?, city = ?, address_line = ?, address_line_extra = ?,
		state = ?, zipcode = ?, area = ?, dadata = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q,
		a.Country, a.City, nullable(a.AddressLine), nullable(a.AddressLineExtra),
		nullable(a.State), nullable(a.Zipcode), nullable(a.Area), a.Dadata, a.ID); err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	// MySQL reports 0 affected rows for a no-op update, so existence is
	// checked through the reload.
	return r.reloadTimestamps(ctx, a)
}

// Delete removes an address.  Persons linking to it are unlinked by the
// ON DELETE SET NULL foreign keys.
func (r *AddressRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM addresses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAddressNotFound
	}
	return nil
}

// List returns addresses newest first.
func (r *AddressRepo) List(ctx context.Context, limit, offset int) ([]model.Address, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+addressColumns+" FROM addresses ORDER BY id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// CountRefs counts how many person slots reference the address.  A person
// linking it from both slots counts twice.
func (r *AddressRepo) CountRefs(ctx context.Context, addressID, excludePersonID uint64) (int, error) {
	const q = `SELECT
		COALESCE(SUM(CASE WHEN registration_address_id = ? THEN 1 ELSE 0 END), 0) +
		COALESCE(SUM(CASE WHEN actual_address_id = ? THEN 1 ELSE 0 END), 0)
		FROM persons
		WHERE (registration_address_id = ? OR actual_address_id = ?) AND id <> ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, addressID, addressID, addressID, addressID, excludePersonID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count address refs: %w", err)
	}
	return n, nil
}

func (r *AddressRepo) reloadTimestamps(ctx context.Context, a *model.Address) error {
	err := r.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM addresses WHERE id = ?", a.ID).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAddressNotFound
	}
	return err
}

func scanAddress(s rowScanner) (*model.Address, error) {
	var a model.Address
	var line, extra, state, zipcode, area sql.NullString
	if err := s.Scan(&a.ID, &a.Country, &a.City, &line, &extra, &state, &zipcode, &area,
		&a.Dadata, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.AddressLine = strPtr(line)
	a.AddressLineExtra = strPtr(extra)
	a.State = strPtr(state)
	a.Zipcode = strPtr(zipcode)
	a.Area = strPtr(area)
	return &a, nil
}
