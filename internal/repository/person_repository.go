package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/persons-api/internal/model"
)

const personColumns = "id, last_name, first_name, middle_name, full_name, photo, email, " +
	"registration_address_id, actual_address_id, sex, birthday, description, created_at, updated_at"

// PersonRepo encapsulates all database queries related to persons.  Reads
// also load the linked addresses so callers receive the nested shape the
// API returns.
type PersonRepo struct {
	db        DBTX
	addresses *AddressRepo
}

// NewPersonRepo constructs a PersonRepo on a pool or transaction.
func NewPersonRepo(db DBTX) *PersonRepo {
	return &PersonRepo{db: db, addresses: NewAddressRepo(db)}
}

// Create inserts a person.  full_name is recomputed from the name parts
// before the write; ID is populated on success.
func (r *PersonRepo) Create(ctx context.Context, p *model.Person) error {
	p.RefreshFullName()
	const q = `INSERT INTO persons (last_name, first_name, middle_name, full_name, photo, email,
		registration_address_id, actual_address_id, sex, birthday, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, r.writeArgs(p)...)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a person with its addresses or returns ErrPersonNotFound.
func (r *PersonRepo) GetByID(ctx context.Context, id uint64) (*model.Person, error) {
	p, err := r.get(ctx, "SELECT "+personColumns+" FROM persons WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := r.attachAddresses(ctx, []*model.Person{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// GetForUpdate fetches and row-locks a person inside the current
// transaction.  Addresses are not loaded.
func (r *PersonRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Person, error) {
	return r.get(ctx, "SELECT "+personColumns+" FROM persons WHERE id = ? FOR UPDATE", id)
}

// Update writes every column of p, recomputing full_name first.
func (r *PersonRepo) Update(ctx context.Context, p *model.Person) error {
	p.RefreshFullName()
	const q = `UPDATE persons SET last_name = ?, first_name = ?, middle_name = ?, full_name = ?, photo = ?,
		email = ?, registration_address_id = ?, actual_address_id = ?, sex = ?, birthday = ?, description = ?
		WHERE id = ?`
	args := append(r.writeArgs(p), p.ID)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// 0 rows also means "nothing changed" on MySQL; confirm existence.
		var one int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM persons WHERE id = ?", p.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPersonNotFound
		}
		return err
	}
	return nil
}

// Delete removes the person row only; linked addresses are the caller's
// responsibility because the foreign keys point from persons to addresses.
func (r *PersonRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPersonNotFound
	}
	return nil
}

// List returns persons newest first with their addresses.
func (r *PersonRepo) List(ctx context.Context, limit, offset int) ([]model.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+personColumns+" FROM persons ORDER BY id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	var ptrs []*model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.attachAddresses(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.Person, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, *p)
	}
	return out, nil
}

func (r *PersonRepo) get(ctx context.Context, q string, id uint64) (*model.Person, error) {
	p, err := scanPerson(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPersonNotFound
	}
	return p, err
}

// attachAddresses loads every linked address of the given persons with a
// single query.
func (r *PersonRepo) attachAddresses(ctx context.Context, persons []*model.Person) error {
	seen := map[uint64]bool{}
	var ids []uint64
	for _, p := range persons {
		for _, id := range p.AddressIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	byID, err := r.addresses.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("load person addresses: %w", err)
	}
	for _, p := range persons {
		if p.RegistrationAddressID != nil {
			p.RegistrationAddress = byID[*p.RegistrationAddressID]
		}
		if p.ActualAddressID != nil {
			p.ActualAddress = byID[*p.ActualAddressID]
		}
	}
	return nil
}

func (r *PersonRepo) writeArgs(p *model.Person) []any {
	return []any{
		nullable(p.LastName), p.FirstName, nullable(p.MiddleName), p.FullName,
		nullable(p.Photo), nullable(p.Email),
		nullable(p.RegistrationAddressID), nullable(p.ActualAddressID),
		nullable(p.Sex), nullable(p.Birthday), nullable(p.Description),
	}
}

func scanPerson(s rowScanner) (*model.Person, error) {
	var p model.Person
	var last, middle, photo, email, desc sql.NullString
	var regID, actID, sex sql.NullInt64
	var birthday sql.NullTime
	if err := s.Scan(&p.ID, &last, &p.FirstName, &middle, &p.FullName, &photo, &email,
		&regID, &actID, &sex, &birthday, &desc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.LastName = strPtr(last)
	p.MiddleName = strPtr(middle)
	p.Photo = strPtr(photo)
	p.Email = strPtr(email)
	p.RegistrationAddressID = idPtr(regID)
	p.ActualAddressID = idPtr(actID)
	p.Sex = intPtr(sex)
	p.Birthday = datePtr(birthday)
	p.Description = strPtr(desc)
	return &p, nil
}
