package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/persons-api/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PersonStore is the persistence contract for persons.
type PersonStore interface {
	Create(ctx context.Context, p *model.Person) error
	GetByID(ctx context.Context, id uint64) (*model.Person, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Person, error)
	Update(ctx context.Context, p *model.Person) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, limit, offset int) ([]model.Person, error)
}

// AddressStore is the persistence contract for addresses.
type AddressStore interface {
	Create(ctx context.Context, a *model.Address) error
	GetByID(ctx context.Context, id uint64) (*model.Address, error)
	Update(ctx context.Context, a *model.Address) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, limit, offset int) ([]model.Address, error)
	// CountRefs counts person slots pointing at the address, ignoring the
	// person with id excludePersonID (0 ignores nobody).
	CountRefs(ctx context.Context, addressID, excludePersonID uint64) (int, error)
}

// Store groups the person and address repositories behind one unit of work.
type Store interface {
	Persons() PersonStore
	Addresses() AddressStore
	// InTx runs fn with a Store bound to a single transaction.  The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db *sql.DB
	q  DBTX
}

// NewSQLStore wraps a connection pool.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

func (s *SQLStore) Persons() PersonStore    { return NewPersonRepo(s.q) }
func (s *SQLStore) Addresses() AddressStore { return NewAddressRepo(s.q) }

// InTx begins a transaction, or joins the current one when s is already
// transaction-bound.
func (s *SQLStore) InTx(ctx context.Context, fn func(Store) error) (err error) {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = fn(&SQLStore{db: s.db, q: tx})
	return err
}
