package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/persons-api/internal/model"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func strp(s string) *string { return &s }
func idp(id uint64) *uint64 { return &id }

func cols(list string) []string {
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func TestAddressCreate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAddressRepo(db)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectExec(`INSERT INTO addresses`).
		WithArgs("US", "Reno", "1 Main St", nil, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(`SELECT created_at, updated_at FROM addresses WHERE id = \?`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	a := &model.Address{Country: "US", City: "Reno", AddressLine: strp("1 Main St")}
	require.NoError(t, repo.Create(context.Background(), a))

	assert.Equal(t, uint64(5), a.ID)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, model.JSONMap{}, a.Dadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressGetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAddressRepo(db)

	mock.ExpectQuery(`FROM addresses WHERE id = \?`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(cols(addressColumns)))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressDeleteNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAddressRepo(db)

	mock.ExpectExec(`DELETE FROM addresses WHERE id = \?`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3), ErrAddressNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressCountRefs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAddressRepo(db)

	mock.ExpectQuery(`FROM persons`).
		WithArgs(4, 4, 4, 4, 11).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	n, err := repo.CountRefs(context.Background(), 4, 11)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonGetByIDLoadsSharedAddressOnce(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPersonRepo(db)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`FROM persons WHERE id = \?`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols(personColumns)).
			AddRow(1, "Lee", "Ann", nil, "Lee Ann", nil, nil, 4, 4, nil, time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC), nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM addresses WHERE id IN (?)`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(cols(addressColumns)).
			AddRow(4, "US", "Reno", "1 Main St", nil, nil, nil, nil, []byte(`{"k":"v"}`), now, now))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Lee Ann", p.FullName)
	require.NotNil(t, p.Birthday)
	assert.Equal(t, "1990-04-01", p.Birthday.String())
	require.NotNil(t, p.RegistrationAddress)
	assert.Same(t, p.RegistrationAddress, p.ActualAddress)
	assert.Equal(t, "1 Main St", *p.RegistrationAddress.AddressLine)
	assert.Equal(t, model.JSONMap{"k": "v"}, p.RegistrationAddress.Dadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonCreateRecomputesFullName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPersonRepo(db)

	mock.ExpectExec(`INSERT INTO persons`).
		WithArgs("Lee", "Ann", nil, "Lee Ann", nil, nil, 4, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(12, 1))

	p := &model.Person{FirstName: "Ann", LastName: strp("Lee"), FullName: "forged", RegistrationAddressID: idp(4)}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, uint64(12), p.ID)
	assert.Equal(t, "Lee Ann", p.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonDeleteNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPersonRepo(db)

	mock.ExpectExec(`DELETE FROM persons WHERE id = \?`).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrPersonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonGetForUpdateLocks(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPersonRepo(db)

	mock.ExpectQuery(`FROM persons WHERE id = \? FOR UPDATE`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(cols(personColumns)))

	_, err := repo.GetForUpdate(context.Background(), 2)
	assert.ErrorIs(t, err, ErrPersonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxCommitsAndRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewSQLStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM persons`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx Store) error {
		return tx.Persons().Delete(context.Background(), 1)
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM persons`).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = store.InTx(context.Background(), func(tx Store) error {
		return tx.Persons().Delete(context.Background(), 2)
	})
	assert.ErrorIs(t, err, ErrPersonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxJoinsOuterTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewSQLStore(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx Store) error {
		return tx.InTx(context.Background(), func(Store) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users_user`).
		WithArgs("ann@example.com", "hash", "", "", true, false, false).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.User{Email: " Ann@Example.com ", PasswordHash: "hash", IsActive: true})
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNormalises(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM users_user WHERE email=\?`).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(cols(userColumns)).
			AddRow(1, "ann@example.com", "hash", "Ann", "Lee", true, false, false, nil, now, now))

	u, err := repo.GetByEmail(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Nil(t, u.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`FROM users_user WHERE id=\?`).
		WithArgs(5).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 5)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}
