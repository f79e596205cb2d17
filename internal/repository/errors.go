// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// service and handlers to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrPersonNotFound is returned when a person row does not exist.
var ErrPersonNotFound = errors.New("person not found")

// ErrAddressNotFound is returned when an address row does not exist.
var ErrAddressNotFound = errors.New("address not found")

// ErrUserNotFound is returned when a user row does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when inserting or updating a user would
// violate the unique email index.  Handlers translate it into a field
// error on "email".
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
