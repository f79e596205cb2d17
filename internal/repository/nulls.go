package repository

import (
	"database/sql"
	"strings"

	"github.com/iliyamo/persons-api/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func idPtr(ni sql.NullInt64) *uint64 {
	if !ni.Valid {
		return nil
	}
	id := uint64(ni.Int64)
	return &id
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func datePtr(nt sql.NullTime) *model.Date {
	if !nt.Valid {
		return nil
	}
	d := model.NewDate(nt.Time)
	return &d
}

// nullable converts pointer fields into driver values; nil becomes NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
