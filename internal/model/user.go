package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// UnusablePasswordPrefix marks a password hash that can never match.  Users
// created without a password carry such a hash and cannot log in.
const UnusablePasswordPrefix = "!"

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// MsgPasswordTooLong is reported for passwords bcrypt would reject.
const MsgPasswordTooLong = "Ensure this field has no more than 72 bytes."

// User represents an application user record as stored in the
// `users_user` table.  Only the profile fields are serialised; the hash,
// superuser flag and bookkeeping timestamps never leave the server.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased login name.
//	PasswordHash – bcrypt hash or an unusable marker.
//	IsStaff      – staff flag shown to the frontend.
//	IsActive     – inactive accounts cannot authenticate.
//	LastLogin    – stamped on every successful login.
type User struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"-"`
	LastLogin    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

// HasUsablePassword reports whether the stored hash can ever verify.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, UnusablePasswordPrefix)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// UserPayload is the body of the users CRUD endpoints.  Password is write
// only: it is hashed by the handler and never echoed back.
type UserPayload struct {
	Email     Optional[string] `json:"email"`
	FirstName Optional[string] `json:"first_name"`
	LastName  Optional[string] `json:"last_name"`
	IsActive  Optional[bool]   `json:"is_active"`
	IsStaff   Optional[bool]   `json:"is_staff"`
	Password  Optional[string] `json:"password"`
}

// Validate checks the payload; partial is true for PATCH.
func (p UserPayload) Validate(partial bool) error {
	errs := validation.Errors{}
	switch {
	case !p.Email.Set:
		if !partial {
			errs["email"] = errors.New(MsgRequired)
		}
	case p.Email.Null:
		errs["email"] = errors.New(MsgNull)
	default:
		errs["email"] = validation.Validate(NormalizeEmail(p.Email.Value),
			validation.Required.Error(MsgBlank),
			validation.Length(0, 254),
			is.Email.Error(MsgInvalidEmail),
		)
	}
	for key, opt := range map[string]Optional[string]{"first_name": p.FirstName, "last_name": p.LastName} {
		if opt.Set && opt.Null {
			errs[key] = errors.New(MsgNull)
			continue
		}
		errs[key] = validation.Validate(opt.Value, validation.Length(0, 150))
	}
	if p.IsActive.Set && p.IsActive.Null {
		errs["is_active"] = errors.New(MsgNull)
	}
	if p.IsStaff.Set && p.IsStaff.Null {
		errs["is_staff"] = errors.New(MsgNull)
	}
	switch {
	case p.Password.Set && p.Password.Null:
		errs["password"] = errors.New(MsgNull)
	case p.Password.Set && p.Password.Value == "":
		errs["password"] = errors.New(MsgBlank)
	case len(p.Password.Value) > MaxPasswordBytes:
		errs["password"] = errors.New(MsgPasswordTooLong)
	}
	return errs.Filter()
}

// Apply copies supplied profile fields onto u.  The password is handled by
// the caller because it needs hashing.
func (p UserPayload) Apply(u *User) {
	if p.Email.Present() {
		u.Email = NormalizeEmail(p.Email.Value)
	}
	if p.FirstName.Present() {
		u.FirstName = p.FirstName.Value
	}
	if p.LastName.Present() {
		u.LastName = p.LastName.Value
	}
	if p.IsActive.Present() {
		u.IsActive = p.IsActive.Value
	}
	if p.IsStaff.Present() {
		u.IsStaff = p.IsStaff.Value
	}
}
