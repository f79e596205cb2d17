package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Address represents a row in the `addresses` table.  An Address is owned by
// at most one Person, which may reference it from either or both of its two
// address slots.
//
// Fields:
//
//	ID               – primary key identifier.
//	Country, City    – NOT NULL columns, empty string when unknown.
//	AddressLine      – the only field required when an address is created.
//	AddressLineExtra – free-form second line.
//	State, Zipcode, Area – optional locality details.
//	Dadata           – opaque metadata returned by the address suggestion service.
type Address struct {
	ID               uint64    `json:"id"`
	Country          string    `json:"country"`
	City             string    `json:"city"`
	AddressLine      *string   `json:"address_line"`
	AddressLineExtra *string   `json:"address_line_extra"`
	State            *string   `json:"state"`
	Zipcode          *string   `json:"zipcode"`
	Area             *string   `json:"area"`
	Dadata           JSONMap   `json:"dadata"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AddressPatch is the writable subset of Address.  Every field is optional
// so the same type serves create, full update and partial update; only the
// supplied keys are copied onto the target by Apply.
type AddressPatch struct {
	Country          Optional[string]  `json:"country"`
	City             Optional[string]  `json:"city"`
	AddressLine      Optional[string]  `json:"address_line"`
	AddressLineExtra Optional[string]  `json:"address_line_extra"`
	State            Optional[string]  `json:"state"`
	Zipcode          Optional[string]  `json:"zipcode"`
	Area             Optional[string]  `json:"area"`
	Dadata           Optional[JSONMap] `json:"dadata"`
}

// Validate checks the patch.  requireLine is true when the patch creates a
// new row or fully replaces one; address_line must then be supplied.  A
// supplied address_line must never be null or blank.
func (p AddressPatch) Validate(requireLine bool) error {
	errs := validation.Errors{}
	switch {
	case !p.AddressLine.Set:
		if requireLine {
			errs["address_line"] = errors.New(MsgRequired)
		}
	case p.AddressLine.Null:
		errs["address_line"] = errors.New(MsgNull)
	default:
		errs["address_line"] = validation.Validate(strings.TrimSpace(p.AddressLine.Value),
			validation.Required.Error(MsgBlank),
			validation.Length(0, 255),
		)
	}
	errs["zipcode"] = validation.Validate(p.Zipcode.Value, validation.Length(0, 32))
	return errs.Filter()
}

// Apply copies every supplied field onto a.  Null country/city collapse to
// the empty string because those columns are NOT NULL; a null dadata resets
// the metadata to an empty object.
func (p AddressPatch) Apply(a *Address) {
	if p.Country.Set {
		a.Country = p.Country.Value
	}
	if p.City.Set {
		a.City = p.City.Value
	}
	if p.AddressLine.Present() {
		line := strings.TrimSpace(p.AddressLine.Value)
		a.AddressLine = &line
	}
	if p.AddressLineExtra.Set {
		a.AddressLineExtra = p.AddressLineExtra.Ptr()
	}
	if p.State.Set {
		a.State = p.State.Ptr()
	}
	if p.Zipcode.Set {
		a.Zipcode = p.Zipcode.Ptr()
	}
	if p.Area.Set {
		a.Area = p.Area.Ptr()
	}
	if p.Dadata.Set {
		a.Dadata = p.Dadata.Value
		if a.Dadata == nil {
			a.Dadata = JSONMap{}
		}
	}
}

// NewAddress builds a fresh Address from the patch.
func (p AddressPatch) NewAddress() *Address {
	a := &Address{Dadata: JSONMap{}}
	p.Apply(a)
	return a
}

// AddressSlot is the value of a nested address key inside a Person payload.
// Besides the Optional states it records whether the value was something
// other than an object, which is reported as a field error instead of a
// decoding failure.
type AddressSlot struct {
	Set      bool
	Null     bool
	Patch    *AddressPatch
	NotAnObj bool
}

// Present reports whether the slot carries an address object.
func (s AddressSlot) Present() bool { return s.Set && s.Patch != nil }

func (s *AddressSlot) UnmarshalJSON(b []byte) error {
	s.Set = true
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		s.Null = true
		return nil
	case len(b) == 0 || b[0] != '{':
		s.NotAnObj = true
		return nil
	}
	var p AddressPatch
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	s.Patch = &p
	return nil
}
