package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Address slot keys as they appear in payloads and validation errors.
const (
	SlotRegistration = "registration_address"
	SlotActual       = "actual_address"
)

// Person represents a row in the `persons` table together with the two
// addresses it links to.  FullName is derived from the name parts and is
// recomputed by the repository on every write.
type Person struct {
	ID                    uint64    `json:"id"`
	LastName              *string   `json:"last_name"`
	FirstName             string    `json:"first_name"`
	MiddleName            *string   `json:"middle_name"`
	FullName              string    `json:"full_name"`
	Photo                 *string   `json:"photo"`
	Email                 *string   `json:"email"`
	RegistrationAddressID *uint64   `json:"-"`
	ActualAddressID       *uint64   `json:"-"`
	RegistrationAddress   *Address  `json:"registration_address"`
	ActualAddress         *Address  `json:"actual_address"`
	Sex                   *int      `json:"sex"`
	Birthday              *Date     `json:"birthday"`
	Description           *string   `json:"description"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// ComposeFullName joins the non-empty name parts in (last, first, middle)
// order with single spaces.
func ComposeFullName(last *string, first string, middle *string) string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{last, &first, middle} {
		if p == nil {
			continue
		}
		if s := strings.TrimSpace(*p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// RefreshFullName recomputes FullName from the current name parts.
func (p *Person) RefreshFullName() { p.FullName = ComposeFullName(p.LastName, p.FirstName, p.MiddleName) }

// SlotAddressID returns a pointer to the foreign key backing the named slot.
func (p *Person) SlotAddressID(slot string) **uint64 {
	if slot == SlotActual {
		return &p.ActualAddressID
	}
	return &p.RegistrationAddressID
}

// AddressIDs returns the distinct address ids the person links to.
func (p *Person) AddressIDs() []uint64 {
	var ids []uint64
	if p.RegistrationAddressID != nil {
		ids = append(ids, *p.RegistrationAddressID)
	}
	if p.ActualAddressID != nil && (len(ids) == 0 || ids[0] != *p.ActualAddressID) {
		ids = append(ids, *p.ActualAddressID)
	}
	return ids
}

// PersonPayload is the request body of person create/update calls.  Each
// address slot can be given as a nested object (AddressSlot) or, to link
// an existing row, by id; both forms accept null to clear the slot.
type PersonPayload struct {
	LastName              Optional[string] `json:"last_name"`
	FirstName             Optional[string] `json:"first_name"`
	MiddleName            Optional[string] `json:"middle_name"`
	FullName              Optional[string] `json:"full_name"`
	Photo                 Optional[string] `json:"photo"`
	Email                 Optional[string] `json:"email"`
	RegistrationAddress   AddressSlot      `json:"registration_address"`
	ActualAddress         AddressSlot      `json:"actual_address"`
	RegistrationAddressID Optional[uint64] `json:"registration_address_id"`
	ActualAddressID       Optional[uint64] `json:"actual_address_id"`
	Sex                   Optional[int]    `json:"sex"`
	Birthday              Optional[Date]   `json:"birthday"`
	Description           Optional[string] `json:"description"`
}

// Slot returns the nested object and id form of the named address slot.
func (p *PersonPayload) Slot(slot string) (AddressSlot, Optional[uint64]) {
	if slot == SlotActual {
		return p.ActualAddress, p.ActualAddressID
	}
	return p.RegistrationAddress, p.RegistrationAddressID
}

// Validate checks the payload.  partial is true for PATCH, where first_name
// may be omitted.  Nested address objects are only checked for the fields
// they carry; whether address_line is required depends on the slot's
// current link and is decided by the service.
func (p PersonPayload) Validate(partial bool) error {
	errs := validation.Errors{}
	if p.FullName.Set {
		errs["full_name"] = errors.New(MsgReadOnly)
	}
	switch {
	case !p.FirstName.Set:
		if !partial {
			errs["first_name"] = errors.New(MsgRequired)
		}
	case p.FirstName.Null:
		errs["first_name"] = errors.New(MsgNull)
	default:
		errs["first_name"] = validation.Validate(strings.TrimSpace(p.FirstName.Value),
			validation.Required.Error(MsgBlank), validation.Length(0, 255))
	}
	errs["last_name"] = validation.Validate(p.LastName.Value, validation.Length(0, 255))
	errs["middle_name"] = validation.Validate(p.MiddleName.Value, validation.Length(0, 255))
	errs["photo"] = validation.Validate(p.Photo.Value, validation.Length(0, 512))
	errs["email"] = validation.Validate(p.Email.Value, is.Email.Error(MsgInvalidEmail))

	for _, slot := range []string{SlotRegistration, SlotActual} {
		obj, id := p.Slot(slot)
		switch {
		case obj.NotAnObj:
			errs[slot] = errors.New(MsgAddressObject)
		case obj.Set && id.Set:
			errs[slot] = errors.New("Provide either " + slot + " or " + slot + "_id, not both.")
		case obj.Present():
			if err := obj.Patch.Validate(false); err != nil {
				errs[slot] = err
			}
		}
	}
	return errs.Filter()
}

// Apply copies the supplied scalar fields onto dst.  Address slots are
// resolved separately by the service.
func (p PersonPayload) Apply(dst *Person) {
	if p.FirstName.Present() {
		dst.FirstName = strings.TrimSpace(p.FirstName.Value)
	}
	if p.LastName.Set {
		dst.LastName = trimmedPtr(p.LastName)
	}
	if p.MiddleName.Set {
		dst.MiddleName = trimmedPtr(p.MiddleName)
	}
	if p.Photo.Set {
		dst.Photo = p.Photo.Ptr()
	}
	if p.Email.Set {
		dst.Email = p.Email.Ptr()
	}
	if p.Sex.Set {
		dst.Sex = p.Sex.Ptr()
	}
	if p.Birthday.Set {
		dst.Birthday = p.Birthday.Ptr()
	}
	if p.Description.Set {
		dst.Description = p.Description.Ptr()
	}
	dst.RefreshFullName()
}

func trimmedPtr(o Optional[string]) *string {
	if !o.Present() {
		return nil
	}
	v := strings.TrimSpace(o.Value)
	return &v
}
