// Package service holds the person upsert engine: nested address slots are
// created, updated, relinked or cleared inside one transaction together with
// the person row.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/iliyamo/persons-api/internal/model"
	"github.com/iliyamo/persons-api/internal/queue"
	"github.com/iliyamo/persons-api/internal/repository"
)

var slots = []string{model.SlotRegistration, model.SlotActual}

// EventPublisher receives person events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.PersonEvent) error
}

// PersonService implements person CRUD with nested address upserts.
type PersonService struct {
	store  repository.Store
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewPersonService wires the service.  events may be nil.
func NewPersonService(store repository.Store, events EventPublisher, log *zap.Logger) *PersonService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PersonService{store: store, events: events, log: log, now: time.Now}
}

// Get returns one person with its addresses.
func (s *PersonService) Get(ctx context.Context, id uint64) (*model.Person, error) {
	return s.store.Persons().GetByID(ctx, id)
}

// List returns a page of persons, newest first.
func (s *PersonService) List(ctx context.Context, limit, offset int) ([]model.Person, error) {
	return s.store.Persons().List(ctx, limit, offset)
}

// Create validates the payload, creates any nested addresses and the person.
func (s *PersonService) Create(ctx context.Context, actorID uint64, in model.PersonPayload) (*model.Person, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	var out *model.Person
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		p := &model.Person{}
		in.Apply(p)
		if _, err := s.resolveSlots(ctx, tx, p, in); err != nil {
			return err
		}
		if err := tx.Persons().Create(ctx, p); err != nil {
			return err
		}
		var err error
		out, err = tx.Persons().GetByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventPersonCreated, actorID, out)
	return out, nil
}

// Update applies the payload to an existing person.  partial selects PATCH
// semantics (first_name may be omitted).  Omitted keys never change; the
// person row is locked for the duration of the transaction.
func (s *PersonService) Update(ctx context.Context, actorID, id uint64, in model.PersonPayload, partial bool) (*model.Person, error) {
	if err := in.Validate(partial); err != nil {
		return nil, err
	}
	var out *model.Person
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.Persons().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		in.Apply(p)
		released, err := s.resolveSlots(ctx, tx, p, in)
		if err != nil {
			return err
		}
		if err := tx.Persons().Update(ctx, p); err != nil {
			return err
		}
		if err := deleteUnreferenced(ctx, tx, released); err != nil {
			return err
		}
		out, err = tx.Persons().GetByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventPersonUpdated, actorID, out)
	return out, nil
}

// Delete removes the person and then each distinct address it linked to.
// Address ids are captured before the person row disappears.
func (s *PersonService) Delete(ctx context.Context, actorID, id uint64) error {
	var gone *model.Person
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.Persons().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ids := p.AddressIDs()
		if err := tx.Persons().Delete(ctx, id); err != nil {
			return err
		}
		gone = p
		return deleteUnreferenced(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.EventPersonDeleted, actorID, gone)
	return nil
}

// resolveSlots applies both address slots of the payload to p and returns
// the ids of addresses p stopped pointing at.  Field problems are collected
// into a validation.Errors keyed by slot.
func (s *PersonService) resolveSlots(ctx context.Context, tx repository.Store, p *model.Person, in model.PersonPayload) ([]uint64, error) {
	errs := validation.Errors{}
	var released []uint64
	for _, slot := range slots {
		obj, byID := in.Slot(slot)
		link := p.SlotAddressID(slot)
		prev := *link

		switch {
		case obj.Set && obj.Null, byID.Set && byID.Null:
			*link = nil

		case byID.Present():
			if err := checkLinkable(ctx, tx, byID.Value, p.ID); err != nil {
				var ferr fieldError
				if errors.As(err, &ferr) {
					errs[slot+"_id"] = ferr
					continue
				}
				return nil, err
			}
			id := byID.Value
			*link = &id

		case obj.Present():
			if prev == nil {
				if err := obj.Patch.Validate(true); err != nil {
					errs[slot] = err
					continue
				}
				a := obj.Patch.NewAddress()
				if err := tx.Addresses().Create(ctx, a); err != nil {
					return nil, err
				}
				id := a.ID
				*link = &id
				continue
			}
			a, err := tx.Addresses().GetByID(ctx, *prev)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", slot, err)
			}
			obj.Patch.Apply(a)
			if err := tx.Addresses().Update(ctx, a); err != nil {
				return nil, err
			}

		default:
			continue
		}

		if prev != nil && (*link == nil || **link != *prev) {
			released = append(released, *prev)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return released, nil
}

// fieldError is a validation message produced while resolving a slot.
type fieldError string

func (e fieldError) Error() string { return string(e) }

// checkLinkable verifies an address can be linked by id to the person:
// it must exist and no other person may reference it.
func checkLinkable(ctx context.Context, tx repository.Store, addressID, personID uint64) error {
	if _, err := tx.Addresses().GetByID(ctx, addressID); err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			return fieldError(fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", addressID))
		}
		return err
	}
	n, err := tx.Addresses().CountRefs(ctx, addressID, personID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fieldError("Address is already linked to another person.")
	}
	return nil
}

// deleteUnreferenced deletes each distinct address id that no person slot
// references any more.
func deleteUnreferenced(ctx context.Context, tx repository.Store, ids []uint64) error {
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, err := tx.Addresses().CountRefs(ctx, id, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if err := tx.Addresses().Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrAddressNotFound) {
			return err
		}
	}
	return nil
}

func (s *PersonService) publish(ctx context.Context, typ string, actorID uint64, p *model.Person) {
	ev := queue.PersonEvent{
		Type:       typ,
		PersonID:   p.ID,
		FullName:   p.FullName,
		AddressIDs: p.AddressIDs(),
		ActorID:    actorID,
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish person event failed",
			zap.String("type", typ), zap.Uint64("person_id", p.ID), zap.Error(err))
	}
}
