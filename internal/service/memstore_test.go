package service

import (
	"context"
	"sort"

	"github.com/iliyamo/persons-api/internal/model"
	"github.com/iliyamo/persons-api/internal/repository"
)

// memStore is an in-memory repository.Store.  InTx snapshots the state and
// restores it when the callback fails, which is enough to observe rollback.
type memStore struct {
	persons   map[uint64]model.Person
	addresses map[uint64]model.Address
	nextID    uint64

	addressDeletes []uint64
	locked         []uint64
}

func newMemStore() *memStore {
	return &memStore{persons: map[uint64]model.Person{}, addresses: map[uint64]model.Address{}}
}

func (m *memStore) Persons() repository.PersonStore    { return memPersons{m} }
func (m *memStore) Addresses() repository.AddressStore { return memAddresses{m} }

func (m *memStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	persons := make(map[uint64]model.Person, len(m.persons))
	for k, v := range m.persons {
		persons[k] = v
	}
	addresses := make(map[uint64]model.Address, len(m.addresses))
	for k, v := range m.addresses {
		addresses[k] = cloneAddress(v)
	}
	deletes := append([]uint64(nil), m.addressDeletes...)
	next := m.nextID
	if err := fn(m); err != nil {
		m.persons, m.addresses, m.addressDeletes, m.nextID = persons, addresses, deletes, next
		return err
	}
	return nil
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) seedAddress(a model.Address) uint64 {
	a.ID = m.id()
	if a.Dadata == nil {
		a.Dadata = model.JSONMap{}
	}
	m.addresses[a.ID] = a
	return a.ID
}

func (m *memStore) seedPerson(p model.Person) uint64 {
	p.ID = m.id()
	p.RefreshFullName()
	m.persons[p.ID] = p
	return p.ID
}

func cloneAddress(a model.Address) model.Address {
	if a.Dadata != nil {
		d := make(model.JSONMap, len(a.Dadata))
		for k, v := range a.Dadata {
			d[k] = v
		}
		a.Dadata = d
	}
	return a
}

type memPersons struct{ m *memStore }

func (r memPersons) Create(_ context.Context, p *model.Person) error {
	p.RefreshFullName()
	p.ID = r.m.id()
	r.m.persons[p.ID] = *p
	return nil
}

func (r memPersons) GetByID(_ context.Context, id uint64) (*model.Person, error) {
	p, ok := r.m.persons[id]
	if !ok {
		return nil, repository.ErrPersonNotFound
	}
	r.m.attach(&p)
	return &p, nil
}

func (r memPersons) GetForUpdate(_ context.Context, id uint64) (*model.Person, error) {
	p, ok := r.m.persons[id]
	if !ok {
		return nil, repository.ErrPersonNotFound
	}
	r.m.locked = append(r.m.locked, id)
	return &p, nil
}

func (r memPersons) Update(_ context.Context, p *model.Person) error {
	if _, ok := r.m.persons[p.ID]; !ok {
		return repository.ErrPersonNotFound
	}
	p.RefreshFullName()
	stored := *p
	stored.RegistrationAddress, stored.ActualAddress = nil, nil
	r.m.persons[p.ID] = stored
	return nil
}

func (r memPersons) Delete(_ context.Context, id uint64) error {
	if _, ok := r.m.persons[id]; !ok {
		return repository.ErrPersonNotFound
	}
	delete(r.m.persons, id)
	return nil
}

func (r memPersons) List(_ context.Context, limit, offset int) ([]model.Person, error) {
	ids := make([]uint64, 0, len(r.m.persons))
	for id := range r.m.persons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := []model.Person{}
	for i, id := range ids {
		if i < offset || len(out) >= limit {
			continue
		}
		p := r.m.persons[id]
		r.m.attach(&p)
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) attach(p *model.Person) {
	if p.RegistrationAddressID != nil {
		if a, ok := m.addresses[*p.RegistrationAddressID]; ok {
			p.RegistrationAddress = &a
		}
	}
	if p.ActualAddressID != nil {
		if a, ok := m.addresses[*p.ActualAddressID]; ok {
			p.ActualAddress = &a
		}
	}
}

type memAddresses struct{ m *memStore }

func (r memAddresses) Create(_ context.Context, a *model.Address) error {
	a.ID = r.m.id()
	r.m.addresses[a.ID] = cloneAddress(*a)
	return nil
}

func (r memAddresses) GetByID(_ context.Context, id uint64) (*model.Address, error) {
	a, ok := r.m.addresses[id]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	a = cloneAddress(a)
	return &a, nil
}

func (r memAddresses) Update(_ context.Context, a *model.Address) error {
	if _, ok := r.m.addresses[a.ID]; !ok {
		return repository.ErrAddressNotFound
	}
	r.m.addresses[a.ID] = cloneAddress(*a)
	return nil
}

func (r memAddresses) Delete(_ context.Context, id uint64) error {
	if _, ok := r.m.addresses[id]; !ok {
		return repository.ErrAddressNotFound
	}
	delete(r.m.addresses, id)
	r.m.addressDeletes = append(r.m.addressDeletes, id)
	// ON DELETE SET NULL
	for pid, p := range r.m.persons {
		if p.RegistrationAddressID != nil && *p.RegistrationAddressID == id {
			p.RegistrationAddressID = nil
		}
		if p.ActualAddressID != nil && *p.ActualAddressID == id {
			p.ActualAddressID = nil
		}
		r.m.persons[pid] = p
	}
	return nil
}

func (r memAddresses) List(_ context.Context, limit, offset int) ([]model.Address, error) {
	ids := make([]uint64, 0, len(r.m.addresses))
	for id := range r.m.addresses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := []model.Address{}
	for i, id := range ids {
		if i >= offset && len(out) < limit {
			out = append(out, r.m.addresses[id])
		}
	}
	return out, nil
}

func (r memAddresses) CountRefs(_ context.Context, addressID, excludePersonID uint64) (int, error) {
	n := 0
	for id, p := range r.m.persons {
		if id == excludePersonID {
			continue
		}
		if p.RegistrationAddressID != nil && *p.RegistrationAddressID == addressID {
			n++
		}
		if p.ActualAddressID != nil && *p.ActualAddressID == addressID {
			n++
		}
	}
	return n, nil
}
