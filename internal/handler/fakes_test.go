package handler

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/persons-api/internal/model"
	"github.com/iliyamo/persons-api/internal/repository"
)

// fakeUsers is an in-memory user repository.
type fakeUsers struct {
	byID    map[uint64]*model.User
	nextID  uint64
	touched []uint64
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uint64]*model.User{}, nextID: 1} }

func (f *fakeUsers) add(u model.User) *model.User {
	u.ID = f.nextID
	f.nextID++
	f.byID[u.ID] = &u
	return &u
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	u.Email = model.NormalizeEmail(u.Email)
	for _, other := range f.byID {
		if other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *f.add(*u)
	u.ID = cp.ID
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	for _, other := range f.byID {
		if other.ID != u.ID && other.Email == model.NormalizeEmail(u.Email) {
			return repository.ErrEmailExists
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]model.User, error) {
	out := []model.User{}
	for _, u := range f.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []model.User{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	if u, ok := f.byID[id]; ok {
		u.LastLogin = &at
	}
	f.touched = append(f.touched, id)
	return nil
}

// fakePersons records calls and returns canned results.
type fakePersons struct {
	person   *model.Person
	err      error
	partial  bool
	actor    uint64
	deleted  uint64
	lastList [2]int
}

func (f *fakePersons) Get(_ context.Context, id uint64) (*model.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.person, nil
}

func (f *fakePersons) List(_ context.Context, limit, offset int) ([]model.Person, error) {
	f.lastList = [2]int{limit, offset}
	if f.person == nil {
		return []model.Person{}, nil
	}
	return []model.Person{*f.person}, nil
}

func (f *fakePersons) Create(_ context.Context, actorID uint64, in model.PersonPayload) (*model.Person, error) {
	f.actor = actorID
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	p := &model.Person{ID: 1}
	in.Apply(p)
	return p, nil
}

func (f *fakePersons) Update(_ context.Context, actorID, id uint64, in model.PersonPayload, partial bool) (*model.Person, error) {
	f.actor, f.partial = actorID, partial
	if f.err != nil {
		return nil, f.err
	}
	if err := in.Validate(partial); err != nil {
		return nil, err
	}
	p := &model.Person{ID: id, FirstName: "Ann"}
	in.Apply(p)
	return p, nil
}

func (f *fakePersons) Delete(_ context.Context, actorID, id uint64) error {
	f.actor = actorID
	if f.err != nil {
		return f.err
	}
	f.deleted = id
	return nil
}

// fakeAddresses is an in-memory address repository.
type fakeAddresses struct {
	rows   map[uint64]*model.Address
	nextID uint64
}

func newFakeAddresses() *fakeAddresses {
	return &fakeAddresses{rows: map[uint64]*model.Address{}, nextID: 1}
}

func (f *fakeAddresses) Create(_ context.Context, a *model.Address) error {
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAddresses) GetByID(_ context.Context, id uint64) (*model.Address, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAddresses) Update(_ context.Context, a *model.Address) error {
	if _, ok := f.rows[a.ID]; !ok {
		return repository.ErrAddressNotFound
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAddresses) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrAddressNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAddresses) List(_ context.Context, limit, offset int) ([]model.Address, error) {
	out := []model.Address{}
	for _, a := range f.rows {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeAddresses) CountRefs(context.Context, uint64, uint64) (int, error) { return 0, nil }
