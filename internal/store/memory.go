package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	classes []*Class
	users   []*User
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func (m *MemoryStore) CreateClass(ctx context.Context, name string) (*Class, error) {
	if err := validateName("class name", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.classes {
		if c.Name == name {
			return nil, ErrAlreadyExists.Msg(fmt.Sprintf("class %q already exists", name))
		}
	}
	c := &Class{ID: int64(len(m.classes) + 1), Name: name, CreatedAt: m.now()}
	m.classes = append(m.classes, c)
	return copyClass(c), nil
}

func (m *MemoryStore) GetClass(ctx context.Context, id int64) (*Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.class(id)
	if c == nil {
		return nil, ErrNotFound.Msg(fmt.Sprintf("class %d not found", id))
	}
	return copyClass(c), nil
}

func (m *MemoryStore) DeleteClass(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.class(id)
	if c == nil || c.IsDeleted() {
		return ErrNotFound.Msg(fmt.Sprintf("class %d not found", id))
	}
	t := m.now()
	c.DeletedAt = &t
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, username string, classID int64) (*User, error) {
	if err := validateName("username", username); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.class(classID); c == nil || c.IsDeleted() {
		return nil, ErrInvalidInput.Msg(fmt.Sprintf("class %d does not exist", classID))
	}
	u := &User{ID: int64(len(m.users) + 1), Username: username, ClassID: classID, CreatedAt: m.now()}
	m.users = append(m.users, u)
	return copyUser(u), nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u := m.user(id)
	if u == nil {
		return nil, ErrNotFound.Msg(fmt.Sprintf("user %d not found", id))
	}
	return copyUser(u), nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(id)
	if u == nil || u.IsDeleted() {
		return ErrNotFound.Msg(fmt.Sprintf("user %d not found", id))
	}
	t := m.now()
	u.DeletedAt = &t
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// ids are dense and start at 1
func (m *MemoryStore) class(id int64) *Class {
	if id < 1 || id > int64(len(m.classes)) {
		return nil
	}
	return m.classes[id-1]
}

func (m *MemoryStore) user(id int64) *User {
	if id < 1 || id > int64(len(m.users)) {
		return nil
	}
	return m.users[id-1]
}

func copyClass(c *Class) *Class {
	cp := *c
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

func copyUser(u *User) *User {
	cp := *u
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}
