package store

import "time"

// Class is a school class. A deleted class keeps its row with DeletedAt set.
type Class struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

func (c *Class) IsDeleted() bool { return c.DeletedAt != nil }

// User is a portal account attached to a class.
type User struct {
	ID        int64      `json:"id" yaml:"id"`
	Username  string     `json:"username" yaml:"username"`
	ClassID   int64      `json:"class_id" yaml:"class_id"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

func (u *User) IsDeleted() bool { return u.DeletedAt != nil }
