package domain

import "time"

type User struct {
	ID        int64      `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	Name      string     `db:"name" json:"name"`
	Hash      string     `db:"password_hash" json:"-"`
	Role      Role       `db:"role" json:"role"`
	RoomID    *int64     `db:"room_id" json:"room_id,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
