package entity

import "time"

// Admin is an operator account. Only the bcrypt hash of the password is stored.
type Admin struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session maps a server-side session id to the admin it authenticates.
type Session struct {
	ID        string    `db:"id"`
	AdminID   int64     `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
