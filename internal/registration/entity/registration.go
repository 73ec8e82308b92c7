package entity

import "time"

// Registration is one accepted waitlist signup. Rows are written once and
// never updated.
type Registration struct {
	ID            int64     `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	FullName      string    `db:"full_name" json:"full_name"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	ClientAddress *string   `db:"client_address" json:"client_address,omitempty"`
	ClientAgent   *string   `db:"client_agent" json:"client_agent,omitempty"`
}
