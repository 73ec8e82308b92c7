package entity

import "time"

// Stats is the singleton usage counter row.
type Stats struct {
	ID              int64     `db:"id" json:"-"`
	PageViews       int64     `db:"page_views" json:"page_views"`
	FormSubmissions int64     `db:"form_submissions" json:"form_submissions"`
	FormErrors      int64     `db:"form_errors" json:"form_errors"`
	LastUpdated     time.Time `db:"last_updated" json:"last_updated"`
}
