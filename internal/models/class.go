package models

import "time"

// Class is a teaching group for one subject in one term; grade reports are computed per class.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	TermID    string    `db:"term_id" json:"termId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
