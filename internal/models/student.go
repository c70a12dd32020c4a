package models

import "time"

// Student is a class member whose scores and attendance are tracked.
type Student struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"classId"`
	FullName  string    `db:"full_name" json:"fullName"`
	NIS       string    `db:"nis" json:"nis"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
