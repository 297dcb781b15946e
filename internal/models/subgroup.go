package models

import "time"

// SubGroup is the third level of the student audience hierarchy: a
// lab-sized subdivision of a Group.
type SubGroup struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	Name      string    `db:"name" json:"name"`
	Size      int       `db:"size" json:"size"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubGroupDetail extends SubGroup with its owning group's name.
type SubGroupDetail struct {
	SubGroup
	GroupName string `db:"group_name" json:"group_name"`
}

// SubGroupFilter narrows sub-group listings.
type SubGroupFilter struct {
	GroupID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
