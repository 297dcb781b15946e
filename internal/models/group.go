package models

import "time"

// Group is the second level of the student audience hierarchy: a
// tutorial-sized subdivision of a Promotion.
type Group struct {
	ID          string    `db:"id" json:"id"`
	PromotionID string    `db:"promotion_id" json:"promotion_id"`
	Name        string    `db:"name" json:"name"`
	Size        int       `db:"size" json:"size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail extends Group with its owning promotion's name.
type GroupDetail struct {
	Group
	PromotionName string `db:"promotion_name" json:"promotion_name"`
}

// GroupFilter narrows group listings.
type GroupFilter struct {
	PromotionID string
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
