package models

import "time"

// Room is a physical teaching space with a seat capacity.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	MinCapacity int
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
