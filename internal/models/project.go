package models

import (
	"time"

	"github.com/lib/pq"
)

// Project groups tasks. Tasks only need its existence and soft-delete flag.
type Project struct {
	ID          int64         `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description string        `json:"description" db:"description"`
	CreatedBy   int64         `json:"created_by" db:"created_by"`
	Members     pq.Int64Array `json:"members" db:"members" swaggertype:"array,integer"`
	IsDeleted   bool          `json:"is_deleted" db:"is_deleted"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// ProjectPatch holds the fields PUT /api/project/:id may change; nil means keep.
type ProjectPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Members     *[]int64 `json:"members"`
}

func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Members == nil
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

type ProjectPage struct {
	Projects   []Project  `json:"projects"`
	Pagination Pagination `json:"pagination"`
}
