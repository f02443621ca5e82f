package organization

import (
	"errors"
	"time"
)

var (
	// ErrBranchNotFound indicates the branch does not exist.
	ErrBranchNotFound = errors.New("organization: branch not found")
	// ErrEventNotFound indicates the event does not exist.
	ErrEventNotFound = errors.New("organization: event not found")
	// ErrDuplicateEvent indicates the event description is taken.
	ErrDuplicateEvent = errors.New("organization: event already exists")
)

// Branch is a physical office.
type Branch struct {
	ID              int64     `json:"id"`
	Town            string    `json:"town"`
	LocationAddress string    `json:"location_address"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Event is an announcement shown to members.
type Event struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// BranchInput creates or updates a branch.
type BranchInput struct {
	Town            string `json:"town" validate:"required,max=64"`
	LocationAddress string `json:"location_address" validate:"required,max=255"`
	Phone           string `json:"phone" validate:"required,max=16"`
	Email           string `json:"email" validate:"required,email,max=128"`
}

// EventInput creates or updates an event.
type EventInput struct {
	Description string `json:"description" validate:"required,max=255"`
}
