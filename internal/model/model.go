package model

import (
	"fmt"
	"strconv"
	"time"
)

// ID is the persisted identity of an item or container.
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

type Status string

const (
	StatusActive   Status = "active"
	StatusDone     Status = "done"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDone, StatusArchived:
		return true
	default:
		return false
	}
}

type Item struct {
	ID         ID         `json:"id"`
	Text       string     `json:"text"`
	ParentID   *ID        `json:"parentId,omitempty"`
	Order      int        `json:"order"`
	Status     Status     `json:"status"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Ranked reports whether the item takes part in its container's ordering.
func (it Item) Ranked() bool {
	return it.DeletedAt == nil && it.ArchivedAt == nil && it.Status != StatusArchived
}

type Container struct {
	ID          ID         `json:"id"`
	Name        *string    `json:"name,omitempty"`
	Order       int        `json:"order"`
	ColumnIndex int        `json:"columnIndex"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (c Container) Ranked() bool {
	return c.DeletedAt == nil && c.ArchivedAt == nil
}

// DisplayName returns the container name, or "" when unnamed.
func (c Container) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

type Kind string

const (
	KindItem      Kind = "item"
	KindContainer Kind = "container"
)

type ScopeKind string

const (
	// ScopeItems ranks the items of one container; Scope.ID is the container id.
	ScopeItems ScopeKind = "list"
	// ScopeColumn ranks the containers of one column; Scope.ID is the column index.
	ScopeColumn ScopeKind = "column"
)

// Scope is the set of entities ranked together on one order axis.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   int64     `json:"id"`
}

func ItemsOf(container ID) Scope { return Scope{Kind: ScopeItems, ID: int64(container)} }
func Column(index int) Scope     { return Scope{Kind: ScopeColumn, ID: int64(index)} }

func (s Scope) Key() string   { return fmt.Sprintf("%s:%d", s.Kind, s.ID) }
func (s Scope) String() string { return s.Key() }

// Member returns the kind of entity ranked in this scope.
func (s Scope) Member() Kind {
	if s.Kind == ScopeColumn {
		return KindContainer
	}
	return KindItem
}

// Entry is the summary used by working copies and the interaction layer.
// Key is the canonical decimal form of a persisted ID, or a synthetic key for
// shadow entries injected during a drag.
type Entry struct {
	Key    string `json:"key"`
	Order  int    `json:"order"`
	Label  string `json:"label,omitempty"`
	Shadow bool   `json:"shadow,omitempty"`
}

func ItemEntry(it Item) Entry {
	return Entry{Key: it.ID.String(), Order: it.Order, Label: it.Text}
}

func ContainerEntry(c Container) Entry {
	return Entry{Key: c.ID.String(), Order: c.Order, Label: c.DisplayName()}
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction: %q (want up|down)", s)
	}
}
