package domain

import (
	"context"
	"fmt"
	"time"
)

// IDs

type AccountID string
type TemplateID uint64
type ListingID uint64
type TicketID string
type TaskHandle string

// CodeHash is the hex-encoded SHA-256 digest of a template's deployed code.
type CodeHash string

// Amount is a quantity of funds in micro-units. 1.0 == 1_000_000 micro.

type Amount int64

const Micro Amount = 1_000_000

// MaxPrice bounds every template and listing price.
const MaxPrice Amount = 1_000_000 * Micro

func (a Amount) String() string {
	sign := ""
	v := a
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/Micro, v%Micro)
}

// Template is the shared, creator-owned definition of a workflow.
// CodeHash is recorded once at registration and never changes; publishing
// different code means registering a new template.

type Template struct {
	ID             TemplateID     `json:"id"`
	Creator        AccountID      `json:"creator"`
	Name           string         `json:"name"`
	CodeHash       CodeHash       `json:"code_hash"`
	Price          Amount         `json:"price"`
	Listed         bool           `json:"listed"`
	ConfigDefaults map[string]any `json:"config_defaults"`
	CloneCount     uint64         `json:"clone_count"`
	ForkCount      uint64         `json:"fork_count"`
	ParentID       *TemplateID    `json:"parent_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Strategy is the opaque logic a workflow instance executes on each run.
// The ledger never inspects it; a failure aborts the whole run call.
type Strategy interface {
	Execute(ctx context.Context) error
}

// SchedulingState records whether the external task scheduler re-invokes
// this instance, and with what cadence.
type SchedulingState struct {
	Enabled   bool          `json:"enabled"`
	Frequency time.Duration `json:"frequency,omitempty"`
	Handle    TaskHandle    `json:"handle,omitempty"`
	LastRun   time.Time     `json:"last_run,omitempty"`
}

// Instance is one account's owned, non-duplicable copy of a template.
// Exactly one holder (a vault container or a marketplace listing) references
// an Instance at any time; transfers move the single pointer, never copy it.

type Instance struct {
	TemplateID TemplateID      `json:"template_id"`
	Config     map[string]any  `json:"config"`
	Scheduling SchedulingState `json:"scheduling"`
	Strategy   Strategy        `json:"-"`
	ClonedAt   time.Time       `json:"cloned_at"`
}
