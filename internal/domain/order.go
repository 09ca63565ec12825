// Package domain defines the value types shared across the simulation core:
// bar series, order intents, fills, stage results and sweep configuration.
// It has no dependencies and performs no I/O.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidIntent is returned when an order intent fails validation.
var ErrInvalidIntent = errors.New("invalid order intent")

// Role distinguishes position-opening orders from position-closing ones.
type Role uint8

// Role constants.
const (
	RoleEntry Role = iota
	RoleExit
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleEntry:
		return "entry"
	case RoleExit:
		return "exit"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Kind is the trigger direction of a conditional order.
// A stop triggers on an adverse cross, a limit on a favorable one.
type Kind uint8

// Kind constants.
const (
	KindStop Kind = iota
	KindLimit
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStop:
		return "stop"
	case KindLimit:
		return "limit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Side is the order direction.
type Side uint8

// Side constants.
const (
	SideBuy Side = iota
	SideSell
)

// String returns the side name.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// OrderIntent describes a conditional order a strategy wants evaluated.
//
// CreatedBar is the bar index before the order becomes eligible: an intent
// created at bar t-1 is evaluated starting at bar t (next-bar activation).
// CreatedBar = -1 means eligible starting at bar 0.
//
// TTL is the number of bars the intent stays eligible once active.
// TTL = 1 is the one-shot default; TTL = 0 keeps the intent resident in the
// book until filled (good-till-cancelled).
type OrderIntent struct {
	OrderID    int64
	CreatedBar int64
	Role       Role
	Kind       Kind
	Side       Side
	Price      float64
	Qty        int32
	TTL        int64
}

// GTC reports whether the intent is good-till-cancelled.
func (o OrderIntent) GTC() bool {
	return o.TTL == 0
}

// ActiveAt reports whether the intent is eligible to fill at bar t.
func (o OrderIntent) ActiveAt(t int64) bool {
	if t <= o.CreatedBar {
		return false
	}
	if o.TTL == 0 {
		return true
	}
	return t <= o.CreatedBar+o.TTL
}

// Validate checks a single intent. OrderID uniqueness across a batch is
// checked by the engine, not here.
func (o OrderIntent) Validate() error {
	if o.CreatedBar < -1 {
		return fmt.Errorf("%w: order %d has created_bar %d (minimum is -1)",
			ErrInvalidIntent, o.OrderID, o.CreatedBar)
	}
	if !isFinite(o.Price) || o.Price <= 0 {
		return fmt.Errorf("%w: order %d has price %g", ErrInvalidIntent, o.OrderID, o.Price)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: order %d has qty %d", ErrInvalidIntent, o.OrderID, o.Qty)
	}
	if o.TTL < 0 {
		return fmt.Errorf("%w: order %d has ttl %d", ErrInvalidIntent, o.OrderID, o.TTL)
	}
	if o.Role > RoleExit || o.Kind > KindLimit || o.Side > SideSell {
		return fmt.Errorf("%w: order %d has out-of-range enum value", ErrInvalidIntent, o.OrderID)
	}
	return nil
}

// Fill is the realized execution of an intent at a specific bar and price.
// Immutable once produced; the ordered fill sequence is the engine's sole
// output artifact.
type Fill struct {
	OrderID  int64
	BarIndex int64
	Role     Role
	Kind     Kind
	Side     Side
	Price    float64
	Qty      int32
}
