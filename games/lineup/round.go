/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Charge is a single draggable label. Owner is the ID of the entity it belongs to.
type Charge struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Owner string `json:"-"`
}

// Slot is a drop target bound to one entity when the round is built.
type Slot struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

// Move describes the result of a drop, so clients can mirror it.
type Move struct {
	ChargeID  string `json:"charge_id"`
	SlotID    string `json:"slot_id"`
	FromSlot  string `json:"from_slot,omitempty"`
	Displaced string `json:"displaced,omitempty"`
}

// Round is one game: three people, their shuffled charges, and where
// each charge currently sits. It is safe for concurrent use.
type Round struct {
	mu sync.RWMutex

	entities []Entity
	charges  []Charge
	slots    []Slot

	chargeIndex map[string]int
	slotIndex   map[string]int

	slotCharge map[string]string // slot ID -> charge ID
	chargeSlot map[string]string // charge ID -> slot ID
}

// NewRound selects people from roster and lays out a fresh board.
func NewRound(rng *rand.Rand, roster Roster) (*Round, error) {
	selected, err := Select(rng, roster, SelectionSize)
	if err != nil {
		return nil, err
	}

	return newRoundFrom(rng, selected), nil
}

func newRoundFrom(rng *rand.Rand, selected []Entity) *Round {
	r := &Round{
		entities:    selected,
		chargeIndex: make(map[string]int),
		slotIndex:   make(map[string]int),
		slotCharge:  make(map[string]string),
		chargeSlot:  make(map[string]string),
	}

	for _, e := range selected {
		for _, label := range e.Charges {
			r.charges = append(r.charges, Charge{
				ID:    uuid.NewString(),
				Label: label,
				Owner: e.ID,
			})
			r.slots = append(r.slots, Slot{
				ID:    uuid.NewString(),
				Owner: e.ID,
			})
		}
	}

	Shuffle(rng, r.charges)

	for i, c := range r.charges {
		r.chargeIndex[c.ID] = i
	}
	for i, s := range r.slots {
		r.slotIndex[s.ID] = i
	}

	return r
}

// Entities returns the selected people in selection order.
func (r *Round) Entities() []Entity {
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)

	return out
}

// Charges returns every charge in shuffled order.
func (r *Round) Charges() []Charge {
	out := make([]Charge, len(r.charges))
	copy(out, r.charges)

	return out
}

// Slots returns every slot, grouped by owner in selection order.
func (r *Round) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)

	return out
}

// DragStart returns the transfer payload for a charge being picked up.
func (r *Round) DragStart(chargeID string) (string, error) {
	if _, ok := r.chargeIndex[chargeID]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnmappedDrop, chargeID)
	}

	return chargeID, nil
}

// Drop moves the charge named by payload into slotID, taking it out of
// whichever slot held it before. A charge already in slotID is sent back
// to the tray.
func (r *Round) Drop(slotID, payload string) (Move, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chargeIndex[payload]; !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrUnmappedDrop, payload)
	}
	if _, ok := r.slotIndex[slotID]; !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slotID)
	}

	move := Move{
		ChargeID: payload,
		SlotID:   slotID,
		FromSlot: r.chargeSlot[payload],
	}

	if move.FromSlot == slotID {
		return move, nil
	}

	if move.FromSlot != "" {
		delete(r.slotCharge, move.FromSlot)
	}

	if occupant, ok := r.slotCharge[slotID]; ok {
		delete(r.chargeSlot, occupant)
		move.Displaced = occupant
	}

	r.slotCharge[slotID] = payload
	r.chargeSlot[payload] = slotID

	return move, nil
}

// SlotOf reports which slot a charge sits in, if any.
func (r *Round) SlotOf(chargeID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.chargeSlot[chargeID]

	return s, ok
}

// ChargeIn reports which charge a slot holds, if any.
func (r *Round) ChargeIn(slotID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.slotCharge[slotID]

	return c, ok
}

// Placements returns a copy of the slot to charge mapping.
func (r *Round) Placements() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.slotCharge))
	for s, c := range r.slotCharge {
		out[s] = c
	}

	return out
}
