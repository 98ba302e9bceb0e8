/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

// SlotResult is the verdict for a single slot. ChargeID is empty for an empty slot.
type SlotResult struct {
	SlotID   string `json:"slot_id"`
	ChargeID string `json:"charge_id,omitempty"`
	Correct  bool   `json:"correct"`
}

// Result is the outcome of checking every slot in a round.
type Result struct {
	Slots   []SlotResult `json:"slots"`
	Correct int          `json:"correct"`
	Total   int          `json:"total"`
	Passed  bool         `json:"passed"`
}

// Check compares every placed charge against the owner of the slot it sits in.
// Empty slots count as incorrect.
//
// Two people can share a charge label, and the board shows them identically,
// so a slot is judged on its label: it is correct while its owner still has an
// unmatched charge with that label.
func (r *Round) Check() Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := Result{
		Slots: make([]SlotResult, 0, len(r.slots)),
		Total: len(r.slots),
	}

	// owner -> label -> charges still unmatched
	needed := make(map[string]map[string]int, len(r.entities))
	for _, c := range r.charges {
		if needed[c.Owner] == nil {
			needed[c.Owner] = make(map[string]int)
		}
		needed[c.Owner][c.Label]++
	}

	for _, s := range r.slots {
		sr := SlotResult{SlotID: s.ID}

		if chargeID, ok := r.slotCharge[s.ID]; ok {
			sr.ChargeID = chargeID
			label := r.charges[r.chargeIndex[chargeID]].Label
			if needed[s.Owner][label] > 0 {
				needed[s.Owner][label]--
				sr.Correct = true
			}
		}

		if sr.Correct {
			res.Correct++
		}

		res.Slots = append(res.Slots, sr)
	}

	res.Passed = res.Total > 0 && res.Correct == res.Total

	return res
}
