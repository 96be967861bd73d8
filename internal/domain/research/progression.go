package research

import "github.com/yungbote/mycelium-backend/internal/domain/deck"

// UnlockedSlot is the next research slot open to the deck, derived only from accepted slots.
// It is one past the highest accepted slot, starting at the first research slot and capped at the last.
func UnlockedSlot(results []*Result) int {
	highest := deck.FirstResearchSlot - 1
	for _, r := range results {
		if r != nil && r.Status == StatusAccepted && r.CardSlot > highest {
			highest = r.CardSlot
		}
	}
	next := highest + 1
	if next > deck.LastResearchSlot {
		next = deck.LastResearchSlot
	}
	return next
}

// CanResearch reports whether every slot before slot has been accepted.
func CanResearch(results []*Result, slot int) bool {
	if !deck.IsResearchSlot(slot) {
		return false
	}
	accepted := AcceptedSlots(results)
	for s := deck.FirstResearchSlot; s < slot; s++ {
		if !accepted[s] {
			return false
		}
	}
	return true
}

func AcceptedSlots(results []*Result) map[int]bool {
	out := make(map[int]bool, len(results))
	for _, r := range results {
		if r != nil && r.Status == StatusAccepted {
			out[r.CardSlot] = true
		}
	}
	return out
}

// ChainComplete reports whether the last research slot has been accepted.
func ChainComplete(results []*Result) bool {
	return AcceptedSlots(results)[deck.LastResearchSlot]
}
