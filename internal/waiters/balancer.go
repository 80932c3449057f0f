package waiters

// Load is one waiter's snapshot for a (date, slot) pair: how many tables
// they already chaperone in that slot and across the whole day.
type Load struct {
	Email    string
	SlotLoad int
	DayLoad  int
}

// PickLeastLoaded selects a waiter from a load snapshot: waiters at or over
// the per-slot cap are excluded outright, then the smallest daily load wins
// with first-seen tie breaking. Returns false when every waiter is capped.
//
// The balancer is deliberately greedy over a point-in-time snapshot; it does
// not look ahead across concurrent assignments. Callers that need stronger
// fairness must recompute loads inside the same transaction as the write.
func PickLeastLoaded(loads []Load, slotCap int) (string, bool) {
	best := ""
	bestDay := 0

	for _, l := range loads {
		if l.SlotLoad >= slotCap {
			continue
		}
		if best == "" || l.DayLoad < bestDay {
			best = l.Email
			bestDay = l.DayLoad
		}
	}

	if best == "" {
		return "", false
	}
	return best, true
}
