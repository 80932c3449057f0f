// Package slots defines the fixed daily reservation windows. The catalog is
// an immutable value injected where needed; deployments may swap the default
// schedule without touching callers.
package slots

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot is one fixed reservation window. Start and End are 24-hour "HH:MM".
type Slot struct {
	ID    string
	Start string
	End   string
}

func (s Slot) Display() string {
	return s.Start + " - " + s.End
}

// Catalog holds the day's slots in schedule order. A reservation must span
// exactly one catalog slot; arbitrary intervals are not supported.
type Catalog struct {
	slots   []Slot
	byID    map[string]Slot
	byStart map[string]string
	byEnd   map[string]string
}

// New builds a catalog from the given slots. Slot times must already be in
// 24-hour form and each start must precede its end.
func New(slotList []Slot) (*Catalog, error) {
	if len(slotList) == 0 {
		return nil, fmt.Errorf("slot catalog cannot be empty")
	}

	c := &Catalog{
		slots:   make([]Slot, 0, len(slotList)),
		byID:    make(map[string]Slot, len(slotList)),
		byStart: make(map[string]string, len(slotList)),
		byEnd:   make(map[string]string, len(slotList)),
	}

	for _, s := range slotList {
		start, err := minutesOfDay(s.Start)
		if err != nil {
			return nil, fmt.Errorf("slot %s: invalid start time %q", s.ID, s.Start)
		}
		end, err := minutesOfDay(s.End)
		if err != nil {
			return nil, fmt.Errorf("slot %s: invalid end time %q", s.ID, s.End)
		}
		if start >= end {
			return nil, fmt.Errorf("slot %s: start %q must precede end %q", s.ID, s.Start, s.End)
		}
		if _, exists := c.byID[s.ID]; exists {
			return nil, fmt.Errorf("duplicate slot id %s", s.ID)
		}
		c.slots = append(c.slots, s)
		c.byID[s.ID] = s
		c.byStart[s.Start] = s.ID
		c.byEnd[s.End] = s.ID
	}

	return c, nil
}

// Default returns the standard 7-slot schedule shared by every location.
func Default() *Catalog {
	c, err := New([]Slot{
		{ID: "1", Start: "10:30", End: "12:00"},
		{ID: "2", Start: "12:15", End: "13:45"},
		{ID: "3", Start: "14:00", End: "15:30"},
		{ID: "4", Start: "15:45", End: "17:15"},
		{ID: "5", Start: "17:30", End: "19:00"},
		{ID: "6", Start: "19:15", End: "20:45"},
		{ID: "7", Start: "21:00", End: "22:30"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the slots in schedule order.
func (c *Catalog) All() []Slot {
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// ResolveByStart maps a time string to the slot that starts at that time.
// Unparseable input resolves to not-found; callers decide how to react.
func (c *Catalog) ResolveByStart(timeStr string) (string, bool) {
	normalized, err := Normalize(timeStr)
	if err != nil {
		return "", false
	}
	id, ok := c.byStart[normalized]
	return id, ok
}

// ResolveByEnd maps a time string to the slot that ends at that time.
func (c *Catalog) ResolveByEnd(timeStr string) (string, bool) {
	normalized, err := Normalize(timeStr)
	if err != nil {
		return "", false
	}
	id, ok := c.byEnd[normalized]
	return id, ok
}

func (c *Catalog) ByID(id string) (Slot, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Display returns the "start - end" label for a slot id.
func (c *Catalog) Display(id string) (string, bool) {
	s, ok := c.byID[id]
	if !ok {
		return "", false
	}
	return s.Display(), true
}

// ClosestSlots returns the slot whose start matches the given time exactly,
// or otherwise the two slots nearest to it by absolute seconds-of-day
// distance. Equidistant slots keep schedule order. The time must already be
// normalized; a malformed value returns nil.
func (c *Catalog) ClosestSlots(timeStr string) []Slot {
	requested, err := minutesOfDay(timeStr)
	if err != nil {
		return nil
	}

	if id, ok := c.byStart[timeStr]; ok {
		return []Slot{c.byID[id]}
	}

	type candidate struct {
		slot Slot
		dist int
	}
	candidates := make([]candidate, 0, len(c.slots))
	for _, s := range c.slots {
		start, _ := minutesOfDay(s.Start)
		dist := start - requested
		if dist < 0 {
			dist = -dist
		}
		candidates = append(candidates, candidate{slot: s, dist: dist})
	}

	// Stable selection of the two smallest distances, preserving schedule
	// order on ties.
	best := make([]candidate, 0, 2)
	for _, cand := range candidates {
		inserted := false
		for i := range best {
			if cand.dist < best[i].dist {
				best = append(best[:i], append([]candidate{cand}, best[i:]...)...)
				inserted = true
				break
			}
		}
		if !inserted {
			best = append(best, cand)
		}
		if len(best) > 2 {
			best = best[:2]
		}
	}

	out := make([]Slot, 0, len(best))
	for _, b := range best {
		out = append(out, b.slot)
	}
	return out
}

// Normalize converts accepted time forms to 24-hour "HH:MM": "14:00" stays
// as is, "2:00 p.m." and "2:00 PM" become "14:00". Anything else is an
// error; callers treat it as not-found rather than aborting the request.
func Normalize(timeStr string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(timeStr))
	if s == "" {
		return "", fmt.Errorf("empty time string")
	}

	meridiem := ""
	for _, suffix := range []string{"a.m.", "am", "p.m.", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = string(suffix[0])
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	hour, minute, err := splitClock(s)
	if err != nil {
		return "", err
	}

	switch meridiem {
	case "a":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("invalid 12-hour value %q", timeStr)
		}
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("invalid 12-hour value %q", timeStr)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return "", fmt.Errorf("invalid 24-hour value %q", timeStr)
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func splitClock(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}

	minute := 0
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("invalid minute in %q", s)
		}
	}

	return hour, minute, nil
}

func minutesOfDay(timeStr string) (int, error) {
	hour, minute, err := splitClock(timeStr)
	if err != nil {
		return 0, err
	}
	if hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", timeStr)
	}
	return hour*60 + minute, nil
}
