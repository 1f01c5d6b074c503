// Package mission holds the static table of missions the dispatcher can run.
package mission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"mission-runner/internal/robot"
)

// EntryPoint is a mission body. It drives the robot only through sc.
type EntryPoint func(ctx context.Context, sc *robot.Shared, args Args) error

// Args is the optional parameter list of an entry.
type Args []string

// Float returns argument i as a number, or def when it is missing or malformed.
func (a Args) Float(i int, def float64) float64 {
	if i < 0 || i >= len(a) {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a[i]), 64)
	if err != nil {
		return def
	}
	return v
}

// String returns argument i, or def when it is missing.
func (a Args) String(i int, def string) string {
	if i < 0 || i >= len(a) || a[i] == "" {
		return def
	}
	return a[i]
}

type Entry struct {
	ID            string
	Label         string
	DisplayNumber int
	Run           EntryPoint
	Params        Args
	// Timed entries print [RUN] start and done lines under their final
	// registry label.
	Timed bool
}

// Glyph is the character shown on the hub while the entry is selected.
func (e Entry) Glyph() rune {
	return rune('0' + e.DisplayNumber)
}

// Registry is an immutable, ordered list of entries.
type Registry struct {
	entries []Entry
	byID    map[string]int
}

var ErrEmpty = errors.New("mission registry is empty")

// NewRegistry validates entries and freezes their order.
func NewRegistry(entries ...Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	r := &Registry{
		entries: make([]Entry, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("entry #%d has no id", i+1)
		}
		if e.Run == nil {
			return nil, fmt.Errorf("entry %q has no entry point", e.ID)
		}
		if e.DisplayNumber < 0 || e.DisplayNumber > 9 {
			return nil, fmt.Errorf("entry %q: display number %d is not a single digit", e.ID, e.DisplayNumber)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate entry id %q", e.ID)
		}
		if e.Label == "" {
			e.Label = e.ID
		}
		if e.Timed {
			e.Run, e.Timed = Timed(e.ID+":"+e.Label, e.Run), false
		}
		e.Params = append(Args(nil), e.Params...)
		r.entries[i] = e
		r.byID[e.ID] = i
	}
	return r, nil
}

func (r *Registry) Len() int { return len(r.entries) }

// At returns the entry at index i, which must be in [0, Len()).
func (r *Registry) At(i int) Entry { return r.entries[i] }

// Entries returns a copy of the ordered entries.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Index returns the position of id, or -1.
func (r *Registry) Index(id string) int {
	if i, ok := r.byID[id]; ok {
		return i
	}
	for i, e := range r.entries {
		if strings.EqualFold(e.ID, id) {
			return i
		}
	}
	return -1
}

func (r *Registry) Lookup(id string) (Entry, bool) {
	i := r.Index(id)
	if i < 0 {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Suggest returns up to three known ids closest to id by edit distance.
func (r *Registry) Suggest(id string) []string {
	return suggest(id, r.ids())
}

func (r *Registry) ids() []string {
	ids := make([]string, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.ID
	}
	return ids
}

func suggest(id string, known []string) []string {
	type scored struct {
		id   string
		dist int
	}
	want := strings.ToLower(id)
	limit := max(2, len(want)/2)

	var hits []scored
	for _, k := range known {
		d := levenshtein.ComputeDistance(want, strings.ToLower(k))
		if d <= limit {
			hits = append(hits, scored{k, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	var out []string
	for i := 0; i < len(hits) && i < 3; i++ {
		out = append(out, hits[i].id)
	}
	return out
}

// Timed wraps run so that its start and duration are printed.
func Timed(label string, run EntryPoint) EntryPoint {
	return func(ctx context.Context, sc *robot.Shared, args Args) error {
		start := sc.Yield.Now()
		sc.Printf("[RUN] %s start", label)
		err := run(ctx, sc, args)
		sc.Printf("[RUN] %s done (%d ms)", label, sc.Yield.Now().Sub(start).Milliseconds())
		return err
	}
}
