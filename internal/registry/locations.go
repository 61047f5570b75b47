package registry

import (
	"sort"
	"strconv"

	"github.com/openretail/pos-reconciler/internal/blobstore"
)

// Locations is the in-memory working copy of the location catalog.
// It maps town names to their surrogate ids. Ids are dense starting at
// 1 and form a bijection onto the towns seen so far; towns are never
// deleted or renamed.
type Locations struct {
	byTown  map[string]int
	dirty   bool
	version blobstore.Version
}

// ResolveOrCreate returns the id for a town, assigning the next dense
// id when the town is unseen. Reports whether a new entry was created.
func (l *Locations) ResolveOrCreate(town string) (id int, created bool) {
	if id, ok := l.byTown[town]; ok {
		return id, false
	}
	id = len(l.byTown) + 1
	l.byTown[town] = id
	l.dirty = true
	return id, true
}

// Lookup returns the id for a town without creating one.
func (l *Locations) Lookup(town string) (int, bool) {
	id, ok := l.byTown[town]
	return id, ok
}

// Len returns the number of known towns.
func (l *Locations) Len() int {
	return len(l.byTown)
}

// Dirty reports whether the catalog grew since it was loaded.
func (l *Locations) Dirty() bool {
	return l.dirty
}

// rows returns the catalog entries sorted by id for serialization.
func (l *Locations) rows() [][2]string {
	type entry struct {
		id   int
		town string
	}
	entries := make([]entry, 0, len(l.byTown))
	for town, id := range l.byTown {
		entries = append(entries, entry{id: id, town: town})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	out := make([][2]string, len(entries))
	for i, e := range entries {
		out[i] = [2]string{strconv.Itoa(e.id), e.town}
	}
	return out
}
