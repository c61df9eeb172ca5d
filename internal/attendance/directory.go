package attendance

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Directory caches the backend people directory and resolves gallery
// labels to person IDs. Diacritics and casing differ between gallery
// folder names and directory records, so lookups go through canonical
// names on both sides.
type Directory struct {
	lister PeopleLister

	mu   sync.RWMutex
	byID map[string]Person
	ids  map[string]string // canonical name -> person ID
}

func NewDirectory(lister PeopleLister) *Directory {
	return &Directory{
		lister: lister,
		byID:   make(map[string]Person),
		ids:    make(map[string]string),
	}
}

// Refresh reloads the directory from the backend.
func (d *Directory) Refresh(ctx context.Context) error {
	people, err := d.lister.ListPeople(ctx)
	if err != nil {
		return fmt.Errorf("could not list people: %w", err)
	}

	byID := make(map[string]Person, len(people))
	ids := make(map[string]string, len(people))
	for _, p := range people {
		byID[p.ID] = p
		ids[gallery.CanonicalName(p.Name)] = p.ID
	}

	d.mu.Lock()
	d.byID = byID
	d.ids = ids
	d.mu.Unlock()
	return nil
}

// FindByName resolves a gallery label to a person ID. On a cache miss the
// directory is refreshed once and the lookup retried, so a person
// enrolled after startup still resolves. Returns ErrPersonNotFound when
// the backend has no matching record even after the refresh.
func (d *Directory) FindByName(ctx context.Context, name string) (string, error) {
	canonical := gallery.CanonicalName(name)

	d.mu.RLock()
	id, ok := d.ids[canonical]
	d.mu.RUnlock()
	if ok {
		return id, nil
	}

	if err := d.Refresh(ctx); err != nil {
		return "", err
	}

	d.mu.RLock()
	id, ok = d.ids[canonical]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrPersonNotFound, name)
	}
	return id, nil
}

// Lookup returns the cached person record for an ID.
func (d *Directory) Lookup(id string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[id]
	return p, ok
}

// Size returns the number of cached people.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
