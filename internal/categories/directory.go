// Package categories resolves category ids and names across the shared
// default tier and a user's own tier.
package categories

import (
	"strings"

	"golang.org/x/text/cases"

	"chitieu/internal/core"
)

// Directory is a read-only view over both category tiers of one user. The
// user tier wins over the default tier, by id and by name.
type Directory struct {
	user     []core.Category
	defaults []core.Category

	userByID      map[string]int
	defaultByID   map[string]int
	userByName    map[string]int
	defaultByName map[string]int
}

// NewDirectory builds a directory. Tier fields are overwritten to match the
// slice each category came from.
func NewDirectory(defaults, user []core.Category) *Directory {
	d := &Directory{
		user:          make([]core.Category, len(user)),
		defaults:      make([]core.Category, len(defaults)),
		userByID:      make(map[string]int, len(user)),
		defaultByID:   make(map[string]int, len(defaults)),
		userByName:    make(map[string]int, len(user)),
		defaultByName: make(map[string]int, len(defaults)),
	}
	for i, c := range defaults {
		c.Tier = core.DefaultTier
		d.defaults[i] = c
		d.defaultByID[c.ID] = i
		if _, dup := d.defaultByName[NameKey(c.Name)]; !dup {
			d.defaultByName[NameKey(c.Name)] = i
		}
	}
	for i, c := range user {
		c.Tier = core.UserTier
		d.user[i] = c
		d.userByID[c.ID] = i
		if _, dup := d.userByName[NameKey(c.Name)]; !dup {
			d.userByName[NameKey(c.Name)] = i
		}
	}
	return d
}

// NameKey is the form names are compared in: trimmed and case folded.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Lookup finds a category by id, user tier first.
func (d *Directory) Lookup(id string) (core.Category, bool) {
	if i, ok := d.userByID[id]; ok {
		return d.user[i], true
	}
	if i, ok := d.defaultByID[id]; ok {
		return d.defaults[i], true
	}
	return core.Category{}, false
}

// LookupName finds a category by name, user tier first.
func (d *Directory) LookupName(name string) (core.Category, bool) {
	key := NameKey(name)
	if i, ok := d.userByName[key]; ok {
		return d.user[i], true
	}
	if i, ok := d.defaultByName[key]; ok {
		return d.defaults[i], true
	}
	return core.Category{}, false
}

// List returns the user's categories followed by every default category
// that no user category shadows.
func (d *Directory) List() []core.Category {
	out := make([]core.Category, 0, len(d.user)+len(d.defaults))
	out = append(out, d.user...)
	for _, c := range d.defaults {
		if _, shadowed := d.userByID[c.ID]; shadowed {
			continue
		}
		if _, shadowed := d.userByName[NameKey(c.Name)]; shadowed {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsDefault reports whether id only exists in the default tier.
func (d *Directory) IsDefault(id string) bool {
	_, user := d.userByID[id]
	_, def := d.defaultByID[id]
	return def && !user
}
