package analysis

import (
	"slices"

	tiaerrors "tia/internal/errors"
)

// UnitRegistry assigns dense ids to compiled units.
//
// Ids are positions in the identity-sorted unit list, so the same unit set
// always yields the same ids regardless of input order. Ids are not stable
// across Merge.
type UnitRegistry struct {
	units  []CompiledUnit
	ids    map[UnitKey]int
	byName map[string][]int
}

// NewRegistry builds a registry from units. When several units share an
// identity the last one wins. Invalid UTF-8 in unit strings is replaced
// with U+FFFD.
func NewRegistry(units []CompiledUnit) *UnitRegistry {
	latest := make(map[UnitKey]CompiledUnit, len(units))
	for _, u := range units {
		u = u.normalized()
		latest[u.Key()] = u
	}

	sorted := make([]CompiledUnit, 0, len(latest))
	for _, u := range latest {
		sorted = append(sorted, u)
	}
	slices.SortFunc(sorted, CompareUnits)

	r := &UnitRegistry{
		units:  sorted,
		ids:    make(map[UnitKey]int, len(sorted)),
		byName: make(map[string][]int),
	}
	for id, u := range sorted {
		r.ids[u.Key()] = id
		r.byName[u.Name] = append(r.byName[u.Name], id)
	}
	return r
}

// Len returns the number of registered units.
func (r *UnitRegistry) Len() int {
	return len(r.units)
}

// Units returns the units in id order. The slice must not be modified.
func (r *UnitRegistry) Units() []CompiledUnit {
	return r.units
}

// Contains reports whether id is a registered unit id.
func (r *UnitRegistry) Contains(id int) bool {
	return id >= 0 && id < len(r.units)
}

// UnitByID returns the unit with the given id. It panics with an
// UNKNOWN_IDENTITY error when the id is not registered.
func (r *UnitRegistry) UnitByID(id int) CompiledUnit {
	if !r.Contains(id) {
		panic(tiaerrors.Newf(tiaerrors.UnknownIdentity, "unit id %d is not registered (%d units)", id, len(r.units)))
	}
	return r.units[id]
}

// IDByUnit returns the id of the unit's identity. It panics with an
// UNKNOWN_IDENTITY error when the identity is not registered.
func (r *UnitRegistry) IDByUnit(u CompiledUnit) int {
	id, ok := r.LookupID(u)
	if !ok {
		panic(tiaerrors.Newf(tiaerrors.UnknownIdentity, "unit %s is not registered", u))
	}
	return id
}

// LookupID is the non-panicking form of IDByUnit.
func (r *UnitRegistry) LookupID(u CompiledUnit) (int, bool) {
	id, ok := r.ids[u.normalized().Key()]
	return id, ok
}

// IDsByName returns every id whose unit has the qualified name, ascending.
func (r *UnitRegistry) IDsByName(name string) []int {
	ids := r.byName[validUTF8(name)]
	if len(ids) == 0 {
		return nil
	}
	return slices.Clone(ids)
}

// Merge returns the union of both registries. For identities present in
// both, the unit from other wins, so the newer observed hash is kept. Ids are
// re-derived and generally differ from the ids of either input.
func (r *UnitRegistry) Merge(other *UnitRegistry) *UnitRegistry {
	units := make([]CompiledUnit, 0, len(r.units)+len(other.units))
	units = append(units, r.units...)
	units = append(units, other.units...)
	return NewRegistry(units)
}
