package pii

import "strconv"

// aliasRoles maps each pseudonymizable category to its alias prefix. The
// prefixes differ so alias spaces never collide across categories.
var aliasRoles = map[Category]string{
	CategoryEmail:      "user",
	CategoryPersonName: "person",
}

// RunContext holds run-scoped pseudonymization state: per-category alias
// maps and counters. Create one per batch, pass it into every record of that
// batch, and discard it when the batch ends.
//
// Not safe for concurrent use. Alias numbers depend on first-seen order, so
// records of one batch must be processed strictly in sequence against a
// single context.
type RunContext struct {
	aliases  map[Category]map[string]string
	counters map[Category]int
}

// NewRunContext creates an empty pseudonymization context.
func NewRunContext() *RunContext {
	return &RunContext{
		aliases:  make(map[Category]map[string]string),
		counters: make(map[Category]int),
	}
}

// Pseudonymize returns the stable alias for an identity key. The first
// sighting of a key allocates the next alias in the category's private
// sequence (user1, user2, ... / person1, person2, ...); repeat sightings
// return the recorded alias.
func (rc *RunContext) Pseudonymize(category Category, identityKey string) string {
	byKey, ok := rc.aliases[category]
	if !ok {
		byKey = make(map[string]string)
		rc.aliases[category] = byKey
	}

	if alias, seen := byKey[identityKey]; seen {
		return alias
	}

	role, ok := aliasRoles[category]
	if !ok {
		role = string(category)
	}
	rc.counters[category]++
	alias := role + strconv.Itoa(rc.counters[category])
	byKey[identityKey] = alias
	return alias
}

// AliasCount returns how many distinct identities have been seen for a
// category.
func (rc *RunContext) AliasCount(category Category) int {
	return rc.counters[category]
}
