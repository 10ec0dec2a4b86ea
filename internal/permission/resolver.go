package permission

// Resolver centralizes the merge/sparsify rule so every call site (level
// edit, individual toggle, invite, directory sync) shares one implementation.
// All functions are pure; callers own persistence.

// Effective computes a member's working capability set: level defaults
// shallow-merged with the member's sparse overrides.
func Effective(defaults, overrides PermissionSet) PermissionSet {
	effective := defaults.Clone()
	for key, value := range overrides {
		effective[key] = value
	}
	return effective
}

// Sparsify drops every override that matches the default it would shadow.
// Invariant: after Sparsify, overrides never contain a key whose value equals
// the current level default.
func Sparsify(overrides, defaults PermissionSet) PermissionSet {
	sparse := PermissionSet{}
	for key, value := range overrides {
		if def, ok := defaults[key]; ok && def == value {
			continue
		}
		sparse[key] = value
	}
	return sparse
}

// ReassignLevel recomputes a member's overrides when they move to a new
// level: overrides now equal to the new default are dropped, the rest keep
// their value. Repeated reassignments never accumulate stale overrides.
func ReassignLevel(overrides, newDefaults PermissionSet) PermissionSet {
	return Sparsify(overrides, newDefaults)
}

// Toggle flips one capability for a member. Setting a key back to its level
// default removes the override (the member reverts to inheriting); setting it
// away from default records the delta.
func Toggle(overrides PermissionSet, key string, value bool, defaults PermissionSet) PermissionSet {
	updated := overrides.Clone()
	if def, ok := defaults[key]; ok && def == value {
		delete(updated, key)
		return updated
	}
	updated[key] = value
	return updated
}

// DefaultsFor resolves the defaults a member inherits. A dangling or empty
// level id falls back to the lowest-ordered level; with no levels at all the
// hard-coded baseline applies.
func DefaultsFor(levels []*Level, levelID string) PermissionSet {
	for _, level := range levels {
		if level.ID == levelID {
			return level.Defaults()
		}
	}
	if fallback := FallbackLevel(levels); fallback != nil {
		return fallback.Defaults()
	}
	return Baseline()
}

// FallbackLevel picks the lowest-ordered level, or nil when none exist.
func FallbackLevel(levels []*Level) *Level {
	var fallback *Level
	for _, level := range levels {
		if fallback == nil || level.Ordering < fallback.Ordering {
			fallback = level
		}
	}
	return fallback
}
