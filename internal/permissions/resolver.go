package permissions

import "github.com/victorivanov/mship/internal/models"

// Resolve computes the grants of an account from its roles.
//  1. Start from the direct grants.
//  2. Add every role's path patterns.
//  3. If any grant is the bare wildcard, the set collapses to "*".
func Resolve(direct []string, roles []models.Role) Set {
	set := NewSet(direct...)
	for _, r := range roles {
		set = set.Union(NewSet(r.Permissions...))
	}
	if _, ok := set.grants[Wildcard]; ok {
		return NewSet(Wildcard)
	}
	return set
}
