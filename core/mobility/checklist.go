package mobility

import "github.com/eliseea/mobility/core/user"

// transitions is the checklist approval policy: role -> current status -> next status.
// Missing cells are no-ops.
var transitions = map[user.Role]map[ItemStatus]ItemStatus{
	user.RoleStudent: {
		ItemTodo:       ItemDone,
		ItemInProgress: ItemDone,
		ItemDone:       ItemInProgress,
	},
	user.RoleTeacher: {
		ItemDone:      ItemValidated,
		ItemValidated: ItemDone,
	},
	user.RoleAdmin: {
		ItemDone:      ItemValidated,
		ItemValidated: ItemDone,
	},
}

// NextStatus looks up the status an actor with role moves an item in status current to.
// ok is false when the policy has no such transition.
func NextStatus(current ItemStatus, role user.Role) (next ItemStatus, ok bool) {
	next, ok = transitions[role][current]
	return next, ok
}

// Transition returns item with the status the actor's role moves it to, or item unchanged.
// It never fails and has no side effects; persisting the result is up to the caller.
func Transition(item ChecklistItem, role user.Role) ChecklistItem {
	if next, ok := NextStatus(item.Status, role); ok {
		item.Status = next
	}
	return item
}
