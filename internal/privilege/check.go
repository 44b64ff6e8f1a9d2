package privilege

// OpTaskCreateHighest is registering a task with the highest run level,
// which the scheduler refuses from an unelevated process.
const OpTaskCreateHighest = "task.create.highest"

var elevatedOperations = map[string]bool{
	OpTaskCreateHighest: true,
}

// RequiresElevation returns true if the operation needs root/admin privileges.
func RequiresElevation(op string) bool {
	return elevatedOperations[op]
}

// MissingElevation reports whether op needs elevation that the current
// process does not have.
func MissingElevation(op string) bool {
	return RequiresElevation(op) && !IsElevated()
}
