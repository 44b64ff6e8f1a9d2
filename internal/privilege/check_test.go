package privilege

import "testing"

func TestRequiresElevation(t *testing.T) {
	if !RequiresElevation(OpTaskCreateHighest) {
		t.Fatal("highest run level task creation should require elevation")
	}
	if RequiresElevation("unknown") {
		t.Fatal("unknown operation should not require elevation")
	}
}

func TestMissingElevationOnlyForElevatedOps(t *testing.T) {
	if MissingElevation("unknown") {
		t.Fatal("non-elevated operation can never be missing elevation")
	}
	if MissingElevation(OpTaskCreateHighest) == IsElevated() {
		t.Fatal("MissingElevation must be the inverse of IsElevated for elevated ops")
	}
}
