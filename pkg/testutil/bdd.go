package testutil

import "testing"

// Given opens a scenario precondition, e.g. "a registry with one SME inside
// the radius". Nested When/Then calls become its subtests.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

// When names the action under test, typically one assessment or request.
func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

// Then holds the assertions on the resulting bundle or response.
func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
