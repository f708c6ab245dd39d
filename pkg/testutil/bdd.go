package testutil

import "testing"

// Given, When, and Then label independent subtests.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

// Scenario runs ordered steps that share state, such as a session walked
// through pause, resume and cancel. After a failed step the rest are skipped.
type Scenario struct {
	t      *testing.T
	failed bool
}

func NewScenario(t *testing.T) *Scenario {
	return &Scenario{t: t}
}

func (s *Scenario) Given(desc string, fn func(t *testing.T)) { s.step("Given "+desc, fn) }
func (s *Scenario) When(desc string, fn func(t *testing.T))  { s.step("When "+desc, fn) }
func (s *Scenario) Then(desc string, fn func(t *testing.T))  { s.step("Then "+desc, fn) }

func (s *Scenario) step(name string, fn func(t *testing.T)) {
	s.t.Helper()
	failed := s.failed
	ok := s.t.Run(name, func(t *testing.T) {
		if failed {
			t.Skip("an earlier step failed")
		}
		fn(t)
	})
	if !ok {
		s.failed = true
	}
}
