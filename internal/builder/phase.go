package builder

// Phase is the build lifecycle position of a Builder.
type Phase int

const (
	NotBuilt Phase = iota
	Built
)

func (p Phase) String() string {
	switch p {
	case NotBuilt:
		return "not-built"
	case Built:
		return "built"
	default:
		return "unknown"
	}
}

// PhaseState guards the one-way NotBuilt -> Built transition.
// The zero value is NotBuilt.
type PhaseState struct {
	phase Phase
}

// Phase returns the current phase.
func (s *PhaseState) Phase() Phase {
	return s.phase
}

// AssertBuilt returns ErrNotBuilt unless the build has happened.
func (s *PhaseState) AssertBuilt() error {
	if s.phase != Built {
		return ErrNotBuilt
	}
	return nil
}

// AssertNotBuilt returns ErrAlreadyBuilt once the build has happened.
func (s *PhaseState) AssertNotBuilt() error {
	if s.phase != NotBuilt {
		return ErrAlreadyBuilt
	}
	return nil
}

// MarkBuilt moves to Built. There is no way back.
func (s *PhaseState) MarkBuilt() error {
	if err := s.AssertNotBuilt(); err != nil {
		return err
	}
	s.phase = Built
	return nil
}
