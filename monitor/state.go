package monitor

import "sync"

// ServiceState is the runtime view of one service.
type ServiceState struct {
	Up          bool
	PreviousUp  bool
	Pending     bool
	Maintenance bool
}

// StatusStore owns the runtime state of every configured service. States are
// created optimistic (up, not pending) and live as long as the process.
type StatusStore struct {
	mu     sync.RWMutex
	names  []string
	states map[string]*ServiceState
}

// NewStatusStore seeds one state per name. maintenance carries the persisted
// flags; names absent from it start with maintenance off.
func NewStatusStore(names []string, maintenance map[string]bool) *StatusStore {
	s := &StatusStore{
		names:  append([]string(nil), names...),
		states: make(map[string]*ServiceState, len(names)),
	}

	for _, name := range names {
		s.states[name] = &ServiceState{
			Up:          true,
			PreviousUp:  true,
			Maintenance: maintenance[name],
		}
	}

	return s
}

// Observe stores the verdict of a probe and returns the verdict it replaced.
// ok is false for unknown services.
func (s *StatusStore) Observe(name string, up bool) (previous bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[name]
	if !ok {
		return false, false
	}

	previous = st.PreviousUp
	st.Up = up
	st.PreviousUp = st.Up

	return previous, true
}

func (s *StatusStore) SetPending(name string, pending bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[name]
	if ok {
		st.Pending = pending
	}
	return ok
}

func (s *StatusStore) SetMaintenance(name string, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[name]
	if ok {
		st.Maintenance = on
	}
	return ok
}

// Snapshot returns a copy of the state of name.
func (s *StatusStore) Snapshot(name string) (ServiceState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[name]
	if !ok {
		return ServiceState{}, false
	}
	return *st, true
}

// Names lists services in configuration order.
func (s *StatusStore) Names() []string {
	return append([]string(nil), s.names...)
}
