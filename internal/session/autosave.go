package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Simplici0/costestimator/internal/logging"
)

// AutosaveState is where the autosave indicator stands.
type AutosaveState string

const (
	AutosaveIdle   AutosaveState = "idle"
	AutosaveSaving AutosaveState = "saving"
	AutosaveSaved  AutosaveState = "saved"
	AutosaveError  AutosaveState = "error"
)

type autosaveState struct {
	state     AutosaveState
	lastSaved time.Time
}

// AutosaveStatus is the indicator shown next to the estimate.
type AutosaveStatus struct {
	State     AutosaveState `json:"state"`
	Label     string        `json:"label"`
	LastSaved *time.Time    `json:"lastSaved,omitempty"`
}

// AutosaveStatus reports the last autosave outcome.
func (s *Session) AutosaveStatus() AutosaveStatus {
	s.mu.Lock()
	st := s.autosave
	s.mu.Unlock()

	out := AutosaveStatus{State: st.state}
	if out.State == "" {
		out.State = AutosaveIdle
	}
	if !st.lastSaved.IsZero() {
		t := st.lastSaved
		out.LastSaved = &t
	}

	switch out.State {
	case AutosaveSaving:
		out.Label = "Saving..."
	case AutosaveError:
		out.Label = "Save failed"
	default:
		switch {
		case st.lastSaved.IsZero():
			out.Label = "Not saved"
		case s.now().Sub(st.lastSaved) < time.Minute:
			out.Label = "Auto-saved"
		default:
			out.Label = fmt.Sprintf("Saved %dm ago", int(s.now().Sub(st.lastSaved)/time.Minute))
		}
	}
	return out
}

// FlushAutosave writes a pending autosave now. It reports whether one was pending.
func (s *Session) FlushAutosave() bool {
	return s.autosaver.Flush(s.autosaveKey)
}

// AutosavePending reports whether an autosave is waiting for the quiet period.
func (s *Session) AutosavePending() bool {
	return s.autosaver.Pending(s.autosaveKey)
}

func (s *Session) scheduleAutosave() {
	s.mu.Lock()
	s.autosave.state = AutosaveSaving
	s.mu.Unlock()

	s.autosaver.Schedule(s.autosaveKey, s.performAutosave)
}

func (s *Session) performAutosave() {
	s.mu.Lock()
	snap := s.est.Snapshot()
	s.mu.Unlock()

	savedAt := s.now().UTC()
	_, err := s.put(context.Background(), s.autosaveKey, autosaveName, savedAt, snap)
	s.countSave("auto", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		logging.LogWarn(s.logger, module, "performAutosave", "writing autosave", nil, err)
		s.autosave.state = AutosaveError
		return
	}
	s.autosave.lastSaved = savedAt
	if !s.autosaver.Pending(s.autosaveKey) {
		s.autosave.state = AutosaveSaved
	}
}
