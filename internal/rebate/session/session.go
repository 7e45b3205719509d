// Package session holds the in-memory editing state of one rendered plan.
package session

import (
	"sync"

	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

// SaveState tracks where a session sits in the edit/save cycle.
type SaveState string

const (
	SaveStateUnsaved SaveState = "unsaved"
	SaveStateSaving  SaveState = "saving"
	SaveStateSaved   SaveState = "saved"
)

// EditSession owns everything derived from one refresh of host rows plus the
// edits staged since. All methods are safe for concurrent use.
type EditSession struct {
	mu sync.Mutex

	hostFields []field.Field
	groups     []domain.CustomerGroup
	filters    map[string]any

	// saved mirrors the store as of the last fetch or successful save.
	saved domain.ArtifactValues
	// display carries the recomputed values shown to the user.
	display domain.ArtifactValues
	// pending accumulates staged edits toward the next save.
	pending domain.ArtifactValues

	balance domain.CheckBalanceAll
	state   SaveState
}

func New(
	hostFields []field.Field,
	groups []domain.CustomerGroup,
	filters map[string]any,
	saved domain.ArtifactValues,
	display domain.ArtifactValues,
	balance domain.CheckBalanceAll,
) *EditSession {
	return &EditSession{
		hostFields: hostFields,
		groups:     groups,
		filters:    filters,
		saved:      saved,
		display:    display,
		pending:    domain.ArtifactValues{},
		balance:    balance,
		state:      SaveStateUnsaved,
	}
}

// StageEdit records the edited values immediately, before any recompute runs.
func (s *EditSession) StageEdit(customer, uid string, values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[customer]
	if !ok {
		entry = domain.ArtifactEntry{Value: domain.CustomerArtifactValues{}}
	}
	if entry.Value == nil {
		entry.Value = domain.CustomerArtifactValues{}
	}
	record, ok := entry.Value[uid]
	if !ok {
		record = map[string]any{}
	}
	for name, v := range values {
		record[name] = v
	}
	entry.Value[uid] = record
	s.pending[customer] = entry
	s.state = SaveStateUnsaved
}

// MergedFor returns the saved values for one customer with the pending edits
// layered on top, along with the stored version.
func (s *EditSession) MergedFor(customer string) (domain.CustomerArtifactValues, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := domain.CustomerArtifactValues{}
	for uid, record := range s.saved[customer].Value {
		copied := make(map[string]any, len(record))
		for k, v := range record {
			copied[k] = v
		}
		merged[uid] = copied
	}
	for uid, record := range s.pending[customer].Value {
		target, ok := merged[uid]
		if !ok {
			target = map[string]any{}
			merged[uid] = target
		}
		for k, v := range record {
			target[k] = v
		}
	}
	return merged, s.saved[customer].Version
}

// SetDisplay replaces the display values and balance row for one customer.
func (s *EditSession) SetDisplay(customer string, entry domain.ArtifactEntry, each domain.CheckBalanceEach, merge func(domain.CheckBalanceAll, string, domain.CheckBalanceEach) domain.CheckBalanceAll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display[customer] = entry
	s.balance = merge(s.balance, customer, each)
}

// BeginSave flips the session into the saving state. Fails when a save is
// already running.
func (s *EditSession) BeginSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SaveStateSaving {
		return domain.ErrSaveInFlight
	}
	s.state = SaveStateSaving
	return nil
}

// PendingSnapshot returns the staged edits, the saved snapshot, the live
// grouping and filters needed to build the save batch.
func (s *EditSession) PendingSnapshot() (domain.ArtifactValues, domain.ArtifactValues, []domain.CustomerGroup, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Clone(), s.saved.Clone(), s.groups, s.filters
}

// CancelSave returns to unsaved with the staged edits intact.
func (s *EditSession) CancelSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SaveStateSaving {
		s.state = SaveStateUnsaved
	}
}

// CompleteSave installs the post-save snapshot, clears the staged edits and
// marks the session saved.
func (s *EditSession) CompleteSave(saved, display domain.ArtifactValues, balance domain.CheckBalanceAll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = saved
	s.display = display
	s.balance = balance
	s.pending = domain.ArtifactValues{}
	s.state = SaveStateSaved
}

// ResetSavedState drops saved back to unsaved once the saved badge expires.
// A session that moved on in the meantime is left alone.
func (s *EditSession) ResetSavedState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SaveStateSaved {
		s.state = SaveStateUnsaved
	}
}

// State returns the current save state.
func (s *EditSession) State() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasSku reports whether the grouping contains the given customer and uid.
func (s *EditSession) HasSku(customer, uid string) (customerKnown, skuKnown bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		if s.groups[i].Customer != customer {
			continue
		}
		customerKnown = true
		for j := range s.groups[i].SkuRecords {
			if s.groups[i].SkuRecords[j].UIDKey == uid {
				return true, true
			}
		}
		return true, false
	}
	return false, false
}

// GroupFor returns the grouping entry for one customer.
func (s *EditSession) GroupFor(customer string) *domain.CustomerGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		if s.groups[i].Customer == customer {
			return &s.groups[i]
		}
	}
	return nil
}

// View materializes the session for rendering.
func (s *EditSession) View() *domain.PlanView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.PlanView{
		Fields:       s.hostFields,
		Customers:    s.groups,
		Artifacts:    s.display.Clone(),
		CheckBalance: s.balance.Clone(),
		SaveState:    string(s.state),
	}
}
