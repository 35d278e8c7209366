package drag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
	"planner-cli/internal/reorder"
	"planner-cli/internal/store"
	"planner-cli/internal/workcopy"
)

// Copies hands out the working copy of a scope, mounting it if needed.
type Copies interface {
	Acquire(scope model.Scope) (*workcopy.Copy, error)
}

// Topology answers boundary crossings for keyboard moves.
type Topology interface {
	// Neighbor returns the scope entered when leaving scope in dir.
	Neighbor(scope model.Scope, dir model.Direction) (model.Scope, bool)
	// LastColumn is the index of the last column.
	LastColumn() int
}

type Committer interface {
	Commit(ctx context.Context, c Commit) error
}

type Option func(*Machine)

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithOnChange registers fn to run after every state transition.
func WithOnChange(fn func()) Option {
	return func(m *Machine) { m.onChange = fn }
}

// Machine runs at most one drag session at a time.
type Machine struct {
	copies    Copies
	topo      Topology
	committer Committer
	log       *slog.Logger
	onChange  func()

	mu       sync.Mutex
	state    State
	session  *Session
	inFlight bool
}

func NewMachine(copies Copies, topo Topology, committer Committer, opts ...Option) *Machine {
	m := &Machine{copies: copies, topo: topo, committer: committer, log: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsDragActive is the single "is a drag in progress" query for every consumer.
func (m *Machine) IsDragActive() bool {
	return m.State() != Idle
}

// Session returns a copy of the current session, if any.
func (m *Machine) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	s := *m.session
	s.held = append([]model.Scope(nil), m.session.held...)
	s.ordering = append([]model.ID(nil), m.session.ordering...)
	return s, true
}

// Targets reports whether the active session owns scope's working copy.
func (m *Machine) Targets(scope model.Scope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.Targets(scope)
}

// Start begins a session for subject in origin. Any session still active
// is cancelled first.
func (m *Machine) Start(subject model.ID, kind model.Kind, origin model.Scope, mode Mode) (Session, error) {
	if origin.Member() != kind {
		return Session{}, fmt.Errorf("drag: %s cannot be ranked in %s", kind, origin)
	}
	origCopy, err := m.copies.Acquire(origin)
	if err != nil {
		return Session{}, err
	}
	entries := origCopy.Entries()
	idx := -1
	for i, e := range entries {
		if e.Key == subject.String() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Session{}, fmt.Errorf("%w: %s in %s", ErrNotInScope, subject, origin)
	}

	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return Session{}, ErrCommitInFlight
	}
	if m.session != nil {
		m.log.Debug("drag session superseded", "session", m.session.ID)
		m.cancelLocked()
	}
	s := &Session{
		ID:          uuid.NewString(),
		SubjectID:   subject,
		SubjectKind: kind,
		Origin:      origin,
		Mode:        mode,
		Target:      origin,
		Index:       idx,
		originIndex: idx,
		originIDs:   placeholder.IDs(entries),
		subject:     entries[idx],
	}
	s.hold(origin)
	origCopy.Hold()
	m.session = s
	m.state = Active
	out := *s
	m.mu.Unlock()

	m.log.Debug("drag session started", "session", s.ID, "subject", subject, "kind", kind, "origin", origin.Key(), "mode", mode)
	m.changed()
	return out, nil
}

// Consider applies a provisional ordering from the interaction layer to
// scope's working copy. raw may carry placeholders; they are filtered out,
// but the position of the subject (shadow or not) sets the drop target.
func (m *Machine) Consider(scope model.Scope, raw []model.Entry) error {
	c, err := m.copies.Acquire(scope)
	if err != nil {
		return err
	}

	m.mu.Lock()
	s, err := m.activeLocked(Pointer)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if s.hold(scope) {
		c.Hold()
	}
	if idx, ok := subjectIndex(raw, s.SubjectID); ok {
		s.Target = scope
		s.Index = idx
		s.ordering = nil
	} else if s.Target == scope {
		// The subject left this scope for somewhere not reported yet.
		s.Target = s.Origin
		s.Index = s.originIndex
	}
	c.ProvisionalReorder(raw)
	m.mu.Unlock()

	m.changed()
	return nil
}

// Finalize handles the interaction layer's final ordering for scope. Only
// the scope that holds the subject commits; finalizing the scope the subject
// left just updates its working copy.
func (m *Machine) Finalize(ctx context.Context, scope model.Scope, ordered []model.Entry) error {
	c, err := m.copies.Acquire(scope)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.session == nil {
		// The gaining scope already committed and ended the session.
		m.mu.Unlock()
		return nil
	}
	s, err := m.activeLocked(Pointer)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if s.hold(scope) {
		c.Hold()
	}
	c.ProvisionalReorder(ordered)
	idx, ok := subjectIndex(ordered, s.SubjectID)
	if !ok {
		m.mu.Unlock()
		m.changed()
		return nil
	}
	s.Target = scope
	s.Index = idx
	s.ordering = nil
	if scope == s.Origin {
		s.ordering = placeholder.IDs(ordered)
	}
	m.mu.Unlock()

	return m.Drop(ctx)
}

// Step moves a keyboard session one position in dir, crossing into the
// neighboring scope at a boundary.
func (m *Machine) Step(dir model.Direction) error {
	m.mu.Lock()
	defer func() {
		m.mu.Unlock()
		m.changed()
	}()
	s, err := m.activeLocked(Keyboard)
	if err != nil {
		return err
	}

	if s.NewContainer {
		if dir == model.Down {
			return nil
		}
		// Back out of the pending container into the scope we left.
		return m.enterLocked(s, s.Target, model.Up)
	}

	cur, err := m.copies.Acquire(s.Target)
	if err != nil {
		return err
	}
	entries := withSubject(cur.Entries(), s)
	ids := placeholder.IDs(entries)
	insertAt, boundary, err := reorder.Step(ids, s.SubjectID, dir)
	if err != nil {
		return err
	}
	if !boundary {
		p, _, err := reorder.PlanReorder(reorder.Plan{Scope: s.Target, IDs: ids}, s.SubjectID, insertAt)
		if err != nil {
			return err
		}
		cur.ProvisionalReorder(arrange(entries, p.IDs))
		s.Index = insertAt
		return nil
	}

	next, ok := m.topo.Neighbor(s.Target, dir)
	if !ok {
		if dir == model.Down && s.SubjectKind == model.KindItem {
			cur.ProvisionalReorder(withoutKey(entries, s.subject.Key))
			s.NewContainer = true
			s.NewColumn = m.topo.LastColumn()
			s.Index = 0
		}
		return nil
	}
	cur.ProvisionalReorder(withoutKey(entries, s.subject.Key))
	return m.enterLocked(s, next, dir)
}

// enterLocked moves the subject into scope: at the top when moving down, at
// the bottom when moving up.
func (m *Machine) enterLocked(s *Session, scope model.Scope, dir model.Direction) error {
	c, err := m.copies.Acquire(scope)
	if err != nil {
		return err
	}
	if s.hold(scope) {
		c.Hold()
	}
	rest := withoutKey(c.Entries(), s.subject.Key)
	idx := 0
	if dir == model.Up {
		idx = len(rest)
	}
	out := make([]model.Entry, 0, len(rest)+1)
	out = append(out, rest[:idx]...)
	out = append(out, s.subject)
	out = append(out, rest[idx:]...)
	c.ProvisionalReorder(out)

	s.Target = scope
	s.Index = idx
	s.NewContainer = false
	return nil
}

// Drop commits the session. On a first write failure the session stays and
// the returned *PersistenceFailure is Retryable; call Drop again to retry.
func (m *Machine) Drop(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrCommitInFlight
	}
	s := m.session
	c := Commit{
		SessionID: s.ID,
		Subject:   s.SubjectID,
		Kind:      s.SubjectKind,
		From:      s.Origin,
		To:        s.Target,
		Index:     s.Index,
		Ordering:  append([]model.ID(nil), s.ordering...),
	}
	if s.NewContainer {
		col := s.NewColumn
		c.NewContainerColumn = &col
		c.To = model.Scope{}
		c.Index = 0
	}
	if c.SameScope() && unmoved(c, s) {
		// Dropped where it started: nothing to write.
		m.finishLocked(false)
		m.mu.Unlock()
		m.changed()
		return nil
	}
	m.state = Committing
	m.inFlight = true
	m.mu.Unlock()
	m.changed()

	err := m.committer.Commit(ctx, c)

	m.mu.Lock()
	m.inFlight = false
	if err == nil {
		m.log.Debug("drag session committed", "session", s.ID)
		m.finishLocked(false)
		m.mu.Unlock()
		m.changed()
		return nil
	}
	s.failures++
	pf := &PersistenceFailure{SessionID: s.ID, Attempt: s.failures, Err: err}
	if s.failures >= 2 || permanent(err) {
		m.log.Warn("drag commit failed, reverting", "session", s.ID, "attempt", s.failures, "err", err)
		pf.Reverted = true
		m.cancelLocked()
	} else {
		m.log.Warn("drag commit failed, retry available", "session", s.ID, "err", err)
		pf.Retryable = true
	}
	m.mu.Unlock()
	m.changed()
	return pf
}

// Cancel discards the session and restores every working copy it touched
// from the store. Cancelling with no session is a no-op.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrCommitInFlight
	}
	m.cancelLocked()
	m.mu.Unlock()
	m.changed()
	return nil
}

func (m *Machine) cancelLocked() {
	m.state = Cancelled
	m.log.Debug("drag session cancelled", "session", m.session.ID)
	m.finishLocked(true)
}

func (m *Machine) finishLocked(restore bool) {
	for _, scope := range m.session.held {
		c, err := m.copies.Acquire(scope)
		if err != nil {
			m.log.Warn("release working copy", "scope", scope.Key(), "err", err)
			continue
		}
		c.Release(restore)
	}
	m.session = nil
	m.state = Idle
}

func (m *Machine) activeLocked(mode Mode) (*Session, error) {
	if m.session == nil {
		return nil, ErrNoSession
	}
	if m.inFlight || m.state == Committing {
		return nil, ErrCommitInFlight
	}
	if m.session.Mode != mode {
		return nil, ErrWrongMode
	}
	return m.session, nil
}

func (m *Machine) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// unmoved reports whether a same-scope commit would leave the order as it
// was when the session started.
func unmoved(c Commit, s *Session) bool {
	if c.Ordering != nil {
		return slices.Equal(c.Ordering, s.originIDs)
	}
	return c.Index == s.originIndex
}

func permanent(err error) bool {
	var sm store.ScopeMismatchError
	var nf store.NotFoundError
	var iie placeholder.InvalidIdentityError
	return errors.As(err, &sm) || errors.As(err, &nf) || errors.As(err, &iie)
}

// subjectIndex finds the subject's slot in raw, counting only real entries
// before it. The subject's shadow counts as the subject.
func subjectIndex(raw []model.Entry, subject model.ID) (int, bool) {
	key, shadow := subject.String(), placeholder.ShadowOf(subject)
	n := 0
	for _, e := range raw {
		if e.Key == key || e.Key == shadow {
			return n, true
		}
		if !placeholder.IsPlaceholder(e) {
			n++
		}
	}
	return 0, false
}

// withSubject ensures the subject sits at s.Index in entries.
func withSubject(entries []model.Entry, s *Session) []model.Entry {
	for _, e := range entries {
		if e.Key == s.subject.Key {
			return entries
		}
	}
	rest := withoutKey(entries, s.subject.Key)
	idx := s.Index
	if idx > len(rest) {
		idx = len(rest)
	}
	out := make([]model.Entry, 0, len(rest)+1)
	out = append(out, rest[:idx]...)
	out = append(out, s.subject)
	return append(out, rest[idx:]...)
}

func withoutKey(entries []model.Entry, key string) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

// arrange reorders entries to follow ids.
func arrange(entries []model.Entry, ids []model.ID) []model.Entry {
	byKey := make(map[string]model.Entry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}
	out := make([]model.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byKey[id.String()]; ok {
			out = append(out, e)
		}
	}
	return out
}
