package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	redisclient "github.com/wecare-health/wecare/internal/redis"
)

// memRepository mirrors the conditional writes of PgRepository: every
// mutation checks its precondition and applies under one mutex.
type memRepository struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
	reviews      []RatingRecord
	aggregates   map[uuid.UUID]Aggregate
	events       []EventLog
	clock        time.Time

	// failRecordRating makes RecordRating fail before anything is written.
	failRecordRating error
}

func newMemRepository() *memRepository {
	return &memRepository{
		appointments: make(map[uuid.UUID]*Appointment),
		aggregates:   make(map[uuid.UUID]Aggregate),
		clock:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func clone(a *Appointment) *Appointment {
	cp := *a
	if a.Rating != nil {
		r := *a.Rating
		cp.Rating = &r
	}
	if a.Feedback != nil {
		f := *a.Feedback
		cp.Feedback = &f
	}
	if a.RatedAt != nil {
		t := *a.RatedAt
		cp.RatedAt = &t
	}
	return &cp
}

func (m *memRepository) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := clone(a)
	stored.Status = StatusPending
	stored.CreatedAt = m.tick()
	stored.UpdatedAt = stored.CreatedAt
	m.appointments[stored.ID] = stored
	return clone(stored), nil
}

func (m *memRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return clone(a), nil
}

func (m *memRepository) list(match func(*Appointment) bool) []Appointment {
	var out []Appointment
	for _, a := range m.appointments {
		if match(a) {
			out = append(out, *clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *memRepository) ListByPatient(_ context.Context, userID uuid.UUID) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *Appointment) bool { return a.UserID == userID }), nil
}

func (m *memRepository) ListByNurse(_ context.Context, nurseID uuid.UUID, status *Status) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *Appointment) bool {
		return a.NurseID == nurseID && (status == nil || a.Status == *status)
	}), nil
}

func (m *memRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	for _, f := range from {
		if a.Status == f {
			a.Status = to
			a.UpdatedAt = m.tick()
			return clone(a), nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepository) ratingsFor(nurseID uuid.UUID) []int {
	var ratings []int
	for _, a := range m.appointments {
		if a.NurseID == nurseID && a.Rating != nil {
			ratings = append(ratings, *a.Rating)
		}
	}
	return ratings
}

func (m *memRepository) RecordRating(_ context.Context, rec RatingRecord) (*Appointment, *Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failRecordRating != nil {
		return nil, nil, m.failRecordRating
	}

	a, ok := m.appointments[rec.AppointmentID]
	if !ok || a.Status != StatusCompleted || a.Rating != nil {
		return nil, nil, ErrRatingConflict
	}

	rating := rec.Rating
	feedback := rec.Feedback
	ratedAt := rec.RatedAt
	a.Rating = &rating
	a.Feedback = &feedback
	a.RatedAt = &ratedAt
	a.UpdatedAt = m.tick()

	m.reviews = append(m.reviews, rec)

	ratings := m.ratingsFor(rec.NurseID)
	agg := Aggregate{ListingID: rec.NurseID, Rating: AggregateRating(ratings), ReviewCount: len(ratings)}
	m.aggregates[rec.NurseID] = agg

	return clone(a), &agg, nil
}

func (m *memRepository) RatedNurseIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range m.appointments {
		if a.Rating != nil && !seen[a.NurseID] {
			seen[a.NurseID] = true
			ids = append(ids, a.NurseID)
		}
	}
	return ids, nil
}

func (m *memRepository) ReconcileAggregate(_ context.Context, nurseID uuid.UUID) (Aggregate, Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.aggregates[nurseID]
	before.ListingID = nurseID
	ratings := m.ratingsFor(nurseID)
	after := Aggregate{ListingID: nurseID, Rating: AggregateRating(ratings), ReviewCount: len(ratings)}
	m.aggregates[nurseID] = after
	return before, after, nil
}

func (m *memRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepository) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

// memLocker serializes callers per key in process.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// busy keys refuse acquisition outright
	busy map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex), busy: make(map[string]bool)}
}

func (l *memLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.busy[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	km, ok := l.locks[key]
	if !ok {
		km = &sync.Mutex{}
		l.locks[key] = km
	}
	l.mu.Unlock()

	km.Lock()
	defer km.Unlock()
	return fn(ctx)
}

type memNurses struct {
	byID map[uuid.UUID]*directory.Listing
}

func (n *memNurses) add(accountID uuid.UUID, name string) *directory.Listing {
	l := &directory.Listing{
		ID:             uuid.New(),
		AccountID:      accountID,
		Name:           name,
		Specialization: directory.DefaultSpecialization,
		ProfileImage:   directory.DefaultProfileImage,
		IsActive:       true,
		Rating:         directory.DefaultRating,
	}
	n.byID[l.ID] = l
	return l
}

func (n *memNurses) GetListing(_ context.Context, id uuid.UUID) (*directory.Listing, error) {
	l, ok := n.byID[id]
	if !ok {
		return nil, directory.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (n *memNurses) GetListingByAccount(_ context.Context, accountID uuid.UUID) (*directory.Listing, error) {
	for _, l := range n.byID {
		if l.AccountID == accountID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, directory.ErrListingNotFound
}

type memAccounts map[uuid.UUID]*identity.Account

func (m memAccounts) GetAccount(_ context.Context, id uuid.UUID) (*identity.Account, error) {
	a, ok := m[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	return a, nil
}
