package timer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/stagetimer/go/internal/models"
)

const memoryActionLogSize = 200

// MemoryRepository keeps the timer in process. It backs the single-binary
// mode and tests, and doubles as its own change feed.
type MemoryRepository struct {
	mu      sync.Mutex
	record  *models.TimerRecord
	actions []models.TimerAction
	subs    map[chan models.TimerRecord]struct{}
}

// NewMemoryRepository creates an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subs: make(map[chan models.TimerRecord]struct{}),
	}
}

func (m *MemoryRepository) GetTimer(ctx context.Context) (*models.TimerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		return nil, ErrRecordNotFound
	}
	rec := m.record.Clone()
	return &rec, nil
}

func (m *MemoryRepository) EnsureTimer(ctx context.Context, def models.TimerRecord) (*models.TimerRecord, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		rec := def.Clone()
		m.record = &rec
		m.publishLocked()
	}
	rec := m.record.Clone()
	return &rec, nil
}

func (m *MemoryRepository) Mutate(ctx context.Context, fn MutateFunc) (*models.TimerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		return nil, ErrRecordNotFound
	}

	mut, err := fn(m.record.Clone())
	if err != nil {
		return nil, err
	}
	if mut == nil {
		rec := m.record.Clone()
		return &rec, nil
	}
	if err := mut.Record.Validate(); err != nil {
		return nil, err
	}

	next := mut.Record.Clone()
	next.ID = models.TimerID
	m.record = &next
	m.appendActionLocked(mut)
	m.publishLocked()

	rec := next.Clone()
	return &rec, nil
}

func (m *MemoryRepository) ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := max(0, min(int(limit), len(m.actions)))
	out := make([]models.TimerAction, 0, n)
	for i := len(m.actions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.actions[i])
	}
	return out, nil
}

// Subscribe delivers the current record, if any, and then every change until
// ctx is cancelled. A slow reader only ever sees the latest snapshot.
func (m *MemoryRepository) Subscribe(ctx context.Context) (<-chan models.TimerRecord, error) {
	ch := make(chan models.TimerRecord, 1)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	if m.record != nil {
		ch <- m.record.Clone()
	}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()

	return ch, nil
}

func (m *MemoryRepository) appendActionLocked(mut *Mutation) {
	m.actions = append(m.actions, models.TimerAction{
		ID:          uuid.New(),
		Action:      mut.Action,
		Details:     mut.Details,
		DurationSec: mut.Record.DurationSec,
		Status:      mut.Record.Status,
		CreatedAt:   mut.Record.UpdatedAt,
	})
	if len(m.actions) > memoryActionLogSize {
		m.actions = m.actions[len(m.actions)-memoryActionLogSize:]
	}
}

// publishLocked must be called with m.mu held; it is the only sender.
func (m *MemoryRepository) publishLocked() {
	for ch := range m.subs {
		rec := m.record.Clone()
		select {
		case ch <- rec:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- rec
		}
	}
}
