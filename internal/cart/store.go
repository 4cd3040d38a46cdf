package cart

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artmarket/artmarket-backend/pkg/enums"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

// StorageKey is the durable storage key holding the serialized lines.
const StorageKey = "cartItems"

const defaultWriteTimeout = 5 * time.Second

const (
	OpAdd      = "add"
	OpRemove   = "remove"
	OpIncrease = "increase"
	OpDecrease = "decrease"
	OpClear    = "clear"
	OpCheckout = "checkout"
)

// Snapshot is a point-in-time copy of a cart.
type Snapshot struct {
	Lines      []Line
	TotalPrice decimal.Decimal
	ItemCount  int
}

// Store holds the lines of one session. Mutations are serialized and each one
// that changes state is written through to Storage before the lock is released,
// so the stored value always matches the latest in-memory state.
//
// None of the operations return errors: storage failures are logged and
// counted, unknown lines are ignored.
type Store struct {
	mu           sync.Mutex
	sessionID    string
	lines        []Line
	storage      Storage
	logg         *logger.Logger
	observer     Observer
	writeTimeout time.Duration
	now          func() time.Time
	lastAccess   atomic.Int64
}

// StoreParams configure a Store.
type StoreParams struct {
	SessionID    string
	Storage      Storage
	Logger       *logger.Logger
	Observer     Observer
	WriteTimeout time.Duration
	Now          func() time.Time
}

// LoadStore seeds a Store from durable storage. A missing, unreadable or
// unparsable value yields an empty cart.
func LoadStore(ctx context.Context, params StoreParams) *Store {
	s := &Store{
		sessionID:    params.SessionID,
		storage:      params.Storage,
		logg:         params.Logger,
		observer:     params.Observer,
		writeTimeout: params.WriteTimeout,
		now:          params.Now,
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.touch()
	s.lines = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []Line {
	if s.storage == nil {
		return nil
	}
	raw, found, err := s.storage.Get(ctx, s.sessionID, StorageKey)
	if err != nil {
		s.observer.IncLoadFailure()
		s.logLoadFailure(ctx, "cart.load_failed", err)
		return nil
	}
	if !found {
		return nil
	}
	lines, err := decodeLines(raw)
	if err != nil {
		s.observer.IncLoadFailure()
		s.logLoadFailure(ctx, "cart.load_unparsable", err)
		return nil
	}
	return lines
}

// SessionID returns the session the store belongs to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// AddItem selects an item for purchase. An existing (id, type) line gains one
// unit, otherwise a new line with quantity 1 is appended. An empty type means
// artwork; an item without an id is ignored.
func (s *Store) AddItem(ctx context.Context, item Item, typ enums.PurchasableType) Snapshot {
	typ = typ.OrDefault()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if item.ID == "" {
		return s.snapshotLocked()
	}

	if idx := s.indexOf(item.ID, typ); idx >= 0 {
		s.lines[idx].Quantity++
	} else {
		line := Line{
			ID:       item.ID,
			Type:     typ,
			Price:    item.Price,
			Quantity: 1,
			Details:  item.Details,
		}
		s.lines = append(s.lines, line.clone())
	}
	s.persistLocked(ctx, OpAdd)
	return s.snapshotLocked()
}

// RemoveItem drops the (id, type) line regardless of its quantity.
func (s *Store) RemoveItem(ctx context.Context, id LineID, typ enums.PurchasableType) Snapshot {
	typ = typ.OrDefault()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if idx := s.indexOf(id, typ); idx >= 0 {
		s.lines = slices.Delete(s.lines, idx, idx+1)
		s.persistLocked(ctx, OpRemove)
	}
	return s.snapshotLocked()
}

// IncreaseQuantity adds one unit to an existing line. It never creates lines.
func (s *Store) IncreaseQuantity(ctx context.Context, id LineID, typ enums.PurchasableType) Snapshot {
	typ = typ.OrDefault()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if idx := s.indexOf(id, typ); idx >= 0 {
		s.lines[idx].Quantity++
		s.persistLocked(ctx, OpIncrease)
	}
	return s.snapshotLocked()
}

// DecreaseQuantity removes one unit; a line reaching zero is removed.
func (s *Store) DecreaseQuantity(ctx context.Context, id LineID, typ enums.PurchasableType) Snapshot {
	typ = typ.OrDefault()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	idx := s.indexOf(id, typ)
	if idx < 0 {
		return s.snapshotLocked()
	}
	s.lines[idx].Quantity--
	if s.lines[idx].Quantity <= 0 {
		s.lines = slices.Delete(s.lines, idx, idx+1)
	}
	s.persistLocked(ctx, OpDecrease)
	return s.snapshotLocked()
}

// Clear empties the cart. The empty state is always written.
func (s *Store) Clear(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.lines = nil
	s.persistLocked(ctx, OpClear)
	return s.snapshotLocked()
}

// RemoveLines takes the given quantities out of the cart, typically the lines
// of a snapshot that was just paid for. Units added since the snapshot stay.
func (s *Store) RemoveLines(ctx context.Context, lines []Line) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	changed := false
	for _, line := range lines {
		idx := s.indexOf(line.ID, line.Type.OrDefault())
		if idx < 0 || line.Quantity <= 0 {
			continue
		}
		s.lines[idx].Quantity -= line.Quantity
		if s.lines[idx].Quantity <= 0 {
			s.lines = slices.Delete(s.lines, idx, idx+1)
		}
		changed = true
	}
	if changed {
		s.persistLocked(ctx, OpCheckout)
	}
	return s.snapshotLocked()
}

// TotalPrice sums price × quantity over all lines, recomputed on every call.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.lines)
}

// Lines returns a copy of the lines in display order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Snapshot returns the lines together with their derived totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.snapshotLocked()
}

func (s *Store) idleSince() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// touch records an access. It does not need s.mu.
func (s *Store) touch() {
	s.lastAccess.Store(s.now().UnixNano())
}

func (s *Store) indexOf(id LineID, typ enums.PurchasableType) int {
	return slices.IndexFunc(s.lines, func(l Line) bool {
		return l.matches(id, typ)
	})
}

func (s *Store) snapshotLocked() Snapshot {
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return Snapshot{
		Lines:      cloneLines(s.lines),
		TotalPrice: totalOf(s.lines),
		ItemCount:  count,
	}
}

func (s *Store) persistLocked(ctx context.Context, op string) {
	s.observer.IncMutation(op)
	if s.storage == nil {
		return
	}

	payload, err := encodeLines(s.lines)
	if err != nil {
		s.observer.IncPersistFailure(op)
		s.logPersistFailure(ctx, op, err)
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	if err := s.storage.Set(writeCtx, s.sessionID, StorageKey, payload); err != nil {
		s.observer.IncPersistFailure(op)
		s.logPersistFailure(ctx, op, err)
	}
}

func (s *Store) logLoadFailure(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"session_id": s.sessionID,
		"error":      err.Error(),
	})
	s.logg.Warn(ctx, msg)
}

func (s *Store) logPersistFailure(ctx context.Context, op string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"session_id": s.sessionID,
		"op":         op,
	})
	s.logg.Error(ctx, "cart.persist_failed", err)
}

func totalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.clone())
	}
	return out
}

func encodeLines(lines []Line) (string, error) {
	if len(lines) == 0 {
		return "[]", nil
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// decodeLines parses a stored cartItems value. Lines without an id or with a
// quantity below one are dropped, a missing type means artwork, and duplicate
// (id, type) entries are folded into the first occurrence.
func decodeLines(raw string) ([]Line, error) {
	var stored []Line
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(stored))
	for _, line := range stored {
		if line.ID == "" || line.Quantity < 1 {
			continue
		}
		line.Type = line.Type.OrDefault()
		idx := slices.IndexFunc(lines, func(l Line) bool {
			return l.matches(line.ID, line.Type)
		})
		if idx >= 0 {
			lines[idx].Quantity += line.Quantity
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
