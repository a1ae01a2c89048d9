package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/transaction"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/memory"
	paymentinfra "github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/signing"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/retry"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// recordingPublisher は配信されたイベントを記録する
type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		names = append(names, event.Name(ev))
	}
	return names
}

func (p *recordingPublisher) Count(name string) int {
	n := 0
	for _, got := range p.Names() {
		if got == name {
			n++
		}
	}
	return n
}

// fakeCache は SlotCache のインメモリ実装
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]slot.Availability
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]slot.Availability)}
}

func (c *fakeCache) GetAvailability(_ context.Context, slotID string) (*slot.Availability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[slotID]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	return &a, nil
}

func (c *fakeCache) SetAvailability(_ context.Context, a slot.Availability, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[a.SlotID] = a
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, slotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, slotID)
	c.invalidated = append(c.invalidated, slotID)
	return nil
}

type testEnv struct {
	clock    *clock.Manual
	store    *memory.LedgerStore
	tickets  *memory.TicketStore
	comps    *memory.CompensationRepository
	sandbox  *paymentinfra.Sandbox
	signer   *signing.Signer
	events   *recordingPublisher
	cache    *fakeCache
	slots    *SlotService
	alloc    *Allocator
	expiry   *ExpiryService
	issuer   *CredentialIssuer
	payments *PaymentCoordinator
	checkin  *CheckInValidator
}

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pub, priv, err := signing.GenerateKeypair()
	require.NoError(t, err)

	env := &testEnv{
		clock:   clock.NewManual(baseTime),
		store:   memory.NewLedgerStore(),
		tickets: memory.NewTicketStore(),
		comps:   memory.NewCompensationRepository(),
		sandbox: paymentinfra.NewSandbox(clock.NewSequence("intent")),
		signer:  signing.NewSigner(pub, priv),
		events:  &recordingPublisher{},
		cache:   newFakeCache(),
	}

	env.slots = NewSlotService(env.store, env.cache, env.clock, clock.NewSequence("slot"))
	env.alloc = NewAllocator(env.store, nil, env.slots, env.clock, clock.NewSequence("res"), 10*time.Minute, testPolicy(), nil)
	env.expiry = NewExpiryService(env.store, env.slots, env.events, env.clock, 100, nil)
	env.issuer = NewCredentialIssuer(env.store, env.tickets, env.signer, env.events, env.clock, nil)
	env.payments = NewPaymentCoordinator(env.store, env.sandbox, env.comps, env.issuer, env.slots, env.events, env.clock, clock.NewSequence("comp"), testPolicy(), nil)
	env.checkin = NewCheckInValidator(env.store, env.tickets, env.signer, transaction.NoTx, env.slots, env.events, env.clock, nil)
	return env
}

// createSlot は24時間後に始まる枠を作成する
func (e *testEnv) createSlot(t *testing.T, capacity int) *slot.Slot {
	t.Helper()
	sl, err := e.slots.CreateSlot(context.Background(), CreateSlotInput{
		ResourceID: "venue-1",
		Name:       "センターコート 09:00",
		StartAt:    baseTime.Add(24 * time.Hour),
		EndAt:      baseTime.Add(25 * time.Hour),
		Capacity:   capacity,
		Price:      50000,
	})
	require.NoError(t, err)
	return sl
}

func (e *testEnv) reserved(t *testing.T, slotID string) int {
	t.Helper()
	sl, err := e.store.GetSlot(context.Background(), slotID)
	require.NoError(t, err)
	return sl.Reserved
}
