package importerservice

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
	"github.com/combine-hq/combine-server/internal/observability"
)

// ------------------------
// Fake Repo
// ------------------------

type FakeRepo struct {
	trace []string

	SubmitRowsFunc         func(ctx context.Context, req *importerdb.SubmitRequest) (*domain.SubmitResult, error)
	RevertImportFunc       func(ctx context.Context, eventID, undoToken, actorID string) (int, error)
	GetHistoryFunc         func(ctx context.Context, eventID string, limit int) ([]domain.ImportHistoryEntry, error)
	ExistingPlayerKeysFunc func(ctx context.Context, eventID string) (map[string]bool, error)
}

func NewFakeRepo() *FakeRepo { return &FakeRepo{} }

func (f *FakeRepo) Trace() []string { return f.trace }

func (f *FakeRepo) SubmitRows(ctx context.Context, req *importerdb.SubmitRequest) (*domain.SubmitResult, error) {
	f.trace = append(f.trace, "SubmitRows")
	if f.SubmitRowsFunc != nil {
		return f.SubmitRowsFunc(ctx, req)
	}
	return &domain.SubmitResult{
		Added:          len(req.Rows),
		CreatedPlayers: len(req.Rows),
		UndoLog:        "undo-token-1",
	}, nil
}

func (f *FakeRepo) RevertImport(ctx context.Context, eventID, undoToken, actorID string) (int, error) {
	f.trace = append(f.trace, "RevertImport")
	if f.RevertImportFunc != nil {
		return f.RevertImportFunc(ctx, eventID, undoToken, actorID)
	}
	return 0, nil
}

func (f *FakeRepo) GetHistory(ctx context.Context, eventID string, limit int) ([]domain.ImportHistoryEntry, error) {
	f.trace = append(f.trace, "GetHistory")
	if f.GetHistoryFunc != nil {
		return f.GetHistoryFunc(ctx, eventID, limit)
	}
	return nil, nil
}

func (f *FakeRepo) ExistingPlayerKeys(ctx context.Context, eventID string) (map[string]bool, error) {
	f.trace = append(f.trace, "ExistingPlayerKeys")
	if f.ExistingPlayerKeysFunc != nil {
		return f.ExistingPlayerKeysFunc(ctx, eventID)
	}
	return map[string]bool{}, nil
}

// ------------------------
// Fake Draft Store
// ------------------------

type FakeDraftDB struct {
	mu     sync.Mutex
	drafts map[string][]byte
	saved  map[string]time.Time

	SaveErr   error
	LoadErr   error
	DeleteErr error
}

func NewFakeDraftDB() *FakeDraftDB {
	return &FakeDraftDB{drafts: map[string][]byte{}, saved: map[string]time.Time{}}
}

func (f *FakeDraftDB) SaveDraft(ctx context.Context, eventID string, payload []byte, savedAt time.Time) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[eventID] = payload
	f.saved[eventID] = savedAt
	return nil
}

func (f *FakeDraftDB) LoadDraft(ctx context.Context, eventID string) ([]byte, time.Time, error) {
	if f.LoadErr != nil {
		return nil, time.Time{}, f.LoadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[eventID], f.saved[eventID], nil
}

func (f *FakeDraftDB) DeleteDraft(ctx context.Context, eventID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, eventID)
	delete(f.saved, eventID)
	return nil
}

func (f *FakeDraftDB) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, at := range f.saved {
		if at.Before(cutoff) {
			delete(f.drafts, id)
			delete(f.saved, id)
			n++
		}
	}
	return n, nil
}

func (f *FakeDraftDB) Has(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.drafts[eventID]
	return ok
}

// ------------------------
// Fake Schema Provider
// ------------------------

type FakeSchemas struct {
	Schema *schemadomain.TargetSchema
	Err    error
}

func (f *FakeSchemas) GetEventSchema(ctx context.Context, eventID string) (*schemadomain.TargetSchema, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Schema, nil
}

// ------------------------
// Fake Event Bus
// ------------------------

type publishedMessage struct {
	Topic   string
	Message *message.Message
}

type FakeEventBus struct {
	mu        sync.Mutex
	Published []publishedMessage
}

func (f *FakeEventBus) Publish(topic string, msgs ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range msgs {
		f.Published = append(f.Published, publishedMessage{Topic: topic, Message: msg})
	}
	return nil
}

func (f *FakeEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (f *FakeEventBus) Close() error { return nil }

func (f *FakeEventBus) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.Published {
		out = append(out, p.Topic)
	}
	return out
}

// ------------------------
// Fake Clock
// ------------------------

type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ------------------------
// Test wiring
// ------------------------

func testSchema() *schemadomain.TargetSchema {
	return &schemadomain.TargetSchema{
		StandardFields: schemadomain.DefaultStandardFields(),
		Drills: []schemadomain.DrillDefinition{
			{Key: "40m_dash", Label: "40m Dash", Unit: "s", LowerIsBetter: true, Min: 3, Max: 20},
			{Key: "vertical_jump", Label: "Vertical Jump", Unit: "in", Min: 0, Max: 60},
			{Key: "bench_press", Label: "Bench Press", Unit: "reps", Min: 0, Max: 60},
		},
		Presets: []schemadomain.DrillPreset{
			{Name: "Football Combine", Sport: "football", Drills: []string{"40m_dash", "vertical_jump", "bench_press"}},
		},
	}
}

type testEnv struct {
	service *ImportService
	repo    *FakeRepo
	drafts  *FakeDraftDB
	bus     *FakeEventBus
	clock   *FakeClock
	schemas *FakeSchemas
}

func newTestEnv() *testEnv {
	repo := NewFakeRepo()
	drafts := NewFakeDraftDB()
	bus := &FakeEventBus{}
	clock := NewFakeClock()
	schemas := &FakeSchemas{Schema: testSchema()}

	service := NewImportService(repo, drafts, schemas, bus, observability.NewNoOp(), Options{
		Clock: clock,
	})
	return &testEnv{service: service, repo: repo, drafts: drafts, bus: bus, clock: clock, schemas: schemas}
}

// startReviewSession drives a session from start through parse into review
// using pasted CSV content.
func (e *testEnv) startReviewSession(ctx context.Context, csv string, mode domain.ImportMode) (*domain.ImportSession, error) {
	res, err := e.service.StartSession(ctx, "event-1", "admin-1", mode)
	if err != nil {
		return nil, err
	}
	session := res.Success.(*domain.ImportSession)

	res, err = e.service.ProvideSource(ctx, session.ID, SourceInput{
		Method:  domain.MethodPaste,
		Payload: []byte(csv),
	})
	if err != nil {
		return nil, err
	}
	if res.Failure != nil {
		return session, nil
	}
	return res.Success.(*domain.ImportSession), nil
}
