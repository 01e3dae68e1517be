package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnish-service/internal/matcher"
	"furnish-service/internal/models"
	"furnish-service/internal/store"
)

// fakeCatalog filters by category, price, stock and image. Room type, style and sources are ignored.
type fakeCatalog struct {
	products []models.Product
	err      error

	mu      sync.Mutex
	queries []models.ProductQuery
}

func (c *fakeCatalog) Search(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	return c.SearchProducts(ctx, q)
}

func (c *fakeCatalog) SearchProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	var out []models.Product
	for _, p := range c.products {
		if !p.InStock {
			continue
		}
		if len(q.Categories) > 0 && !contains(q.Categories, p.Category) {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		if q.RequireUsableImage && (!p.ImageUsable || !p.HasImage()) {
			continue
		}
		out = append(out, p)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (c *fakeCatalog) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	for i := range c.products {
		if c.products[i].ID == id {
			p := c.products[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
}

func (c *fakeCatalog) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type fakeStore struct {
	mu        sync.Mutex
	designs   map[string]*models.Design
	processed map[string]bool
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{designs: map[string]*models.Design{}, processed: map[string]bool{}}
}

func (s *fakeStore) CreateDesign(ctx context.Context, d *models.Design) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *d
	s.designs[d.ID] = &cp
	return nil
}

func (s *fakeStore) GetDesignByID(ctx context.Context, id string) (*models.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[id]
	if !ok {
		return nil, fmt.Errorf("design %s: %w", id, store.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) GetDesignByIdempotencyKey(ctx context.Context, key string) (*models.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.designs {
		if d.IdempotencyKey == key {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateDesignOutcome(ctx context.Context, id, status, result, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[id]
	if !ok {
		return fmt.Errorf("design %s: %w", id, store.ErrNotFound)
	}
	d.Status, d.Result, d.Error = status, result, errMsg
	return nil
}

func (s *fakeStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

func (s *fakeStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[eventID] = true
	return nil
}

type fakeLocker struct {
	mu     sync.Mutex
	claims map[string]string
	locks  map[string]string
	ttls   []time.Duration
	err    error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{claims: map[string]string{}, locks: map[string]string{}}
}

func (l *fakeLocker) ClaimIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if existing, ok := l.claims[key]; ok {
		return existing, false, nil
	}
	l.claims[key] = value
	return "", true, nil
}

func (l *fakeLocker) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, key)
	return nil
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	l.ttls = append(l.ttls, ttl)
	if _, held := l.locks[key]; held {
		return "", false, nil
	}
	token := "token-" + key
	l.locks[key] = token
	return token, true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] == token {
		delete(l.locks, key)
	}
	return nil
}

type fakeEvents struct {
	mu         sync.Mutex
	requested  []*models.DesignRequestedEvent
	matched    []*models.DesignMatchedEvent
	failed     []*models.DesignFailedEvent
	publishErr error
}

func (e *fakeEvents) PublishDesignRequested(ctx context.Context, event *models.DesignRequestedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.publishErr != nil {
		return e.publishErr
	}
	e.requested = append(e.requested, event)
	return nil
}

func (e *fakeEvents) PublishDesignMatched(ctx context.Context, event *models.DesignMatchedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matched = append(e.matched, event)
	return nil
}

func (e *fakeEvents) PublishDesignFailed(ctx context.Context, event *models.DesignFailedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, event)
	return nil
}

func item(id, category string, price float64) models.Product {
	key := "products/" + id + ".jpg"
	return models.Product{
		ID:           id,
		Name:         strings.ToUpper(id[:1]) + id[1:],
		Category:     category,
		Price:        price,
		Currency:     "EUR",
		InStock:      true,
		SourceDomain: "ikea.bg",
		ProductURL:   "https://ikea.bg/" + id,
		ImageKey:     &key,
		ImageUsable:  true,
	}
}

func furnitureCatalog() *fakeCatalog {
	blurry := item("noimage", "sofa", 550)
	blurry.ImageUsable = false
	return &fakeCatalog{products: []models.Product{
		item("bed", "bed", 500),
		item("mattress", "mattress", 300),
		item("wardrobe", "wardrobe", 400),
		item("desk", "desk", 300),
		item("chair", "office chair", 150),
		item("sofa", "sofa", 600),
		blurry,
	}}
}

type fixture struct {
	svc     *DesignService
	catalog *fakeCatalog
	store   *fakeStore
	locker  *fakeLocker
	events  *fakeEvents
}

func newFixture(catalog *fakeCatalog) *fixture {
	f := &fixture{
		catalog: catalog,
		store:   newFakeStore(),
		locker:  newFakeLocker(),
		events:  &fakeEvents{},
	}
	m := matcher.New(matcher.DefaultTables(), catalog)
	f.svc = NewDesignService(f.store, catalog, f.locker, f.events, m, Settings{
		FurnishTimeout: 5 * time.Second,
		ImageURL:       func(key string) string { return "https://img.example.com/" + key },
	})
	return f
}

func bedroom() models.RoomLayout {
	return models.RoomLayout{ID: "bed-1", Type: "bedroom", AreaSqm: 12}
}

func office() models.RoomLayout {
	return models.RoomLayout{ID: "office-1", Type: "office", AreaSqm: 10}
}

func TestMatchRoomValidation(t *testing.T) {
	f := newFixture(furnitureCatalog())

	tests := []struct {
		name string
		req  MatchRoomRequest
		want error
	}{
		{"budget below minimum", MatchRoomRequest{Room: bedroom(), Budget: 99, Tier: "standard"}, ErrInvalidRequest},
		{"budget above maximum", MatchRoomRequest{Room: bedroom(), Budget: 50001, Tier: "standard"}, ErrInvalidRequest},
		{"unknown tier", MatchRoomRequest{Room: bedroom(), Budget: 1000, Tier: "gold"}, ErrInvalidRequest},
		{"unknown style", MatchRoomRequest{Room: bedroom(), Budget: 1000, Style: "baroque"}, ErrInvalidRequest},
		{"unknown room type", MatchRoomRequest{Room: models.RoomLayout{Type: "garage"}, Budget: 1000}, matcher.ErrUnknownRoomType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.MatchRoom(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMatchRoom(t *testing.T) {
	f := newFixture(furnitureCatalog())

	result, err := f.svc.MatchRoom(context.Background(), &MatchRoomRequest{
		Room:   bedroom(),
		Budget: 3000,
		Style:  "modern",
	})
	require.NoError(t, err)

	assert.Equal(t, matcher.TierStandard, result.Tier)
	assert.Equal(t, 3, result.ProductCount)
	assert.True(t, result.FullyFurnished())
	assert.True(t, result.BudgetSpent.Equal(decimal.NewFromInt(1200)), result.BudgetSpent.String())
	assert.True(t, result.BudgetSpent.LessThanOrEqual(result.BudgetTotal))
}

func TestMatchRoomNothingMatched(t *testing.T) {
	f := newFixture(&fakeCatalog{})

	_, err := f.svc.MatchRoom(context.Background(), &MatchRoomRequest{Room: bedroom(), Budget: 3000})
	assert.ErrorIs(t, err, ErrNothingMatched)
}

func TestDistribute(t *testing.T) {
	f := newFixture(furnitureCatalog())

	shares, err := f.svc.Distribute(context.Background(), &DistributeRequest{
		Rooms:  []models.RoomLayout{bedroom(), office()},
		Budget: 4500,
	})
	require.NoError(t, err)
	assert.Equal(t, "3000", shares["bed-1"].String())
	assert.Equal(t, "1500", shares["office-1"].String())

	_, err = f.svc.Distribute(context.Background(), &DistributeRequest{Budget: 100})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.Distribute(context.Background(), &DistributeRequest{
		Rooms:  []models.RoomLayout{{ID: "a", Type: "bedroom"}, {ID: "a", Type: "office"}},
		Budget: 100,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFurnishRooms(t *testing.T) {
	f := newFixture(furnitureCatalog())

	view, err := f.svc.FurnishRooms(context.Background(), &FurnishRequest{
		Rooms:  []models.RoomLayout{bedroom(), office()},
		Budget: 4500,
		Tier:   "standard",
	})
	require.NoError(t, err)
	require.NotNil(t, view.Result)

	assert.Equal(t, models.DesignStatusMatched, view.Status)
	require.Len(t, view.Result.Rooms, 2)
	assert.Equal(t, "bed-1", view.Result.Rooms[0].RoomID)
	assert.Equal(t, "office-1", view.Result.Rooms[1].RoomID)
	assert.Equal(t, "3000", view.Result.Rooms[0].Budget.String())
	assert.Equal(t, "1500", view.Result.Rooms[1].Budget.String())
	assert.Equal(t, 5, view.Result.ProductCount)
	assert.Empty(t, view.Result.UnmetSlots)
	assert.True(t, view.Result.BudgetSpent.Equal(decimal.NewFromInt(1650)), view.Result.BudgetSpent.String())
	assert.True(t, view.Result.BudgetRemaining.Equal(decimal.NewFromInt(2850)))

	stored, err := f.store.GetDesignByID(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusMatched, stored.Status)
	assert.NotEmpty(t, stored.Result)
	assert.Contains(t, stored.Request, `"office-1"`)

	require.Len(t, f.events.matched, 1)
	ev := f.events.matched[0]
	assert.Equal(t, view.ID, ev.DesignID)
	assert.Equal(t, 4500.0, ev.BudgetTotal)
	assert.Equal(t, 1650.0, ev.BudgetSpent)
	require.Len(t, ev.RoomAllocations, 2)
	assert.Equal(t, models.RoomBudgetData{RoomID: "office-1", Budget: 1500, Spent: 450}, ev.RoomAllocations[1])
}

func TestFurnishRoomsUnknownRoomTypeFailsBeforeMatching(t *testing.T) {
	f := newFixture(furnitureCatalog())

	_, err := f.svc.FurnishRooms(context.Background(), &FurnishRequest{
		Rooms:  []models.RoomLayout{bedroom(), {ID: "g", Type: "garage"}},
		Budget: 4500,
	})
	assert.ErrorIs(t, err, matcher.ErrUnknownRoomType)
	assert.Zero(t, f.catalog.queryCount())
	assert.Empty(t, f.store.designs)
	assert.Empty(t, f.events.matched)
}

func TestFurnishRoomsIdempotencyKey(t *testing.T) {
	f := newFixture(furnitureCatalog())
	req := func() *FurnishRequest {
		return &FurnishRequest{Rooms: []models.RoomLayout{bedroom()}, Budget: 3000, IdempotencyKey: "k-1"}
	}

	first, err := f.svc.FurnishRooms(context.Background(), req())
	require.NoError(t, err)
	queries := f.catalog.queryCount()

	second, err := f.svc.FurnishRooms(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Result)
	assert.Equal(t, first.Result.ProductCount, second.Result.ProductCount)
	assert.Equal(t, queries, f.catalog.queryCount())
	assert.Len(t, f.events.matched, 1)
}

func TestFurnishRoomsCatalogFailure(t *testing.T) {
	f := newFixture(&fakeCatalog{err: errors.New("connection refused")})

	_, err := f.svc.FurnishRooms(context.Background(), &FurnishRequest{
		Rooms:  []models.RoomLayout{bedroom()},
		Budget: 3000,
	})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, matcher.ErrCatalogUnavailable)
	assert.Empty(t, f.store.designs)
}

func TestRequestDesign(t *testing.T) {
	f := newFixture(furnitureCatalog())
	req := func() *FurnishRequest {
		return &FurnishRequest{
			Rooms:          []models.RoomLayout{{Type: "bedroom", AreaSqm: 12}},
			Budget:         3000,
			Tier:           "premium",
			IdempotencyKey: "async-1",
		}
	}

	design, err := f.svc.RequestDesign(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusPending, design.Status)
	assert.Equal(t, "premium", design.Tier)
	assert.Equal(t, "async-1", design.IdempotencyKey)

	require.Len(t, f.events.requested, 1)
	ev := f.events.requested[0]
	assert.Equal(t, design.ID, ev.DesignID)
	assert.Equal(t, models.EventTypeDesignRequested, ev.EventType)
	require.Len(t, ev.Rooms, 1)
	assert.Equal(t, "room-1", ev.Rooms[0].ID)
	assert.Zero(t, f.catalog.queryCount())

	again, err := f.svc.RequestDesign(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, design.ID, again.ID)
	assert.Len(t, f.events.requested, 1)
}

func TestRequestDesignInFlight(t *testing.T) {
	f := newFixture(furnitureCatalog())
	f.locker.claims["busy"] = "not-yet-stored"

	_, err := f.svc.RequestDesign(context.Background(), &FurnishRequest{
		Rooms: []models.RoomLayout{bedroom()}, Budget: 3000, IdempotencyKey: "busy",
	})
	assert.ErrorIs(t, err, ErrInFlight)
}

func TestRequestDesignPublishFailure(t *testing.T) {
	f := newFixture(furnitureCatalog())
	f.events.publishErr = errors.New("broker down")

	_, err := f.svc.RequestDesign(context.Background(), &FurnishRequest{
		Rooms: []models.RoomLayout{bedroom()}, Budget: 3000, IdempotencyKey: "pub-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsRetryable(err))

	require.Len(t, f.store.designs, 1)
	for _, d := range f.store.designs {
		assert.Equal(t, models.DesignStatusFailed, d.Status)
		assert.Equal(t, "broker down", d.Error)
	}
	assert.NotContains(t, f.locker.claims, "pub-1")
}

func TestRequestDesignLockerUnavailable(t *testing.T) {
	f := newFixture(furnitureCatalog())
	f.locker.err = errors.New("redis down")

	_, err := f.svc.RequestDesign(context.Background(), &FurnishRequest{
		Rooms: []models.RoomLayout{bedroom()}, Budget: 3000,
	})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, f.store.designs)
}

func TestHandleDesignRequested(t *testing.T) {
	f := newFixture(furnitureCatalog())
	ctx := context.Background()

	design, err := f.svc.RequestDesign(ctx, &FurnishRequest{
		Rooms:  []models.RoomLayout{bedroom(), office()},
		Budget: 4500,
	})
	require.NoError(t, err)
	event := f.events.requested[0]

	require.NoError(t, f.svc.HandleDesignRequested(ctx, event))

	view, err := f.svc.GetDesign(ctx, design.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusMatched, view.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, 5, view.Result.ProductCount)
	assert.True(t, view.Result.BudgetSpent.Equal(decimal.NewFromInt(1650)))

	require.Len(t, f.events.matched, 1)
	assert.True(t, f.store.processed[event.EventID])
	assert.Empty(t, f.locker.locks)

	queries := f.catalog.queryCount()
	require.NoError(t, f.svc.HandleDesignRequested(ctx, event))
	assert.Equal(t, queries, f.catalog.queryCount())
	assert.Len(t, f.events.matched, 1)
}

func TestHandleDesignRequestedLockHeld(t *testing.T) {
	f := newFixture(furnitureCatalog())
	ctx := context.Background()

	design, err := f.svc.RequestDesign(ctx, &FurnishRequest{Rooms: []models.RoomLayout{bedroom()}, Budget: 3000})
	require.NoError(t, err)
	f.locker.locks["design:"+design.ID] = "someone-else"

	require.NoError(t, f.svc.HandleDesignRequested(ctx, f.events.requested[0]))

	stored, err := f.store.GetDesignByID(ctx, design.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusPending, stored.Status)
	assert.Zero(t, f.catalog.queryCount())
	assert.Equal(t, "someone-else", f.locker.locks["design:"+design.ID])
}

func TestHandleDesignRequestedCatalogFailure(t *testing.T) {
	f := newFixture(furnitureCatalog())
	ctx := context.Background()

	design, err := f.svc.RequestDesign(ctx, &FurnishRequest{Rooms: []models.RoomLayout{bedroom()}, Budget: 3000})
	require.NoError(t, err)
	f.catalog.err = errors.New("timeout")

	require.NoError(t, f.svc.HandleDesignRequested(ctx, f.events.requested[0]))

	stored, err := f.store.GetDesignByID(ctx, design.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "catalog")

	require.Len(t, f.events.failed, 1)
	assert.True(t, f.events.failed[0].Retryable)
	assert.Equal(t, design.ID, f.events.failed[0].DesignID)
	assert.Empty(t, f.events.matched)

	// settled: a redelivery does not furnish again, the client resubmits
	event := f.events.requested[0]
	assert.True(t, f.store.processed[event.EventID])
	f.catalog.err = nil
	require.NoError(t, f.svc.HandleDesignRequested(ctx, event))
	assert.Len(t, f.events.failed, 1)
	assert.Empty(t, f.events.matched)
}

func TestHandleDesignRequestedSettledDesign(t *testing.T) {
	f := newFixture(furnitureCatalog())
	ctx := context.Background()

	design, err := f.svc.RequestDesign(ctx, &FurnishRequest{Rooms: []models.RoomLayout{bedroom()}, Budget: 3000})
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateDesignOutcome(ctx, design.ID, models.DesignStatusFailed, "", "cancelled"))

	event := f.events.requested[0]
	require.NoError(t, f.svc.HandleDesignRequested(ctx, event))
	assert.Zero(t, f.catalog.queryCount())
	assert.True(t, f.store.processed[event.EventID])
}

func TestGetDesignNotFound(t *testing.T) {
	f := newFixture(furnitureCatalog())

	_, err := f.svc.GetDesign(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAlternatives(t *testing.T) {
	f := newFixture(furnitureCatalog())

	alts, err := f.svc.Alternatives(context.Background(), "sofa", "Living Room", 0)
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, "sofa", alts[0].ID)
	assert.Equal(t, "https://img.example.com/products/sofa.jpg", alts[0].ImageURL)
	assert.Equal(t, "ikea.bg", alts[0].Source)

	q := f.catalog.queries[0]
	assert.Equal(t, DefaultAlternativesLimit, q.Limit)
	assert.True(t, q.RequireUsableImage)
	assert.Equal(t, []string{"sofa", "corner sofa", "sofa bed"}, q.Categories)

	_, err = f.svc.Alternatives(context.Background(), "sofa", "", 500)
	require.NoError(t, err)
	assert.Equal(t, MaxAlternativesLimit, f.catalog.queries[1].Limit)

	_, err = f.svc.Alternatives(context.Background(), "jacuzzi", "bathroom", 5)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = f.svc.Alternatives(context.Background(), " ", "", 5)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(furnitureCatalog())
	lo, hi := 200.0, 450.0

	products, err := f.svc.SearchProducts(context.Background(), &SearchRequest{
		Category: "wardrobe",
		RoomType: "Kids Room",
		MinPrice: &lo,
		MaxPrice: &hi,
		Source:   "ikea.bg",
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "wardrobe", products[0].ID)

	q := f.catalog.queries[0]
	assert.Equal(t, "kids_room", q.RoomType)
	assert.Equal(t, []string{"wardrobe"}, q.Categories)
	assert.Equal(t, []string{"ikea.bg"}, q.PreferredSources)
	assert.Equal(t, DefaultSearchLimit, q.Limit)

	_, err = f.svc.SearchProducts(context.Background(), &SearchRequest{MinPrice: &hi, MaxPrice: &lo})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.SearchProducts(context.Background(), &SearchRequest{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, f.catalog.queries[1].Limit)
}

func TestSearchProductsCatalogFailure(t *testing.T) {
	f := newFixture(&fakeCatalog{err: errors.New("connection reset")})

	_, err := f.svc.SearchProducts(context.Background(), &SearchRequest{})
	assert.True(t, IsRetryable(err))
}

func TestGetProduct(t *testing.T) {
	f := newFixture(furnitureCatalog())

	p, err := f.svc.GetProduct(context.Background(), "desk")
	require.NoError(t, err)
	assert.Equal(t, "desk", p.Category)

	_, err = f.svc.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTiers(t *testing.T) {
	f := newFixture(furnitureCatalog())

	tiers := f.svc.Tiers(0)
	require.Len(t, tiers, 4)
	order := make([]matcher.Tier, len(tiers))
	for i, ti := range tiers {
		order[i] = ti.Tier
	}
	assert.Equal(t, []matcher.Tier{matcher.TierBudget, matcher.TierStandard, matcher.TierPremium, matcher.TierLuxury}, order)
	assert.Nil(t, tiers[0].SuggestedBudget)

	withArea := f.svc.Tiers(20)
	require.NotNil(t, withArea[1].SuggestedBudget)
	assert.Equal(t, matcher.Range{Min: 1600, Max: 3000}, *withArea[1].SuggestedBudget)
}

func TestDesignLockOutlivesFurnishTimeout(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     time.Duration
	}{
		{"defaults", Settings{}, time.Minute},
		{"lock shorter than timeout", Settings{LockTTL: 5 * time.Second, FurnishTimeout: 2 * time.Minute}, 2*time.Minute + lockGrace},
		{"lock already long enough", Settings{LockTTL: 5 * time.Minute, FurnishTimeout: time.Minute}, 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := furnitureCatalog()
			designs := newFakeStore()
			locker := newFakeLocker()
			events := &fakeEvents{}
			svc := NewDesignService(designs, cat, locker, events, matcher.New(matcher.DefaultTables(), cat), tt.settings)
			assert.Equal(t, tt.want, svc.settings.LockTTL)
			assert.Greater(t, svc.settings.LockTTL, svc.settings.FurnishTimeout)

			ctx := context.Background()
			_, err := svc.RequestDesign(ctx, &FurnishRequest{Rooms: []models.RoomLayout{bedroom()}, Budget: 3000})
			require.NoError(t, err)
			require.NoError(t, svc.HandleDesignRequested(ctx, events.requested[0]))

			require.Len(t, locker.ttls, 1)
			assert.Equal(t, tt.want, locker.ttls[0])
		})
	}
}
