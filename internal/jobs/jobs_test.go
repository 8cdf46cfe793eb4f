package jobs

import (
	"context"
	"io"
	"math"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jogardn/flashfood-datagen/internal/backend"
	"github.com/jogardn/flashfood-datagen/internal/feed"
	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/internal/mockbackend"
	"github.com/jogardn/flashfood-datagen/internal/scheduler"
	"github.com/jogardn/flashfood-datagen/internal/seeding"
	"github.com/jogardn/flashfood-datagen/internal/synth"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

type harness struct {
	client *backend.Client
	cache  *seeding.Cache
	set    *Set
	synth  *synth.Synthesizer
	feed   *feed.Recorder
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newHarness(t *testing.T, seed int64) *harness {
	t.Helper()
	return newHarnessWithFloor(t, seed, seeding.DefaultFloor)
}

func newHarnessWithFloor(t *testing.T, seed int64, floor int) *harness {
	t.Helper()
	logger := quietLogger()

	store, err := mockbackend.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(mockbackend.NewServer(store, logger, mockbackend.Config{}).Router())
	t.Cleanup(srv.Close)

	client := backend.NewClient(srv.URL, logger)
	rec := &feed.Recorder{}
	gen := generator.New(seed)
	ensurer := seeding.NewEnsurer(client, logger, seeding.WithFloor(floor), seeding.WithDelay(0), seeding.WithSink(rec))
	preparer, err := seeding.NewPreparer(ensurer, gen, logger, seeding.WithCustomerDelay(0))
	require.NoError(t, err)
	cache := seeding.NewCache(preparer, time.Minute, logger)

	cfg := synth.DefaultConfig()
	cfg.MinCustomers = ensurer.Floor()
	s := synth.New(cache, ensurer, gen, logger, cfg, rec)
	return &harness{
		client: client,
		cache:  cache,
		set:    NewSet(ensurer, cache, s, gen, logger),
		synth:  s,
		feed:   rec,
	}
}

func TestUserJobCreatesUserFirst(t *testing.T) {
	h := newHarness(t, 11)
	ctx := context.Background()

	outcomes := map[string]int{}
	for i := 0; i < 10; i++ {
		outcome, err := h.set.User(ctx)
		require.NoError(t, err)
		outcomes[outcome]++
	}
	assert.Equal(t, 10, outcomes[OutcomeCreatedCustomer]+outcomes[OutcomeCreatedDriver])

	var users []models.User
	require.NoError(t, h.client.List(ctx, models.CollectionUsers, &users))
	assert.Len(t, users, 10)

	byID := map[string]models.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	var customers []models.Customer
	require.NoError(t, h.client.List(ctx, models.CollectionCustomers, &customers))
	for _, c := range customers {
		assert.True(t, byID[c.UserID].HasRole(models.UserTypeCustomer))
	}
	var drivers []models.Driver
	require.NoError(t, h.client.List(ctx, models.CollectionDrivers, &drivers))
	for _, d := range drivers {
		assert.True(t, byID[d.UserID].HasRole(models.UserTypeDriver))
	}
	assert.Equal(t, outcomes[OutcomeCreatedCustomer], len(customers))
	assert.Equal(t, outcomes[OutcomeCreatedDriver], len(drivers))
	assert.Equal(t, 20, h.feed.Count(feed.RecordCreated, ""))
}

func TestOrderJobAgainstMockBackend(t *testing.T) {
	h := newHarness(t, 12)
	ctx := context.Background()

	created := 0
	for i := 0; i < 40; i++ {
		outcome, err := h.set.Order(ctx)
		if outcome == string(synth.StatusCreated) {
			require.NoError(t, err)
			created++
		}
		assert.NotEqual(t, string(synth.StatusFailed), outcome, "mock backend rejected an order: %v", err)
	}

	require.Positive(t, created, "no order was created against seeded data")

	var orders []models.Order
	require.NoError(t, h.client.List(ctx, models.CollectionOrders, &orders))
	assert.Len(t, orders, created)
	assert.Equal(t, created, h.feed.Count(feed.RecordCreated, models.CollectionOrders))

	dc := h.cache.Cached()
	require.NotNil(t, dc)
	for collection, n := range dc.Summary() {
		assert.GreaterOrEqual(t, n, seeding.DefaultFloor, collection)
	}

	addresses := map[string]*models.Location{}
	for _, a := range dc.Addresses {
		addresses[a.ID] = a.Location
	}
	for _, o := range orders {
		require.NotEmpty(t, o.OrderItems, o.ID)
		sum := 0.0
		for _, it := range o.OrderItems {
			sum += it.PriceAfterAppliedPromotion * float64(it.Quantity)
		}
		want := math.Round((sum+o.DeliveryFee+o.ServiceFee)*100) / 100
		assert.InDelta(t, want, o.TotalAmount, 0.0051, o.ID)

		from, ok := addresses[o.CustomerLocation]
		require.True(t, ok, "unknown customer location %s", o.CustomerLocation)
		to, ok := addresses[o.RestaurantLocation]
		require.True(t, ok, "unknown restaurant location %s", o.RestaurantLocation)
		assert.Equal(t, synth.Distance(from, to), o.Distance, o.ID)
	}
}

func TestOrderJobWithLowerFloor(t *testing.T) {
	h := newHarnessWithFloor(t, 21, 5)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		out := h.synth.Tick(ctx)
		assert.NotEqual(t, synth.StatusFailed, out.Status, "mock backend rejected an order: %v", out.Err)
		assert.NotEqual(t, "not enough customers", out.Reason)
		assert.NotEmpty(t, out.CustomerID)
	}

	var customers []models.Customer
	require.NoError(t, h.client.List(ctx, models.CollectionCustomers, &customers))
	assert.Len(t, customers, 5)
}

func TestCustomerCareJob(t *testing.T) {
	h := newHarness(t, 13)
	ctx := context.Background()

	outcomes := map[string]int{}
	for i := 0; i < 12; i++ {
		outcome, err := h.set.CustomerCare(ctx)
		require.NoError(t, err)
		outcomes[outcome]++
	}
	assert.NotZero(t, outcomes[OutcomeCreatedStaff])
	assert.NotZero(t, outcomes[OutcomeCreatedInquiry])

	var staff []models.CustomerCare
	require.NoError(t, h.client.List(ctx, models.CollectionCustomerCares, &staff))
	assert.Len(t, staff, outcomes[OutcomeCreatedStaff])

	var inquiries []models.Inquiry
	require.NoError(t, h.client.List(ctx, models.CollectionCustomerInquiries, &inquiries))
	assert.Len(t, inquiries, outcomes[OutcomeCreatedInquiry])
}

func TestRestaurantJob(t *testing.T) {
	h := newHarness(t, 14)
	ctx := context.Background()

	outcome, err := h.set.Restaurant(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	var restaurants []models.Restaurant
	require.NoError(t, h.client.List(ctx, models.CollectionRestaurants, &restaurants))
	assert.Len(t, restaurants, seeding.DefaultFloor+1)
}

type emptySource struct{}

func (emptySource) GetOrBuild(context.Context) *seeding.DataCollection {
	return &seeding.DataCollection{}
}

func TestJobsSkipOnEmptyPools(t *testing.T) {
	gen := generator.New(15)
	set := NewSet(nil, emptySource{}, nil, gen, quietLogger())

	outcome, err := set.Restaurant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

// Concurrent user and order runs share the cache; the collection they
// observe must stay well formed.
func TestConcurrentUserAndOrderJobs(t *testing.T) {
	h := newHarness(t, 16)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := h.set.User(ctx); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if outcome, err := h.set.Order(ctx); outcome == string(synth.StatusFailed) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	dc := h.cache.Cached()
	require.NotNil(t, dc)
	seen := map[string]bool{}
	for _, c := range dc.Customers {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.UserID)
		assert.False(t, seen[c.ID], "duplicate customer %s", c.ID)
		seen[c.ID] = true
	}
	for _, r := range dc.Restaurants {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.OwnerID)
	}
	assert.Equal(t, int64(1), h.cache.Stats().Builds)
}

func TestRegisterWithScheduler(t *testing.T) {
	h := newHarness(t, 17)
	sched := scheduler.New(quietLogger(), nil)

	require.NoError(t, h.set.Register(sched, DefaultIntervals()))
	assert.Equal(t, []string{Orders, Users, CustomerCare, Restaurants}, sched.Jobs())

	run, err := sched.RunNow(context.Background(), Restaurants)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, run.Outcome)
	assert.ErrorIs(t, h.set.Register(sched, DefaultIntervals()), scheduler.ErrDuplicateJob)
}
