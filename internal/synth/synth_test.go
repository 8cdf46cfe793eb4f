package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jogardn/flashfood-datagen/internal/feed"
	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/internal/seeding"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type staticSource struct {
	dc *seeding.DataCollection
}

func (s staticSource) GetOrBuild(context.Context) *seeding.DataCollection {
	return s.dc
}

type recordingCreator struct {
	mu     sync.Mutex
	orders []models.Order
	fail   bool
}

func (c *recordingCreator) Create(_ context.Context, collection string, payload interface{}, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if collection != models.CollectionOrders {
		return fmt.Errorf("unexpected collection %s", collection)
	}
	order := payload.(models.Order)
	c.orders = append(c.orders, order)
	if c.fail {
		return errors.New("EC=2 restaurant closed")
	}
	if o, ok := out.(*models.Order); ok {
		*o = order
		o.ID = fmt.Sprintf("order-%d", len(c.orders))
	}
	return nil
}

func (c *recordingCreator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testGenerator(seed int64) *generator.Generator {
	return generator.New(seed).WithClock(func() time.Time { return testNow })
}

// fixture builds n customers and n restaurants, each with one address and
// itemsPer menu items carrying two variants apiece.
func fixture(n, itemsPer int) *seeding.DataCollection {
	dc := &seeding.DataCollection{}
	for i := 0; i < n; i++ {
		cid, rid := fmt.Sprintf("c%d", i), fmt.Sprintf("r%d", i)
		dc.Customers = append(dc.Customers, models.Customer{ID: cid, UserID: "u" + cid})
		dc.Restaurants = append(dc.Restaurants, models.Restaurant{ID: rid, AddressID: "addr-" + rid})
		dc.Addresses = append(dc.Addresses,
			models.AddressBook{ID: "addr-" + cid, CustomerID: cid, Location: &models.Location{Lat: 10.7 + float64(i)*0.01, Lng: 106.6}},
			models.AddressBook{ID: "addr-" + rid, Location: &models.Location{Lat: 10.8, Lng: 106.7 + float64(i)*0.01}},
		)
		for j := 0; j < itemsPer; j++ {
			mid := fmt.Sprintf("%s-m%d", rid, j)
			dc.MenuItems = append(dc.MenuItems, models.MenuItem{ID: mid, RestaurantID: rid, Name: "Pho", Price: 45.5 + float64(j)})
			dc.Variants = append(dc.Variants,
				models.MenuItemVariant{ID: mid + "-s", MenuID: mid, Variant: "Small", Price: 39.99},
				models.MenuItemVariant{ID: mid + "-l", MenuID: mid, Variant: "Large", Price: 59.49},
			)
		}
	}
	dc.Promotions = []models.Promotion{
		{ID: "p-active", Status: models.PromotionActive, StartDate: testNow.Add(-time.Hour).Unix(), EndDate: testNow.Add(time.Hour).Unix()},
		{ID: "p-expired", Status: models.PromotionActive, StartDate: testNow.Add(-48 * time.Hour).Unix(), EndDate: testNow.Add(-24 * time.Hour).Unix()},
		{ID: "p-inactive", Status: "INACTIVE", StartDate: testNow.Add(-time.Hour).Unix(), EndDate: testNow.Add(time.Hour).Unix()},
	}
	return dc
}

func newSynth(dc *seeding.DataCollection, c Creator, seed int64, sink feed.Sink) *Synthesizer {
	return New(staticSource{dc}, c, testGenerator(seed), quietLogger(), DefaultConfig(), sink)
}

func TestTickSkipsWithTooFewCustomers(t *testing.T) {
	c := &recordingCreator{}
	out := newSynth(fixture(9, 2), c, 1, nil).Tick(context.Background())

	assert.Equal(t, StatusSkipped, out.Status)
	assert.Zero(t, c.count())
}

func TestTickSkipsCustomerWithoutAddresses(t *testing.T) {
	dc := fixture(10, 2)
	var kept []models.AddressBook
	for _, a := range dc.Addresses {
		if a.CustomerID == "" {
			kept = append(kept, a)
		}
	}
	dc.Addresses = kept

	c := &recordingCreator{}
	s := newSynth(dc, c, 2, nil)
	for i := 0; i < 20; i++ {
		out := s.Tick(context.Background())
		assert.Equal(t, StatusSkipped, out.Status)
		assert.Equal(t, "customer has no addresses", out.Reason)
	}
	assert.Zero(t, c.count())
}

func TestTickSkipsRestaurantWithoutAddresses(t *testing.T) {
	dc := fixture(10, 2)
	for i := range dc.Restaurants {
		dc.Restaurants[i].AddressID = ""
	}

	c := &recordingCreator{}
	out := newSynth(dc, c, 3, nil).Tick(context.Background())

	assert.Equal(t, StatusSkipped, out.Status)
	assert.Zero(t, c.count())
}

func TestOrderTotalsAndDistance(t *testing.T) {
	dc := fixture(10, 3)
	locations := map[string]models.Location{}
	for _, a := range dc.Addresses {
		locations[a.ID] = *a.Location
	}

	c := &recordingCreator{}
	s := newSynth(dc, c, 4, nil)
	for i := 0; i < 100; i++ {
		out := s.Tick(context.Background())
		require.Equal(t, StatusCreated, out.Status)
		o := out.Order
		require.NotNil(t, o)
		assert.NotEmpty(t, o.ID)

		require.GreaterOrEqual(t, len(o.OrderItems), 1)
		require.LessOrEqual(t, len(o.OrderItems), 3)

		sum := 0.0
		for _, it := range o.OrderItems {
			assert.GreaterOrEqual(t, it.Quantity, 1)
			assert.LessOrEqual(t, it.Quantity, 3)
			assert.LessOrEqual(t, it.PriceAfterAppliedPromotion, it.PriceAtTimeOfOrder)
			sum += it.PriceAfterAppliedPromotion * float64(it.Quantity)
		}
		want := math.Round((sum+o.DeliveryFee+o.ServiceFee)*100) / 100
		assert.InDelta(t, want, o.TotalAmount, 0.0051)

		assert.GreaterOrEqual(t, o.DeliveryFee, 10.0)
		assert.LessOrEqual(t, o.DeliveryFee, 50.0)
		assert.GreaterOrEqual(t, o.ServiceFee, 5.0)
		assert.LessOrEqual(t, o.ServiceFee, 20.0)

		from, to := locations[o.CustomerLocation], locations[o.RestaurantLocation]
		assert.InDelta(t, Haversine(from, to), o.Distance, 0.1)

		assert.Greater(t, o.DeliveryTime, testNow.Unix())
		assert.LessOrEqual(t, o.OrderTime, testNow.Unix())
		if o.PromotionApplied != "" {
			assert.Equal(t, "p-active", o.PromotionApplied)
		}
	}
	assert.Equal(t, 100, c.count())
}

func TestVariantAndMenuOwnership(t *testing.T) {
	dc := fixture(10, 3)
	c := &recordingCreator{}
	s := newSynth(dc, c, 5, nil)

	variantsUsed := 0
	for i := 0; i < 100; i++ {
		out := s.Tick(context.Background())
		require.Equal(t, StatusCreated, out.Status)
		for _, it := range out.Order.OrderItems {
			assert.Contains(t, it.ItemID, out.RestaurantID+"-m")
			if it.VariantID != "" {
				variantsUsed++
				assert.Contains(t, it.VariantID, it.ItemID)
				assert.Contains(t, []float64{39.99, 59.49}, it.PriceAtTimeOfOrder)
			}
		}
	}
	assert.NotZero(t, variantsUsed)
}

func TestZeroMenuRestaurantNeverOrdered(t *testing.T) {
	dc := fixture(10, 2)
	var items []models.MenuItem
	for _, m := range dc.MenuItems {
		if m.RestaurantID != "r3" {
			items = append(items, m)
		}
	}
	dc.MenuItems = items

	c := &recordingCreator{}
	s := newSynth(dc, c, 6, nil)
	emptyPicks := 0
	for i := 0; i < 50; i++ {
		before := c.count()
		out := s.Tick(context.Background())
		if out.RestaurantID == "r3" {
			emptyPicks++
			assert.Equal(t, StatusSkipped, out.Status)
			assert.Equal(t, before, c.count(), "no POST for the empty restaurant")
			continue
		}
		assert.Equal(t, StatusCreated, out.Status)
	}

	for _, o := range c.orders {
		assert.NotEqual(t, "r3", o.RestaurantID)
		assert.NotEmpty(t, dc.MenuItemsOf(o.RestaurantID))
	}
	assert.Equal(t, 50-emptyPicks, c.count())
}

func TestFailedOrderIsReported(t *testing.T) {
	rec := &feed.Recorder{}
	c := &recordingCreator{fail: true}
	s := newSynth(fixture(10, 2), c, 7, rec)

	out := s.Tick(context.Background())

	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.Equal(t, 1, c.count())
	require.Equal(t, 1, rec.Count(feed.OrderFailed, models.CollectionOrders))
	assert.Contains(t, rec.Events()[0].Error, "restaurant closed")
}

func TestTickHonoursConfiguredFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinCustomers = 3
	c := &recordingCreator{}

	out := New(staticSource{fixture(3, 1)}, c, testGenerator(9), quietLogger(), cfg, nil).Tick(context.Background())
	require.Equal(t, StatusCreated, out.Status)
	assert.Equal(t, 1, c.count())

	out = New(staticSource{fixture(2, 1)}, c, testGenerator(9), quietLogger(), cfg, nil).Tick(context.Background())
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, 1, c.count())
}

func TestTickWithZeroFloorAndNoCustomers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinCustomers = 0
	c := &recordingCreator{}

	out := New(staticSource{&seeding.DataCollection{}}, c, testGenerator(9), quietLogger(), cfg, nil).Tick(context.Background())
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Zero(t, c.count())
}

func TestDiscountKnob(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiscountChance = 1
	cfg.VariantChance = 0
	c := &recordingCreator{}
	s := New(staticSource{fixture(10, 1)}, c, testGenerator(8), quietLogger(), cfg, nil)

	out := s.Tick(context.Background())
	require.Equal(t, StatusCreated, out.Status)
	for _, it := range out.Order.OrderItems {
		assert.InDelta(t, it.PriceAtTimeOfOrder*0.9, it.PriceAfterAppliedPromotion, 0.006)
	}
}
