package seeding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

func newTestPreparer(t *testing.T, b Backend, floor int, opts ...PreparerOption) *Preparer {
	t.Helper()
	e := newTestEnsurer(b, WithFloor(floor))
	p, err := NewPreparer(e, generator.New(7), quietLogger(), append([]PreparerOption{WithCustomerDelay(0)}, opts...)...)
	require.NoError(t, err)
	return p
}

func ids[T any](items []T, id func(T) string) map[string]bool {
	out := map[string]bool{}
	for _, it := range items {
		out[id(it)] = true
	}
	return out
}

func TestPrepareFromEmptyBackend(t *testing.T) {
	b := newMemBackend()
	p := newTestPreparer(t, b, 3)

	dc := p.Prepare(context.Background())

	for collection, n := range dc.Summary() {
		assert.GreaterOrEqual(t, n, 3, collection)
	}
	assert.False(t, dc.BuiltAt.IsZero())

	userIDs := ids(dc.Users, func(u models.User) string { return u.ID })
	addressIDs := ids(dc.Addresses, func(a models.AddressBook) string { return a.ID })
	categoryIDs := ids(dc.Categories, func(c models.FoodCategory) string { return c.ID })
	restaurantIDs := ids(dc.Restaurants, func(r models.Restaurant) string { return r.ID })
	itemIDs := ids(dc.MenuItems, func(m models.MenuItem) string { return m.ID })

	// Customer users are created on demand and land in the users
	// collection after the users list was taken.
	var allUsers []models.User
	require.NoError(t, b.List(context.Background(), models.CollectionUsers, &allUsers))
	allUserIDs := ids(allUsers, func(u models.User) string { return u.ID })
	for _, c := range dc.Customers {
		assert.True(t, allUserIDs[c.UserID], "customer %s references unknown user", c.ID)
		for _, a := range c.AddressIDs {
			assert.True(t, addressIDs[a])
		}
	}
	for _, r := range dc.Restaurants {
		assert.True(t, userIDs[r.OwnerID])
		assert.True(t, addressIDs[r.AddressID])
		for _, c := range r.FoodCategoryIDs {
			assert.True(t, categoryIDs[c])
		}
	}
	for _, d := range dc.Drivers {
		assert.True(t, userIDs[d.UserID])
	}
	for _, m := range dc.MenuItems {
		assert.True(t, restaurantIDs[m.RestaurantID])
		assert.True(t, categoryIDs[m.Category[0]])
	}
	for _, v := range dc.Variants {
		assert.True(t, itemIDs[v.MenuID])
	}
}

func TestPrepareCreatesCustomerUsersFirst(t *testing.T) {
	b := newMemBackend()
	b.seed(models.CollectionUsers, 3)
	p := newTestPreparer(t, b, 3)

	dc := p.Prepare(context.Background())

	require.Len(t, dc.Customers, 3)
	assert.Equal(t, 3, b.createCount(models.CollectionUsers))
	assert.Equal(t, 3, b.createCount(models.CollectionCustomers))
}

func TestPrepareSkipsCustomerWhenUserFails(t *testing.T) {
	b := newMemBackend()
	b.seed(models.CollectionUsers, 3)
	b.failCreate[models.CollectionUsers] = true
	p := newTestPreparer(t, b, 3)

	dc := p.Prepare(context.Background())

	assert.Empty(t, dc.Customers)
	assert.Zero(t, b.createCount(models.CollectionCustomers))
}

func TestPrepareDegradesWhenRestaurantsUnavailable(t *testing.T) {
	b := newMemBackend()
	b.failList[models.CollectionRestaurants] = true
	p := newTestPreparer(t, b, 3)

	dc := p.Prepare(context.Background())

	assert.Empty(t, dc.Restaurants)
	assert.Empty(t, dc.MenuItems)
	assert.Zero(t, b.createCount(models.CollectionMenuItems))
	assert.Empty(t, dc.Variants)
	assert.GreaterOrEqual(t, len(dc.Promotions), 3)
}

func TestPreparerOrderAndOverrides(t *testing.T) {
	b := newMemBackend()
	p := newTestPreparer(t, b, 2, WithCollectionFloor(models.CollectionPromotions, 5))

	assert.Equal(t, models.CollectionUsers, p.Order()[0])
	assert.Equal(t, models.CollectionPromotions, p.Order()[len(p.Order())-1])

	dc := p.Prepare(context.Background())
	assert.Len(t, dc.Promotions, 5)
	assert.Len(t, dc.Categories, 2)
}

func TestNewPreparerRejectsBadGraph(t *testing.T) {
	e := newTestEnsurer(newMemBackend())

	_, err := NewPreparer(e, generator.New(1), quietLogger(), WithGraph(
		Node{Name: models.CollectionUsers, DependsOn: []string{models.CollectionCustomers}},
		Node{Name: models.CollectionCustomers, DependsOn: []string{models.CollectionUsers}},
	))
	assert.ErrorIs(t, err, ErrCycle)

	_, err = NewPreparer(e, generator.New(1), quietLogger(), WithGraph(Node{Name: "reviews"}))
	assert.Error(t, err)
}

func TestCollectionHelpers(t *testing.T) {
	dc := &DataCollection{
		Addresses: []models.AddressBook{
			{ID: "a1", CustomerID: "c1"},
			{ID: "a2", UserID: "u1"},
			{ID: "a3"},
			{ID: "a4", RestaurantID: "r1"},
			{ID: "a5"},
		},
		MenuItems: []models.MenuItem{{ID: "m1", RestaurantID: "r1"}, {ID: "m2", RestaurantID: "r2"}},
		Variants:  []models.MenuItemVariant{{ID: "v1", MenuID: "m1"}, {ID: "v2", MenuID: "m2"}},
	}

	customer := models.Customer{ID: "c1", UserID: "u1", AddressIDs: []string{"a3"}}
	assert.Len(t, dc.CustomerAddresses(customer), 3)

	restaurant := models.Restaurant{ID: "r1", AddressID: "a5"}
	assert.Len(t, dc.RestaurantAddresses(restaurant), 2)

	assert.Len(t, dc.MenuItemsOf("r1"), 1)
	assert.Empty(t, dc.MenuItemsOf("r3"))
	assert.Equal(t, "v2", dc.VariantsOf("m2")[0].ID)

	var nilCollection *DataCollection
	assert.Empty(t, nilCollection.Summary())
}
