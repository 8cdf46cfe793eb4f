package seeding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

const DefaultCustomerDelay = 200 * time.Millisecond

// DefaultGraph lists the prepared entity types and the pools their foreign
// keys come from.
var DefaultGraph = []Node{
	{Name: models.CollectionUsers},
	{Name: models.CollectionAddressBooks},
	{Name: models.CollectionFoodCategories},
	{Name: models.CollectionCustomers, DependsOn: []string{models.CollectionUsers, models.CollectionAddressBooks}},
	{Name: models.CollectionRestaurants, DependsOn: []string{models.CollectionUsers, models.CollectionAddressBooks, models.CollectionFoodCategories}},
	{Name: models.CollectionDrivers, DependsOn: []string{models.CollectionUsers}},
	{Name: models.CollectionMenuItems, DependsOn: []string{models.CollectionRestaurants, models.CollectionFoodCategories}},
	{Name: models.CollectionMenuItemVariants, DependsOn: []string{models.CollectionMenuItems}},
	{Name: models.CollectionPromotions, DependsOn: []string{models.CollectionFoodCategories}},
}

type step func(ctx context.Context, dc *DataCollection)

// Preparer builds a DataCollection by running one ensurer per entity type in
// dependency order.
type Preparer struct {
	ensurer       *Ensurer
	gen           *generator.Generator
	logger        *logrus.Logger
	graph         []Node
	order         []string
	steps         map[string]step
	floors        map[string]int
	customerDelay time.Duration
}

type PreparerOption func(*Preparer)

// WithCollectionFloor overrides the minimum for one collection.
func WithCollectionFloor(collection string, n int) PreparerOption {
	return func(p *Preparer) {
		p.floors[collection] = n
	}
}

func WithCustomerDelay(d time.Duration) PreparerOption {
	return func(p *Preparer) {
		p.customerDelay = d
	}
}

// WithGraph replaces the dependency graph. Every node must name a known
// entity type.
func WithGraph(nodes ...Node) PreparerOption {
	return func(p *Preparer) {
		p.graph = nodes
	}
}

func NewPreparer(ensurer *Ensurer, gen *generator.Generator, logger *logrus.Logger, opts ...PreparerOption) (*Preparer, error) {
	p := &Preparer{
		ensurer:       ensurer,
		gen:           gen,
		logger:        logger,
		floors:        map[string]int{},
		customerDelay: DefaultCustomerDelay,
		graph:         DefaultGraph,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.steps = p.defaultSteps()

	order, err := NewGraph(p.graph...).Order()
	if err != nil {
		return nil, fmt.Errorf("preparation order: %w", err)
	}
	for _, name := range order {
		if _, ok := p.steps[name]; !ok {
			return nil, fmt.Errorf("preparation order: no step for %s", name)
		}
	}
	p.order = order
	return p, nil
}

// Order returns the derived execution order.
func (p *Preparer) Order() []string {
	return append([]string(nil), p.order...)
}

// Prepare ensures every collection in order and returns the assembled
// snapshot. Failures degrade individual lists; Prepare itself never fails.
func (p *Preparer) Prepare(ctx context.Context) *DataCollection {
	start := time.Now()
	dc := &DataCollection{}
	for _, name := range p.order {
		if ctx.Err() != nil {
			p.logger.WithField("collection", name).Warn("Preparation interrupted")
			break
		}
		p.steps[name](ctx, dc)
	}
	dc.BuiltAt = time.Now()

	p.logger.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"summary":     dc.Summary(),
	}).Info("Data collection prepared")
	return dc
}

func (p *Preparer) plan(collection string, ready func() error, build func(ctx context.Context) (interface{}, error)) Plan {
	return Plan{
		Collection: collection,
		Floor:      p.floors[collection],
		Ready:      ready,
		Build:      build,
	}
}

var errEmptyPool = errors.New("empty pool")

func need(pools map[string]int) func() error {
	return func() error {
		for name, n := range pools {
			if n == 0 {
				return fmt.Errorf("%w: %s", errEmptyPool, name)
			}
		}
		return nil
	}
}

func (p *Preparer) defaultSteps() map[string]step {
	g := p.gen
	e := p.ensurer

	return map[string]step{
		models.CollectionUsers: func(ctx context.Context, dc *DataCollection) {
			dc.Users = Ensure[models.User](ctx, e, p.plan(models.CollectionUsers, nil,
				func(context.Context) (interface{}, error) { return g.User(), nil }))
		},

		models.CollectionAddressBooks: func(ctx context.Context, dc *DataCollection) {
			dc.Addresses = Ensure[models.AddressBook](ctx, e, p.plan(models.CollectionAddressBooks, nil,
				func(context.Context) (interface{}, error) { return g.AddressBook(), nil }))
		},

		models.CollectionFoodCategories: func(ctx context.Context, dc *DataCollection) {
			dc.Categories = Ensure[models.FoodCategory](ctx, e, p.plan(models.CollectionFoodCategories, nil,
				func(context.Context) (interface{}, error) { return g.FoodCategory(), nil }))
		},

		// Each customer gets a fresh CUSTOMER user so user_id always points
		// at a record with the right role.
		models.CollectionCustomers: func(ctx context.Context, dc *DataCollection) {
			plan := p.plan(models.CollectionCustomers, nil, func(ctx context.Context) (interface{}, error) {
				var user models.User
				if err := e.Create(ctx, models.CollectionUsers, g.CustomerUser(), &user); err != nil {
					return nil, fmt.Errorf("create customer user: %w", err)
				}
				return g.Customer(&user, dc.Addresses), nil
			})
			plan.Delay = p.customerDelay
			dc.Customers = Ensure[models.Customer](ctx, e, plan)
		},

		models.CollectionRestaurants: func(ctx context.Context, dc *DataCollection) {
			ready := need(map[string]int{
				models.CollectionUsers:          len(dc.Users),
				models.CollectionAddressBooks:   len(dc.Addresses),
				models.CollectionFoodCategories: len(dc.Categories),
			})
			dc.Restaurants = Ensure[models.Restaurant](ctx, e, p.plan(models.CollectionRestaurants, ready,
				func(context.Context) (interface{}, error) {
					owner := generator.Pick(g, dc.Users)
					address := generator.Pick(g, dc.Addresses)
					return g.Restaurant(&owner, &address, dc.Categories), nil
				}))
		},

		models.CollectionDrivers: func(ctx context.Context, dc *DataCollection) {
			ready := need(map[string]int{models.CollectionUsers: len(dc.Users)})
			dc.Drivers = Ensure[models.Driver](ctx, e, p.plan(models.CollectionDrivers, ready,
				func(context.Context) (interface{}, error) {
					user := generator.Pick(g, dc.Users)
					return g.Driver(&user), nil
				}))
		},

		models.CollectionMenuItems: func(ctx context.Context, dc *DataCollection) {
			ready := need(map[string]int{
				models.CollectionRestaurants:    len(dc.Restaurants),
				models.CollectionFoodCategories: len(dc.Categories),
			})
			dc.MenuItems = Ensure[models.MenuItem](ctx, e, p.plan(models.CollectionMenuItems, ready,
				func(context.Context) (interface{}, error) {
					return g.MenuItem(generator.Pick(g, dc.Restaurants), generator.Pick(g, dc.Categories)), nil
				}))
		},

		models.CollectionMenuItemVariants: func(ctx context.Context, dc *DataCollection) {
			ready := need(map[string]int{models.CollectionMenuItems: len(dc.MenuItems)})
			dc.Variants = Ensure[models.MenuItemVariant](ctx, e, p.plan(models.CollectionMenuItemVariants, ready,
				func(context.Context) (interface{}, error) {
					return g.MenuItemVariant(generator.Pick(g, dc.MenuItems)), nil
				}))
		},

		models.CollectionPromotions: func(ctx context.Context, dc *DataCollection) {
			dc.Promotions = Ensure[models.Promotion](ctx, e, p.plan(models.CollectionPromotions, nil,
				func(context.Context) (interface{}, error) { return g.Promotion(dc.Categories), nil }))
		},
	}
}
