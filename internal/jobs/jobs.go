// Package jobs defines the periodic generation tasks run by the scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/internal/scheduler"
	"github.com/jogardn/flashfood-datagen/internal/seeding"
	"github.com/jogardn/flashfood-datagen/internal/synth"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

const (
	Orders       = "orders"
	Users        = "users"
	CustomerCare = "customer-care"
	Restaurants  = "restaurants"
)

const (
	customerShare = 0.7
	staffShare    = 0.6
)

// Outcome labels.
const (
	OutcomeCreated         = "created"
	OutcomeCreatedCustomer = "created_customer"
	OutcomeCreatedDriver   = "created_driver"
	OutcomeCreatedStaff    = "created_staff"
	OutcomeCreatedInquiry  = "created_inquiry"
	OutcomeSkipped         = "skipped"
	OutcomeFailed          = "failed"
)

var errNoPool = errors.New("prerequisite pool empty")

// Intervals between runs of each job.
type Intervals struct {
	Orders       time.Duration
	Users        time.Duration
	CustomerCare time.Duration
	Restaurants  time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Orders:       30 * time.Second,
		Users:        60 * time.Second,
		CustomerCare: 90 * time.Second,
		Restaurants:  120 * time.Second,
	}
}

// Source hands out the prepared collection.
type Source interface {
	GetOrBuild(ctx context.Context) *seeding.DataCollection
}

type Set struct {
	ensurer *seeding.Ensurer
	source  Source
	synth   *synth.Synthesizer
	gen     *generator.Generator
	logger  *logrus.Logger
}

func NewSet(ensurer *seeding.Ensurer, source Source, s *synth.Synthesizer, gen *generator.Generator, logger *logrus.Logger) *Set {
	return &Set{
		ensurer: ensurer,
		source:  source,
		synth:   s,
		gen:     gen,
		logger:  logger,
	}
}

// Jobs returns the four periodic jobs.
func (s *Set) Jobs(iv Intervals) []scheduler.Job {
	return []scheduler.Job{
		{Name: Orders, Interval: iv.Orders, Run: s.Order},
		{Name: Users, Interval: iv.Users, Run: s.User},
		{Name: CustomerCare, Interval: iv.CustomerCare, Run: s.CustomerCare},
		{Name: Restaurants, Interval: iv.Restaurants, Run: s.Restaurant},
	}
}

// Register adds every job to sched.
func (s *Set) Register(sched *scheduler.Scheduler, iv Intervals) error {
	for _, job := range s.Jobs(iv) {
		if err := sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) Order(ctx context.Context) (string, error) {
	out := s.synth.Tick(ctx)
	return string(out.Status), out.Err
}

// User creates either a customer or a driver, each preceded by its user
// record. A failed user aborts the run before the profile is posted.
func (s *Set) User(ctx context.Context) (string, error) {
	if s.gen.Chance(customerShare) {
		user, err := s.createUser(ctx, s.gen.CustomerUser())
		if err != nil {
			return OutcomeFailed, err
		}
		var customer models.Customer
		if err := s.ensurer.Create(ctx, models.CollectionCustomers, s.gen.Customer(&user, nil), &customer); err != nil {
			return OutcomeFailed, fmt.Errorf("create customer: %w", err)
		}
		s.logger.WithFields(logrus.Fields{"job": Users, "customer_id": customer.ID, "user_id": user.ID}).Info("Customer created")
		return OutcomeCreatedCustomer, nil
	}

	user, err := s.createUser(ctx, s.gen.DriverUser())
	if err != nil {
		return OutcomeFailed, err
	}
	var driver models.Driver
	if err := s.ensurer.Create(ctx, models.CollectionDrivers, s.gen.Driver(&user), &driver); err != nil {
		return OutcomeFailed, fmt.Errorf("create driver: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"job": Users, "driver_id": driver.ID, "user_id": user.ID}).Info("Driver created")
	return OutcomeCreatedDriver, nil
}

func (s *Set) createUser(ctx context.Context, u models.User) (models.User, error) {
	var created models.User
	if err := s.ensurer.Create(ctx, models.CollectionUsers, u, &created); err != nil {
		return created, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// CustomerCare creates either a care representative (with its user) or a
// customer inquiry.
func (s *Set) CustomerCare(ctx context.Context) (string, error) {
	if s.gen.Chance(staffShare) {
		user, err := s.createUser(ctx, s.gen.CareUser())
		if err != nil {
			return OutcomeFailed, err
		}
		var staff models.CustomerCare
		if err := s.ensurer.Create(ctx, models.CollectionCustomerCares, s.gen.CustomerCare(&user), &staff); err != nil {
			return OutcomeFailed, fmt.Errorf("create customer care: %w", err)
		}
		s.logger.WithFields(logrus.Fields{"job": CustomerCare, "customer_care_id": staff.ID}).Info("Customer care created")
		return OutcomeCreatedStaff, nil
	}

	dc := s.source.GetOrBuild(ctx)
	if len(dc.Customers) == 0 {
		s.logger.WithField("job", CustomerCare).Warn("No customers to raise an inquiry")
		return OutcomeSkipped, nil
	}
	customer := generator.Pick(s.gen, dc.Customers)

	// Orders and staff are optional references; listing failures only
	// drop them from the inquiry.
	backend := s.ensurer.Backend()
	var orders []models.Order
	if err := backend.List(ctx, models.CollectionOrders, &orders); err != nil {
		s.logger.WithError(err).WithField("job", CustomerCare).Warn("Failed to fetch orders for inquiry")
	}
	var staff []models.CustomerCare
	if err := backend.List(ctx, models.CollectionCustomerCares, &staff); err != nil {
		s.logger.WithError(err).WithField("job", CustomerCare).Warn("Failed to fetch staff for inquiry")
	}

	var inquiry models.Inquiry
	if err := s.ensurer.Create(ctx, models.CollectionCustomerInquiries, s.gen.Inquiry(customer, orders, staff), &inquiry); err != nil {
		return OutcomeFailed, fmt.Errorf("create inquiry: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"job":         CustomerCare,
		"inquiry_id":  inquiry.ID,
		"customer_id": customer.ID,
		"order_id":    inquiry.OrderID,
	}).Info("Inquiry created")
	return OutcomeCreatedInquiry, nil
}

// Restaurant creates one restaurant whose owner, address and categories come
// from the prepared collection. Owners are drawn from RESTAURANT_OWNER users
// when there are any.
func (s *Set) Restaurant(ctx context.Context) (string, error) {
	dc := s.source.GetOrBuild(ctx)

	owners := dc.UsersWithRole(models.UserTypeRestaurantOwner)
	if len(owners) == 0 {
		owners = dc.Users
	}
	switch {
	case len(owners) == 0:
		return s.skip(Restaurants, models.CollectionUsers)
	case len(dc.Addresses) == 0:
		return s.skip(Restaurants, models.CollectionAddressBooks)
	case len(dc.Categories) == 0:
		return s.skip(Restaurants, models.CollectionFoodCategories)
	}

	owner := generator.Pick(s.gen, owners)
	address := generator.Pick(s.gen, dc.Addresses)
	var restaurant models.Restaurant
	if err := s.ensurer.Create(ctx, models.CollectionRestaurants, s.gen.Restaurant(&owner, &address, dc.Categories), &restaurant); err != nil {
		return OutcomeFailed, fmt.Errorf("create restaurant: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"job":           Restaurants,
		"restaurant_id": restaurant.ID,
		"owner_id":      owner.ID,
	}).Info("Restaurant created")
	return OutcomeCreated, nil
}

func (s *Set) skip(job, pool string) (string, error) {
	s.logger.WithFields(logrus.Fields{
		"job":  job,
		"pool": pool,
	}).WithError(errNoPool).Warn("Skipping run")
	return OutcomeSkipped, nil
}
