// Package synth fabricates one order per tick from the prepared data
// collection.
package synth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/feed"
	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/internal/money"
	"github.com/jogardn/flashfood-datagen/internal/seeding"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

// Source hands out the current prepared collection.
type Source interface {
	GetOrBuild(ctx context.Context) *seeding.DataCollection
}

// Creator posts a record to a backend collection.
type Creator interface {
	Create(ctx context.Context, collection string, payload interface{}, out interface{}) error
}

type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome describes what one tick did.
type Outcome struct {
	Status       Status        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	CustomerID   string        `json:"customer_id,omitempty"`
	RestaurantID string        `json:"restaurant_id,omitempty"`
	Order        *models.Order `json:"order,omitempty"`
	Err          error         `json:"-"`
}

// Config holds the order shape knobs. The promotional discount is a flat
// illustrative rule, not a modeled business policy.
type Config struct {
	MinCustomers       int
	MaxItems           int
	MaxQuantity        int
	VariantChance      float64
	DiscountChance     float64
	DiscountRate       float64
	PromotionChance    float64
	DeliveryFeeMin     float64
	DeliveryFeeMax     float64
	ServiceFeeMin      float64
	ServiceFeeMax      float64
	CustomerNoteChance float64
	KitchenNoteChance  float64
}

func DefaultConfig() Config {
	return Config{
		MinCustomers:       seeding.DefaultFloor,
		MaxItems:           3,
		MaxQuantity:        3,
		VariantChance:      0.7,
		DiscountChance:     0.2,
		DiscountRate:       0.1,
		PromotionChance:    0.2,
		DeliveryFeeMin:     10,
		DeliveryFeeMax:     50,
		ServiceFeeMin:      5,
		ServiceFeeMax:      20,
		CustomerNoteChance: 0.3,
		KitchenNoteChance:  0.2,
	}
}

type Synthesizer struct {
	source  Source
	creator Creator
	sink    feed.Sink
	gen     *generator.Generator
	logger  *logrus.Logger
	cfg     Config
}

func New(source Source, creator Creator, gen *generator.Generator, logger *logrus.Logger, cfg Config, sink feed.Sink) *Synthesizer {
	if sink == nil {
		sink = feed.Discard
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = 1
	}
	return &Synthesizer{
		source:  source,
		creator: creator,
		sink:    sink,
		gen:     gen,
		logger:  logger,
		cfg:     cfg,
	}
}

func skipped(reason string, customerID, restaurantID string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason, CustomerID: customerID, RestaurantID: restaurantID}
}

// Tick assembles and posts one order. Missing prerequisites skip the tick;
// a rejected POST is reported and not retried.
func (s *Synthesizer) Tick(ctx context.Context) Outcome {
	dc := s.source.GetOrBuild(ctx)
	if dc == nil || len(dc.Customers) == 0 || len(dc.Customers) < s.cfg.MinCustomers {
		n := 0
		if dc != nil {
			n = len(dc.Customers)
		}
		s.logger.WithFields(logrus.Fields{
			"customers": n,
			"needed":    s.cfg.MinCustomers,
		}).Warn("Not enough customers to generate an order")
		return skipped("not enough customers", "", "")
	}
	if len(dc.Restaurants) == 0 {
		s.logger.Warn("No restaurants to generate an order")
		return skipped("no restaurants", "", "")
	}

	g := s.gen
	customer := generator.Pick(g, dc.Customers)
	restaurant := generator.Pick(g, dc.Restaurants)
	log := s.logger.WithFields(logrus.Fields{
		"customer_id":   customer.ID,
		"restaurant_id": restaurant.ID,
	})

	customerAddresses := dc.CustomerAddresses(customer)
	if len(customerAddresses) == 0 {
		log.Warn("Customer has no addresses, skipping order")
		return skipped("customer has no addresses", customer.ID, restaurant.ID)
	}
	restaurantAddresses := dc.RestaurantAddresses(restaurant)
	if len(restaurantAddresses) == 0 {
		log.Warn("Restaurant has no addresses, skipping order")
		return skipped("restaurant has no addresses", customer.ID, restaurant.ID)
	}
	menu := dc.MenuItemsOf(restaurant.ID)
	if len(menu) == 0 {
		log.Warn("Restaurant has no menu items, skipping order")
		return skipped("restaurant has no menu items", customer.ID, restaurant.ID)
	}

	from := generator.Pick(g, customerAddresses)
	to := generator.Pick(g, restaurantAddresses)
	order := s.assemble(dc, customer, restaurant, menu, from, to)

	var created models.Order
	if err := s.creator.Create(ctx, models.CollectionOrders, order, &created); err != nil {
		log.WithError(err).Error("Failed to create order")
		_ = s.sink.Publish(ctx, feed.Event{
			Type:       feed.OrderFailed,
			Collection: models.CollectionOrders,
			Data:       marshal(order),
			Error:      err.Error(),
			Time:       time.Now().UTC(),
		})
		return Outcome{
			Status:       StatusFailed,
			Reason:       "backend rejected order",
			CustomerID:   customer.ID,
			RestaurantID: restaurant.ID,
			Order:        &order,
			Err:          err,
		}
	}
	if created.ID != "" {
		order.ID = created.ID
	}

	log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"items":        len(order.OrderItems),
	}).Info("Order created")
	return Outcome{
		Status:       StatusCreated,
		CustomerID:   customer.ID,
		RestaurantID: restaurant.ID,
		Order:        &order,
	}
}

func (s *Synthesizer) assemble(dc *seeding.DataCollection, customer models.Customer, restaurant models.Restaurant, menu []models.MenuItem, from, to models.AddressBook) models.Order {
	g := s.gen
	cfg := s.cfg

	picked := generator.PickN(g, menu, g.IntRange(1, min(cfg.MaxItems, len(menu))))
	items := make([]models.OrderItem, 0, len(picked))
	lines := make([]decimal.Decimal, 0, len(picked))
	for _, item := range picked {
		line := models.OrderItem{
			ItemID:   item.ID,
			Name:     item.Name,
			Quantity: g.IntRange(1, cfg.MaxQuantity),
		}
		price := item.Price
		if variants := dc.VariantsOf(item.ID); len(variants) > 0 && g.Chance(cfg.VariantChance) {
			v := generator.Pick(g, variants)
			line.VariantID = v.ID
			line.Name = item.Name + " (" + v.Variant + ")"
			price = v.Price
		}
		line.PriceAtTimeOfOrder = money.Price(price)
		line.PriceAfterAppliedPromotion = line.PriceAtTimeOfOrder
		if g.Chance(cfg.DiscountChance) {
			line.PriceAfterAppliedPromotion = money.Price(price * (1 - cfg.DiscountRate))
		}
		items = append(items, line)
		lines = append(lines, money.LineTotal(line.PriceAfterAppliedPromotion, line.Quantity))
	}

	deliveryFee := g.PriceRange(cfg.DeliveryFeeMin, cfg.DeliveryFeeMax)
	serviceFee := g.PriceRange(cfg.ServiceFeeMin, cfg.ServiceFeeMax)
	now := g.Now()

	order := models.Order{
		CustomerID:         customer.ID,
		RestaurantID:       restaurant.ID,
		Distance:           Distance(from.Location, to.Location),
		Status:             generator.Pick(g, models.OrderStatuses),
		TotalAmount:        money.Total(lines, deliveryFee, serviceFee),
		DeliveryFee:        deliveryFee,
		ServiceFee:         serviceFee,
		PaymentStatus:      generator.Pick(g, models.PaymentStatuses),
		PaymentMethod:      generator.Pick(g, models.PaymentMethods),
		CustomerLocation:   from.ID,
		RestaurantLocation: to.ID,
		OrderItems:         items,
		OrderTime:          now.Add(-time.Duration(g.Intn(86400)) * time.Second).Unix(),
		DeliveryTime:       now.Add(time.Duration(g.IntRange(30, 90)) * time.Minute).Unix(),
		TrackingInfo:       generator.Pick(g, models.TrackingInfos),
	}
	if g.Chance(cfg.CustomerNoteChance) {
		order.CustomerNote = g.Sentence()
	}
	if g.Chance(cfg.KitchenNoteChance) {
		order.RestaurantNote = g.Sentence()
	}
	if promos := dc.ActivePromotions(now); len(promos) > 0 && g.Chance(cfg.PromotionChance) {
		order.PromotionApplied = generator.Pick(g, promos).ID
	}
	return order
}

func marshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
