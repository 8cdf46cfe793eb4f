// Package generator fabricates backend records. Every method returns a
// structurally complete value: randomness decides field contents and which
// optional fields are present, never whether a required field is set.
package generator

import (
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jogardn/flashfood-datagen/internal/money"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

// Probabilities of optional fields being present.
const (
	AvatarChance           = 0.7
	RestaurantAvatarChance = 0.8
	VariantAvatarChance    = 0.5
	VerifiedChance         = 0.8
	NotesChance            = 0.5
	DiscountRateChance     = 0.3
	CustomerAddressChance  = 0.5
)

const promotionWindow = 30 * 24 * time.Hour

var (
	categoryNames = []string{
		"Fast Food", "Italian", "Chinese", "Thai", "Indian", "Mexican",
		"Japanese", "Korean", "Vietnamese", "Mediterranean", "American",
		"Seafood", "Vegetarian", "Vegan", "Desserts", "Beverages", "Pizza",
		"Burgers", "Sushi", "BBQ",
	}
	addressTitles = []string{"Home", "Work", "Restaurant", "Office", "Other"}
	kitchenNotes  = []string{"Spicy", "No onions", "Extra sauce", "Less salt"}
	variantSizes  = []string{"Small", "Medium", "Large", "Extra Large"}
	themes        = []string{"light", "dark"}
	vehicleTypes  = []models.VehicleType{models.VehicleMotorbike, models.VehicleCar, models.VehicleBicycle}
)

// Generator is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	now   func() time.Time
}

// New returns a generator seeded with seed; 0 picks a random seed.
func New(seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

// WithClock replaces the time source used for timestamps and validity
// windows.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

func (g *Generator) Now() time.Time {
	return g.now()
}

func (g *Generator) unix() int64 {
	return g.now().Unix()
}

// Do runs fn with exclusive access to the underlying faker, for callers that
// need several correlated draws.
func (g *Generator) Do(fn func(f *gofakeit.Faker)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.faker)
}

func (g *Generator) Chance(p float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return roll(g.faker) < p
}

// roll draws from [0, 1). Faker.Float64 spans the whole float64 range and
// must not be used for probabilities.
func roll(f *gofakeit.Faker) float64 {
	return f.Rand.Float64()
}

// Intn returns a value in [0, n). n must be positive.
func (g *Generator) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Number(0, n-1)
}

// IntRange returns a value in [min, max].
func (g *Generator) IntRange(min, max int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Number(min, max)
}

// PriceRange returns a cent-rounded value in [min, max].
func (g *Generator) PriceRange(min, max float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return money.Price(g.faker.Float64Range(min, max))
}

func (g *Generator) Sentence() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Sentence(8)
}

// Pick returns a random element of items. items must not be empty.
func Pick[T any](g *Generator, items []T) T {
	return items[g.Intn(len(items))]
}

// PickN returns n distinct elements of items in random order, or all of them
// when n exceeds the length.
func PickN[T any](g *Generator, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	g.Do(func(f *gofakeit.Faker) { f.ShuffleInts(idx) })

	out := make([]T, 0, n)
	for _, i := range idx[:n] {
		out = append(out, items[i])
	}
	return out
}

// avatar must be called with the mutex held.
func (g *Generator) avatar(f *gofakeit.Faker, chance float64) *models.Avatar {
	if roll(f) >= chance {
		return nil
	}
	a := g.image(f)
	return &a
}

func (g *Generator) image(f *gofakeit.Faker) models.Avatar {
	return models.Avatar{URL: f.ImageURL(640, 480), Key: f.UUID()}
}

func (g *Generator) notes(f *gofakeit.Faker) []string {
	if roll(f) >= NotesChance {
		return nil
	}
	return []string{f.RandomString(kitchenNotes)}
}

func randomUserType(f *gofakeit.Faker) models.UserType {
	switch r := roll(f); {
	case r < 0.6:
		return models.UserTypeCustomer
	case r < 0.8:
		return models.UserTypeDriver
	case r < 0.9:
		return models.UserTypeRestaurantOwner
	default:
		return models.UserTypeCustomerCare
	}
}

// User fabricates a user whose single role follows the platform mix:
// 60% customers, 20% drivers, 10% restaurant owners, 10% care staff.
func (g *Generator) User() models.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user(g.faker, randomUserType(g.faker))
}

// UserWithRole fabricates a user holding exactly role.
func (g *Generator) UserWithRole(role models.UserType) models.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user(g.faker, role)
}

func (g *Generator) CustomerUser() models.User {
	return g.UserWithRole(models.UserTypeCustomer)
}

func (g *Generator) DriverUser() models.User {
	return g.UserWithRole(models.UserTypeDriver)
}

func (g *Generator) CareUser() models.User {
	return g.UserWithRole(models.UserTypeCustomerCare)
}

func (g *Generator) user(f *gofakeit.Faker, role models.UserType) models.User {
	return models.User{
		FirstName:  f.FirstName(),
		LastName:   f.LastName(),
		Email:      f.Email(),
		Password:   f.Password(true, true, true, false, false, 8),
		Phone:      f.Phone(),
		UserType:   []models.UserType{role},
		Address:    []string{},
		Avatar:     g.avatar(f, AvatarChance),
		IsVerified: roll(f) < VerifiedChance,
	}
}

// AddressBook fabricates an unowned address.
func (g *Generator) AddressBook() models.AddressBook {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker
	now := g.unix()
	return models.AddressBook{
		Street:      f.Street(),
		City:        f.City(),
		Nationality: f.Country(),
		PostalCode:  strconv.Itoa(f.Number(10000, 99999)),
		Location: &models.Location{
			Lat: f.Latitude(),
			Lng: f.Longitude(),
		},
		IsDefault: roll(f) > 0.7,
		Title:     f.RandomString(addressTitles),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (g *Generator) FoodCategory() models.FoodCategory {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker
	return models.FoodCategory{
		Name:        f.RandomString(categoryNames),
		Description: f.ProductDescription(),
		Avatar:      g.avatar(f, AvatarChance),
	}
}

// standIn synthesizes a throwaway user when the caller has none to offer.
func (g *Generator) standIn(f *gofakeit.Faker) models.User {
	return models.User{
		ID:        f.UUID(),
		FirstName: f.FirstName(),
		LastName:  f.LastName(),
		Email:     f.Email(),
		Phone:     f.Phone(),
	}
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// Customer fabricates a customer profile for user. A nil user yields a
// stand-in owner with its own random id. Half of the time one of addresses
// is attached as the customer's delivery address.
func (g *Generator) Customer(user *models.User, addresses []models.AddressBook) models.Customer {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	u := g.standIn(f)
	if user != nil {
		u = *user
	}

	addressIDs := []string{}
	if len(addresses) > 0 && roll(f) < CustomerAddressChance {
		addressIDs = append(addressIDs, addresses[f.Number(0, len(addresses)-1)].ID)
	}

	now := g.unix()
	return models.Customer{
		UserID:                u.ID,
		FirstName:             orDefault(u.FirstName, f.FirstName()),
		LastName:              orDefault(u.LastName, f.LastName()),
		Avatar:                g.avatar(f, AvatarChance),
		AddressIDs:            addressIDs,
		PreferredCategoryIDs:  []string{},
		FavoriteRestaurantIDs: []string{},
		FavoriteItems:         []string{},
		SupportTickets:        []string{},
		AppPreferences:        models.AppPreferences{Theme: f.RandomString(themes)},
		RestaurantHistory:     []string{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (g *Generator) plate(f *gofakeit.Faker) string {
	return f.Regex("[A-Z]{2}[0-9]{2} [A-Z]{3}")
}

// Driver fabricates a driver profile for user, or for a stand-in when user
// is nil.
func (g *Generator) Driver(user *models.User) models.Driver {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	u := g.standIn(f)
	if user != nil {
		u = *user
	}

	now := g.unix()
	return models.Driver{
		UserID:             u.ID,
		FirstName:          orDefault(u.FirstName, f.FirstName()),
		LastName:           orDefault(u.LastName, f.LastName()),
		Email:              orDefault(u.Email, f.Email()),
		Phone:              orDefault(u.Phone, f.Phone()),
		LicenseNumber:      g.plate(f),
		LicenseImage:       g.image(f),
		IdentityCardNumber: f.DigitN(12),
		IdentityCardImage:  g.image(f),
		Avatar:             g.avatar(f, AvatarChance),
		VehicleInfo: models.VehicleInfo{
			Type:         vehicleTypes[f.Number(0, len(vehicleTypes)-1)],
			LicensePlate: g.plate(f),
			Model:        f.CarModel(),
			Color:        f.Color(),
		},
		Location: models.Location{
			Lat: f.Latitude(),
			Lng: f.Longitude(),
		},
		Status: models.DriverStatus{
			IsActive:    roll(f) > 0.2,
			IsAvailable: roll(f) > 0.3,
			IsVerified:  roll(f) > 0.1,
		},
		Rating: models.DriverRating{
			AverageRating: money.Round(f.Float64Range(3.0, 5.0), 1),
			TotalRating:   f.Number(0, 1000),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func hours(f *gofakeit.Faker) models.OpeningHours {
	return models.OpeningHours{
		From: f.Number(7, 11) * 3600,
		To:   f.Number(19, 23) * 3600,
	}
}

// Restaurant fabricates a restaurant owned by owner at address, tagged with
// one to three of categories. Nil owner or address fall back to stand-ins.
func (g *Generator) Restaurant(owner *models.User, address *models.AddressBook, categories []models.FoodCategory) models.Restaurant {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	u := g.standIn(f)
	if owner != nil {
		u = *owner
	}
	addressID := f.UUID()
	if address != nil {
		addressID = address.ID
	}

	categoryIDs := []string{}
	if len(categories) > 0 {
		n := f.Number(1, min(3, len(categories)))
		idx := make([]int, len(categories))
		for i := range idx {
			idx[i] = i
		}
		f.ShuffleInts(idx)
		for _, i := range idx[:n] {
			categoryIDs = append(categoryIDs, categories[i].ID)
		}
	}

	firstName := orDefault(u.FirstName, f.FirstName())
	lastName := orDefault(u.LastName, f.LastName())
	email := orDefault(u.Email, f.Email())
	phone := orDefault(u.Phone, f.Phone())

	gallery := make([]models.Avatar, f.Number(1, 3))
	for i := range gallery {
		gallery[i] = g.image(f)
	}

	return models.Restaurant{
		OwnerID:        u.ID,
		OwnerName:      firstName + " " + lastName,
		AddressID:      addressID,
		RestaurantName: f.Company(),
		Description:    f.Sentence(10),
		ContactEmail: []models.ContactEmail{
			{Title: "Primary", IsDefault: true, Email: email},
		},
		ContactPhone: []models.ContactPhone{
			{Title: "Primary", Number: phone, IsDefault: true},
		},
		Avatar:        g.avatar(f, RestaurantAvatarChance),
		ImagesGallery: gallery,
		Status: models.RestaurantStatus{
			IsOpen:           roll(f) > 0.2,
			IsActive:         roll(f) > 0.1,
			IsAcceptedOrders: roll(f) > 0.3,
		},
		Promotions: []string{},
		Ratings: models.RestaurantRating{
			AverageRating: money.Round(f.Float64Range(3.0, 5.0), 1),
			ReviewCount:   f.Number(0, 500),
		},
		FoodCategoryIDs: categoryIDs,
		OpeningHours: models.WeeklyHours{
			Mon: hours(f), Tue: hours(f), Wed: hours(f), Thu: hours(f),
			Fri: hours(f), Sat: hours(f), Sun: hours(f),
		},
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  f.Password(true, true, true, false, false, 12),
		Phone:     phone,
	}
}

// MenuItem fabricates a dish priced 20 to 200 for restaurant in category.
func (g *Generator) MenuItem(restaurant models.Restaurant, category models.FoodCategory) models.MenuItem {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker
	return models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         f.ProductName(),
		Description:  f.ProductDescription(),
		Price:        money.Price(f.Float64Range(20, 200)),
		Category:     []string{category.ID},
		Avatar:       g.avatar(f, AvatarChance),
		Availability: roll(f) > 0.1,
		SuggestNotes: g.notes(f),
	}
}

// MenuItemVariant fabricates a size variant of item priced between 0.8 and
// 1.5 times the item's price (20 when the item carries none).
func (g *Generator) MenuItemVariant(item models.MenuItem) models.MenuItemVariant {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	base := item.Price
	if base <= 0 {
		base = 20
	}

	var discount *float64
	if roll(f) < DiscountRateChance {
		d := money.Price(f.Float64Range(5, 20))
		discount = &d
	}

	return models.MenuItemVariant{
		MenuID:                 item.ID,
		Variant:                f.RandomString(variantSizes),
		Description:            f.Sentence(8),
		Avatar:                 g.avatar(f, VariantAvatarChance),
		Availability:           roll(f) > 0.1,
		DefaultRestaurantNotes: g.notes(f),
		Price:                  money.Price(f.Float64Range(base*0.8, base*1.5)),
		DiscountRate:           discount,
	}
}

// Promotion fabricates an active promotion valid for the next 30 days,
// scoped to one to three of categories.
func (g *Generator) Promotion(categories []models.FoodCategory) models.Promotion {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	ids := []string{}
	if len(categories) > 0 {
		n := f.Number(1, min(3, len(categories)))
		idx := make([]int, len(categories))
		for i := range idx {
			idx[i] = i
		}
		f.ShuffleInts(idx)
		for _, i := range idx[:n] {
			ids = append(ids, categories[i].ID)
		}
	}

	start := g.now()
	discountType := models.DiscountPercentage
	if f.Bool() {
		discountType = models.DiscountFixed
	}

	return models.Promotion{
		Title:                 f.AdjectiveDescriptive() + " Deal",
		Description:           f.Sentence(10),
		DiscountType:          discountType,
		DiscountValue:         money.Price(f.Float64Range(5, 50)),
		MinimumOrderValue:     money.Price(f.Float64Range(50, 200)),
		MaximumDiscountAmount: money.Price(f.Float64Range(20, 100)),
		UsageLimit:            f.Number(100, 1000),
		UsageCount:            0,
		StartDate:             start.Unix(),
		EndDate:               start.Add(promotionWindow).Unix(),
		Status:                models.PromotionActive,
		FoodCategoryIDs:       ids,
		CreatedAt:             start.Unix(),
		UpdatedAt:             start.Unix(),
	}
}
