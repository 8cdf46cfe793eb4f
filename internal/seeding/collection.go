package seeding

import (
	"time"

	"github.com/jogardn/flashfood-datagen/pkg/models"
)

// DataCollection is one consistent snapshot of every prepared entity list.
// It is replaced wholesale on rebuild and never mutated after Prepare
// returns it.
type DataCollection struct {
	Users       []models.User            `json:"users"`
	Addresses   []models.AddressBook     `json:"addresses"`
	Categories  []models.FoodCategory    `json:"categories"`
	Customers   []models.Customer        `json:"customers"`
	Restaurants []models.Restaurant      `json:"restaurants"`
	Drivers     []models.Driver          `json:"drivers"`
	MenuItems   []models.MenuItem        `json:"menu_items"`
	Variants    []models.MenuItemVariant `json:"variants"`
	Promotions  []models.Promotion       `json:"promotions"`
	BuiltAt     time.Time                `json:"built_at"`
}

// Summary counts records per collection.
func (c *DataCollection) Summary() map[string]int {
	if c == nil {
		return map[string]int{}
	}
	return map[string]int{
		models.CollectionUsers:            len(c.Users),
		models.CollectionAddressBooks:     len(c.Addresses),
		models.CollectionFoodCategories:   len(c.Categories),
		models.CollectionCustomers:        len(c.Customers),
		models.CollectionRestaurants:      len(c.Restaurants),
		models.CollectionDrivers:          len(c.Drivers),
		models.CollectionMenuItems:        len(c.MenuItems),
		models.CollectionMenuItemVariants: len(c.Variants),
		models.CollectionPromotions:       len(c.Promotions),
	}
}

func (c *DataCollection) CustomerAddresses(customer models.Customer) []models.AddressBook {
	var out []models.AddressBook
	for _, a := range c.Addresses {
		if customer.OwnsAddress(a) {
			out = append(out, a)
		}
	}
	return out
}

func (c *DataCollection) RestaurantAddresses(restaurant models.Restaurant) []models.AddressBook {
	var out []models.AddressBook
	for _, a := range c.Addresses {
		if restaurant.OwnsAddress(a) {
			out = append(out, a)
		}
	}
	return out
}

func (c *DataCollection) MenuItemsOf(restaurantID string) []models.MenuItem {
	var out []models.MenuItem
	for _, m := range c.MenuItems {
		if m.RestaurantID == restaurantID {
			out = append(out, m)
		}
	}
	return out
}

func (c *DataCollection) VariantsOf(menuItemID string) []models.MenuItemVariant {
	var out []models.MenuItemVariant
	for _, v := range c.Variants {
		if v.MenuID == menuItemID {
			out = append(out, v)
		}
	}
	return out
}

// ActivePromotions returns promotions that are active and inside their
// validity window at now.
func (c *DataCollection) ActivePromotions(now time.Time) []models.Promotion {
	var out []models.Promotion
	for _, p := range c.Promotions {
		if p.ValidAt(now.Unix()) {
			out = append(out, p)
		}
	}
	return out
}

func (c *DataCollection) UsersWithRole(role models.UserType) []models.User {
	var out []models.User
	for _, u := range c.Users {
		if u.HasRole(role) {
			out = append(out, u)
		}
	}
	return out
}
