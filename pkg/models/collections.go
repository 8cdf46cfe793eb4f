package models

// REST collection paths exposed by the backend.
const (
	CollectionUsers             = "users"
	CollectionAddressBooks      = "address_books"
	CollectionFoodCategories    = "food-categories"
	CollectionCustomers         = "customers"
	CollectionRestaurants       = "restaurants"
	CollectionDrivers           = "drivers"
	CollectionMenuItems         = "menu-items"
	CollectionMenuItemVariants  = "menu-item-variants"
	CollectionPromotions        = "promotions"
	CollectionOrders            = "orders"
	CollectionCustomerCares     = "customer-cares"
	CollectionCustomerInquiries = "customer-cares-inquiries"
)

var Collections = []string{
	CollectionUsers,
	CollectionAddressBooks,
	CollectionFoodCategories,
	CollectionCustomers,
	CollectionRestaurants,
	CollectionDrivers,
	CollectionMenuItems,
	CollectionMenuItemVariants,
	CollectionPromotions,
	CollectionOrders,
	CollectionCustomerCares,
	CollectionCustomerInquiries,
}
