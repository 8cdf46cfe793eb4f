package models

type OpeningHours struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type WeeklyHours struct {
	Mon OpeningHours `json:"mon"`
	Tue OpeningHours `json:"tue"`
	Wed OpeningHours `json:"wed"`
	Thu OpeningHours `json:"thu"`
	Fri OpeningHours `json:"fri"`
	Sat OpeningHours `json:"sat"`
	Sun OpeningHours `json:"sun"`
}

type RestaurantStatus struct {
	IsOpen           bool `json:"is_open"`
	IsActive         bool `json:"is_active"`
	IsAcceptedOrders bool `json:"is_accepted_orders"`
}

type RestaurantRating struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

type Restaurant struct {
	ID              string           `json:"id,omitempty"`
	OwnerID         string           `json:"owner_id"`
	OwnerName       string           `json:"owner_name"`
	AddressID       string           `json:"address_id"`
	RestaurantName  string           `json:"restaurant_name"`
	Description     string           `json:"description"`
	ContactEmail    []ContactEmail   `json:"contact_email"`
	ContactPhone    []ContactPhone   `json:"contact_phone"`
	Avatar          *Avatar          `json:"avatar,omitempty"`
	ImagesGallery   []Avatar         `json:"images_gallery"`
	Status          RestaurantStatus `json:"status"`
	Promotions      []string         `json:"promotions"`
	Ratings         RestaurantRating `json:"ratings"`
	FoodCategoryIDs []string         `json:"food_category_ids"`
	OpeningHours    WeeklyHours      `json:"opening_hours"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	Email           string           `json:"email"`
	Password        string           `json:"password,omitempty"`
	Phone           string           `json:"phone"`
}

func (r Restaurant) OwnsAddress(addr AddressBook) bool {
	if addr.RestaurantID != "" && addr.RestaurantID == r.ID {
		return true
	}
	return r.AddressID != "" && r.AddressID == addr.ID
}

type FoodCategory struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Avatar      *Avatar `json:"avatar,omitempty"`
}

type MenuItem struct {
	ID           string   `json:"id,omitempty"`
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Category     []string `json:"category"`
	Avatar       *Avatar  `json:"avatar,omitempty"`
	Availability bool     `json:"availability"`
	SuggestNotes []string `json:"suggest_notes,omitempty"`
}

type MenuItemVariant struct {
	ID                     string   `json:"id,omitempty"`
	MenuID                 string   `json:"menu_id"`
	Variant                string   `json:"variant"`
	Description            string   `json:"description"`
	Avatar                 *Avatar  `json:"avatar,omitempty"`
	Availability           bool     `json:"availability"`
	DefaultRestaurantNotes []string `json:"default_restaurant_notes,omitempty"`
	Price                  float64  `json:"price"`
	DiscountRate           *float64 `json:"discount_rate,omitempty"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

const PromotionActive = "ACTIVE"

type Promotion struct {
	ID                    string       `json:"id,omitempty"`
	Title                 string       `json:"title"`
	Description           string       `json:"description"`
	DiscountType          DiscountType `json:"discount_type"`
	DiscountValue         float64      `json:"discount_value"`
	MinimumOrderValue     float64      `json:"minimum_order_value"`
	MaximumDiscountAmount float64      `json:"maximum_discount_amount"`
	UsageLimit            int          `json:"usage_limit"`
	UsageCount            int          `json:"usage_count"`
	StartDate             int64        `json:"start_date"`
	EndDate               int64        `json:"end_date"`
	Status                string       `json:"status"`
	FoodCategoryIDs       []string     `json:"food_category_ids"`
	CreatedAt             int64        `json:"created_at"`
	UpdatedAt             int64        `json:"updated_at"`
}

// ValidAt reports whether the promotion is active and unix second now falls
// inside its validity window.
func (p Promotion) ValidAt(now int64) bool {
	return p.Status == PromotionActive && p.StartDate <= now && p.EndDate >= now
}
