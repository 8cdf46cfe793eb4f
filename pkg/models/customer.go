package models

type AppPreferences struct {
	Theme string `json:"theme"`
}

type Customer struct {
	ID                    string         `json:"id,omitempty"`
	UserID                string         `json:"user_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	Avatar                *Avatar        `json:"avatar,omitempty"`
	AddressIDs            []string       `json:"address_ids"`
	PreferredCategoryIDs  []string       `json:"preferred_category_ids"`
	FavoriteRestaurantIDs []string       `json:"favorite_restaurant_ids"`
	FavoriteItems         []string       `json:"favorite_items"`
	SupportTickets        []string       `json:"support_tickets"`
	AppPreferences        AppPreferences `json:"app_preferences"`
	RestaurantHistory     []string       `json:"restaurant_history"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

// OwnsAddress reports whether addr is one of the customer's delivery
// addresses, either by back-reference or by the customer's own id list.
func (c Customer) OwnsAddress(addr AddressBook) bool {
	if addr.CustomerID != "" && addr.CustomerID == c.ID {
		return true
	}
	if addr.UserID != "" && addr.UserID == c.UserID {
		return true
	}
	for _, id := range c.AddressIDs {
		if id == addr.ID {
			return true
		}
	}
	return false
}

type VehicleType string

const (
	VehicleMotorbike VehicleType = "MOTORBIKE"
	VehicleCar       VehicleType = "CAR"
	VehicleBicycle   VehicleType = "BICYCLE"
)

type VehicleInfo struct {
	Type         VehicleType `json:"type"`
	LicensePlate string      `json:"license_plate"`
	Model        string      `json:"model"`
	Color        string      `json:"color"`
}

type DriverStatus struct {
	IsActive    bool `json:"is_active"`
	IsAvailable bool `json:"is_available"`
	IsVerified  bool `json:"is_verified"`
}

type DriverRating struct {
	AverageRating float64 `json:"average_rating"`
	TotalRating   int     `json:"total_rating"`
}

type Driver struct {
	ID                 string       `json:"id,omitempty"`
	UserID             string       `json:"user_id"`
	FirstName          string       `json:"first_name"`
	LastName           string       `json:"last_name"`
	Email              string       `json:"email"`
	Phone              string       `json:"phone"`
	LicenseNumber      string       `json:"license_number"`
	LicenseImage       Avatar       `json:"license_image"`
	IdentityCardNumber string       `json:"identity_card_number"`
	IdentityCardImage  Avatar       `json:"identity_card_image"`
	Avatar             *Avatar      `json:"avatar,omitempty"`
	VehicleInfo        VehicleInfo  `json:"vehicle_info"`
	Location           Location     `json:"location"`
	Status             DriverStatus `json:"status"`
	Rating             DriverRating `json:"rating"`
	CreatedAt          int64        `json:"created_at"`
	UpdatedAt          int64        `json:"updated_at"`
}
