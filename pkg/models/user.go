package models

type UserType string

const (
	UserTypeCustomer        UserType = "CUSTOMER"
	UserTypeDriver          UserType = "DRIVER"
	UserTypeRestaurantOwner UserType = "RESTAURANT_OWNER"
	UserTypeCustomerCare    UserType = "CUSTOMER_CARE_REPRESENTATIVE"
)

type User struct {
	ID         string     `json:"id,omitempty"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Password   string     `json:"password,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	UserType   []UserType `json:"user_type"`
	Address    []string   `json:"address"`
	Avatar     *Avatar    `json:"avatar,omitempty"`
	IsVerified bool       `json:"is_verified"`
}

func (u User) HasRole(role UserType) bool {
	for _, t := range u.UserType {
		if t == role {
			return true
		}
	}
	return false
}

type AddressBook struct {
	ID           string    `json:"id,omitempty"`
	Street       string    `json:"street"`
	City         string    `json:"city"`
	Nationality  string    `json:"nationality"`
	PostalCode   string    `json:"postal_code"`
	Location     *Location `json:"location,omitempty"`
	IsDefault    bool      `json:"is_default"`
	Title        string    `json:"title"`
	UserID       string    `json:"user_id,omitempty"`
	CustomerID   string    `json:"customer_id,omitempty"`
	RestaurantID string    `json:"restaurant_id,omitempty"`
	CreatedAt    int64     `json:"created_at"`
	UpdatedAt    int64     `json:"updated_at"`
}
