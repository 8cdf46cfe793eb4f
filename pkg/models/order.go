package models

type OrderStatus string

const (
	OrderPending            OrderStatus = "PENDING"
	OrderRestaurantAccepted OrderStatus = "RESTAURANT_ACCEPTED"
	OrderPreparing          OrderStatus = "PREPARING"
	OrderInProgress         OrderStatus = "IN_PROGRESS"
	OrderReadyForPickup     OrderStatus = "READY_FOR_PICKUP"
	OrderRestaurantPickup   OrderStatus = "RESTAURANT_PICKUP"
	OrderDispatched         OrderStatus = "DISPATCHED"
	OrderEnRoute            OrderStatus = "EN_ROUTE"
	OrderOutForDelivery     OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered          OrderStatus = "DELIVERED"
	OrderDeliveryFailed     OrderStatus = "DELIVERY_FAILED"
)

var OrderStatuses = []OrderStatus{
	OrderPending, OrderRestaurantAccepted, OrderPreparing, OrderInProgress,
	OrderReadyForPickup, OrderRestaurantPickup, OrderDispatched, OrderEnRoute,
	OrderOutForDelivery, OrderDelivered, OrderDeliveryFailed,
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed}

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentFWallet PaymentMethod = "FWallet"
)

var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentFWallet}

type TrackingInfo string

var TrackingInfos = []TrackingInfo{
	"ORDER_PLACED", "ORDER_RECEIVED", "PREPARING", "IN_PROGRESS",
	"RESTAURANT_PICKUP", "DISPATCHED", "EN_ROUTE", "OUT_FOR_DELIVERY",
	"DELIVERY_FAILED", "DELIVERED",
}

type OrderItem struct {
	ItemID                     string  `json:"item_id"`
	VariantID                  string  `json:"variant_id,omitempty"`
	Name                       string  `json:"name"`
	Quantity                   int     `json:"quantity"`
	PriceAtTimeOfOrder         float64 `json:"price_at_time_of_order"`
	PriceAfterAppliedPromotion float64 `json:"price_after_applied_promotion"`
}

type Order struct {
	ID                 string        `json:"id,omitempty"`
	CustomerID         string        `json:"customer_id"`
	RestaurantID       string        `json:"restaurant_id"`
	Distance           float64       `json:"distance"`
	Status             OrderStatus   `json:"status"`
	TotalAmount        float64       `json:"total_amount"`
	DeliveryFee        float64       `json:"delivery_fee"`
	ServiceFee         float64       `json:"service_fee"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	CustomerLocation   string        `json:"customer_location"`
	RestaurantLocation string        `json:"restaurant_location"`
	OrderItems         []OrderItem   `json:"order_items"`
	CustomerNote       string        `json:"customer_note,omitempty"`
	RestaurantNote     string        `json:"restaurant_note,omitempty"`
	OrderTime          int64         `json:"order_time"`
	DeliveryTime       int64         `json:"delivery_time"`
	TrackingInfo       TrackingInfo  `json:"tracking_info"`
	PromotionApplied   string        `json:"promotion_applied,omitempty"`
}
