package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a step of the delivery order lifecycle
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInDelivery OrderStatus = "in_delivery"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order represents a customer delivery order
type Order struct {
	ID             int64           `db:"id" json:"id"`
	CustomerID     int64           `db:"customer_id" json:"customer_id"`
	StoreID        int64           `db:"store_id" json:"store_id"`
	Items          []OrderItem     `db:"-" json:"items"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DeliveryFee    decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	Total          decimal.Decimal `db:"total" json:"total"`
	Status         OrderStatus     `db:"status" json:"status"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	DriverID       *int64          `db:"driver_id" json:"driver_id,omitempty"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	ScheduledDate  *time.Time      `db:"scheduled_date" json:"scheduled_date,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	AcceptedAt     *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	PreparingAt    *time.Time      `db:"preparing_at" json:"preparing_at,omitempty"`
	ReadyAt        *time.Time      `db:"ready_at" json:"ready_at,omitempty"`
	AssignedAt     *time.Time      `db:"assigned_at" json:"assigned_at,omitempty"`
	InDeliveryAt   *time.Time      `db:"in_delivery_at" json:"in_delivery_at,omitempty"`
	DeliveredAt    *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt    *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// OrderItem represents a priced line of an order
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// InventoryProduct is a stocked product of a vendor POS
type InventoryProduct struct {
	ID                int64           `db:"id" json:"id"`
	SKU               string          `db:"sku" json:"sku"`
	Name              string          `db:"name" json:"name"`
	Category          string          `db:"category" json:"category"`
	CostPrice         decimal.Decimal `db:"cost_price" json:"cost_price"`
	SellingPrice      decimal.Decimal `db:"selling_price" json:"selling_price"`
	Stock             int             `db:"stock" json:"stock"`
	LowStockThreshold int             `db:"low_stock_threshold" json:"low_stock_threshold"`
	Barcode           string          `db:"barcode" json:"barcode,omitempty"`
	SupplierID        *int64          `db:"supplier_id" json:"supplier_id,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Customer holds the purchase aggregates of a POS customer
type Customer struct {
	ID               int64           `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Email            string          `db:"email" json:"email,omitempty"`
	Phone            string          `db:"phone" json:"phone,omitempty"`
	TotalPurchases   decimal.Decimal `db:"total_purchases" json:"total_purchases"`
	LastPurchaseDate *time.Time      `db:"last_purchase_date" json:"last_purchase_date,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Sale is an immutable record of a completed POS sale
type Sale struct {
	ID            int64           `db:"id" json:"id"`
	CustomerID    *int64          `db:"customer_id" json:"customer_id,omitempty"`
	Items         []SaleItem      `db:"-" json:"items"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// SaleItem is a line of a sale
type SaleItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

// PaymentStatus of a payment
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment represents an order payment
type Payment struct {
	ID            int64           `db:"id" json:"id"`
	OrderID       int64           `db:"order_id" json:"order_id"`
	CustomerID    int64           `db:"customer_id" json:"customer_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Method        string          `db:"method" json:"method"`
	Status        PaymentStatus   `db:"status" json:"status"`
	TransactionID string          `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// Wallet is the stored balance of a customer
type Wallet struct {
	ID          int64           `db:"id" json:"id"`
	CustomerID  int64           `db:"customer_id" json:"customer_id"`
	Balance     decimal.Decimal `db:"balance" json:"balance"`
	TotalEarned decimal.Decimal `db:"total_earned" json:"total_earned"`
	TotalSpent  decimal.Decimal `db:"total_spent" json:"total_spent"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// WalletTransactionType is credit or debit
type WalletTransactionType string

// Wallet transaction types
const (
	WalletCredit WalletTransactionType = "credit"
	WalletDebit  WalletTransactionType = "debit"
)

// WalletTransaction is an append-only wallet movement. Amount is signed.
type WalletTransaction struct {
	ID               int64                 `db:"id" json:"id"`
	WalletID         int64                 `db:"wallet_id" json:"wallet_id"`
	Type             WalletTransactionType `db:"type" json:"type"`
	Amount           decimal.Decimal       `db:"amount" json:"amount"`
	Description      string                `db:"description" json:"description"`
	RelatedOrderID   *int64                `db:"related_order_id" json:"related_order_id,omitempty"`
	RelatedPaymentID *int64                `db:"related_payment_id" json:"related_payment_id,omitempty"`
	CreatedAt        time.Time             `db:"created_at" json:"created_at"`
}

// RefundStatus of a refund
type RefundStatus string

// Refund statuses
const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusApproved  RefundStatus = "approved"
	RefundStatusRejected  RefundStatus = "rejected"
	RefundStatusCompleted RefundStatus = "completed"
)

// Refund represents a refund request against a payment
type Refund struct {
	ID          int64           `db:"id" json:"id"`
	PaymentID   int64           `db:"payment_id" json:"payment_id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Reason      string          `db:"reason" json:"reason"`
	Status      RefundStatus    `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// LoyaltyTier is derived from the current point balance
type LoyaltyTier string

// Loyalty tiers
const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

// LoyaltyAccount holds a customer's points
type LoyaltyAccount struct {
	ID                  int64       `db:"id" json:"id"`
	CustomerID          int64       `db:"customer_id" json:"customer_id"`
	Points              int64       `db:"points" json:"points"`
	TotalPointsEarned   int64       `db:"total_points_earned" json:"total_points_earned"`
	TotalPointsRedeemed int64       `db:"total_points_redeemed" json:"total_points_redeemed"`
	Tier                LoyaltyTier `db:"tier" json:"tier"`
	ReferralCode        string      `db:"referral_code" json:"referral_code"`
	ReferralCount       int         `db:"referral_count" json:"referral_count"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
}

// LoyaltyTransactionType is earn or redeem
type LoyaltyTransactionType string

// Loyalty transaction types
const (
	LoyaltyEarn   LoyaltyTransactionType = "earn"
	LoyaltyRedeem LoyaltyTransactionType = "redeem"
)

// LoyaltyTransaction is an append-only point movement
type LoyaltyTransaction struct {
	ID          int64                  `db:"id" json:"id"`
	AccountID   int64                  `db:"account_id" json:"account_id"`
	Type        LoyaltyTransactionType `db:"type" json:"type"`
	Points      int64                  `db:"points" json:"points"`
	Description string                 `db:"description" json:"description"`
	OrderID     *int64                 `db:"order_id" json:"order_id,omitempty"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}

// LoyaltyReward is a catalog item purchasable with points
type LoyaltyReward struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	PointsCost  int64     `db:"points_cost" json:"points_cost"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Redemption records a reward claimed by a customer
type Redemption struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	RewardID    int64     `db:"reward_id" json:"reward_id"`
	PointsSpent int64     `db:"points_spent" json:"points_spent"`
	Code        string    `db:"code" json:"code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// VendorReview is a customer's rating of a vendor for one order
type VendorReview struct {
	ID                    int64      `db:"id" json:"id"`
	VendorID              int64      `db:"vendor_id" json:"vendor_id"`
	CustomerID            int64      `db:"customer_id" json:"customer_id"`
	OrderID               int64      `db:"order_id" json:"order_id"`
	Rating                int        `db:"rating" json:"rating"`
	FoodQualityRating     int        `db:"food_quality_rating" json:"food_quality_rating"`
	DeliveryTimeRating    int        `db:"delivery_time_rating" json:"delivery_time_rating"`
	CustomerServiceRating int        `db:"customer_service_rating" json:"customer_service_rating"`
	Comment               string     `db:"comment" json:"comment"`
	Helpful               int        `db:"helpful" json:"helpful"`
	Unhelpful             int        `db:"unhelpful" json:"unhelpful"`
	Response              string     `db:"response" json:"response,omitempty"`
	RespondedAt           *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}

// Vendor badges
const (
	BadgeTopRated         = "top_rated"
	BadgeFastDelivery     = "fast_delivery"
	BadgeExcellentService = "excellent_service"
)

// VendorTier reflects review volume and rating
type VendorTier string

// Vendor tiers
const (
	VendorBronze   VendorTier = "bronze"
	VendorSilver   VendorTier = "silver"
	VendorGold     VendorTier = "gold"
	VendorPlatinum VendorTier = "platinum"
)

// VendorPerformance is derived from a vendor's reviews and never written directly
type VendorPerformance struct {
	VendorID               int64      `db:"vendor_id" json:"vendor_id"`
	TotalReviews           int        `db:"total_reviews" json:"total_reviews"`
	AverageRating          float64    `db:"average_rating" json:"average_rating"`
	AverageFoodQuality     float64    `db:"average_food_quality" json:"average_food_quality"`
	AverageDeliveryTime    float64    `db:"average_delivery_time" json:"average_delivery_time"`
	AverageCustomerService float64    `db:"average_customer_service" json:"average_customer_service"`
	ResponseRate           float64    `db:"response_rate" json:"response_rate"`
	ResponseTimeMinutes    float64    `db:"response_time_minutes" json:"response_time_minutes"`
	Badges                 []string   `db:"-" json:"badges"`
	Tier                   VendorTier `db:"tier" json:"tier"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// LatLng is a geographic point in degrees
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DeliveryZone is a named polygon used for coarse driver matching
type DeliveryZone struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	City          string          `db:"city" json:"city"`
	Polygon       []LatLng        `db:"-" json:"polygon"`
	DeliveryFee   decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	EstimatedTime int             `db:"estimated_time" json:"estimated_time"`
	ActiveDrivers int             `db:"active_drivers" json:"active_drivers"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// DriverLocation is the latest position ping of a driver
type DriverLocation struct {
	DriverID  int64     `db:"driver_id" json:"driver_id"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	Heading   float64   `db:"heading" json:"heading"`
	Speed     float64   `db:"speed" json:"speed"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RouteStatus of a delivery route
type RouteStatus string

// Route statuses
const (
	RouteStatusPlanned   RouteStatus = "planned"
	RouteStatusActive    RouteStatus = "active"
	RouteStatusCompleted RouteStatus = "completed"
)

// DeliveryRoute groups orders delivered by one driver in one run
type DeliveryRoute struct {
	ID         int64       `db:"id" json:"id"`
	DriverID   int64       `db:"driver_id" json:"driver_id"`
	OrderIDs   []int64     `db:"-" json:"order_ids"`
	Status     RouteStatus `db:"status" json:"status"`
	DistanceKm float64     `db:"distance_km" json:"distance_km"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Conversation is a chat thread between participants
type Conversation struct {
	ID              int64      `db:"id" json:"id"`
	ParticipantIDs  []int64    `db:"-" json:"participant_ids"`
	OrderID         *int64     `db:"order_id" json:"order_id,omitempty"`
	LastMessage     string     `db:"last_message" json:"last_message"`
	LastMessageTime *time.Time `db:"last_message_time" json:"last_message_time,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// ChatMessage is an immutable message of a conversation
type ChatMessage struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TicketStatus of a support ticket
type TicketStatus string

// Ticket statuses
const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// SupportTicket is a customer or vendor support request
type SupportTicket struct {
	ID          int64        `db:"id" json:"id"`
	UserID      int64        `db:"user_id" json:"user_id"`
	OrderID     *int64       `db:"order_id" json:"order_id,omitempty"`
	Subject     string       `db:"subject" json:"subject"`
	Description string       `db:"description" json:"description"`
	Priority    string       `db:"priority" json:"priority"`
	Status      TicketStatus `db:"status" json:"status"`
	AssigneeID  *int64       `db:"assignee_id" json:"assignee_id,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	ResolvedAt  *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Notification is an in-app notification for a user
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Role of a marketplace user
type Role string

// Roles
const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// User is a marketplace account
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store is a vendor storefront
type Store struct {
	ID        int64     `db:"id" json:"id"`
	VendorID  int64     `db:"vendor_id" json:"vendor_id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Location  LatLng    `db:"-" json:"location"`
	ZoneID    *int64    `db:"zone_id" json:"zone_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Supplier provides stock to vendor inventories
type Supplier struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ContactName string    `db:"contact_name" json:"contact_name"`
	Phone       string    `db:"phone" json:"phone"`
	Email       string    `db:"email" json:"email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusAccepted:   1,
	OrderStatusPreparing:  2,
	OrderStatusReady:      3,
	OrderStatusAssigned:   4,
	OrderStatusInDelivery: 5,
	OrderStatusDelivered:  6,
	OrderStatusCancelled:  -1,
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Rank is the position of s along the delivery chain; cancelled ranks -1
func (s OrderStatus) Rank() int {
	return orderStatusRank[s]
}

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Valid reports whether s is a known refund status
func (s RefundStatus) Valid() bool {
	switch s {
	case RefundStatusPending, RefundStatusApproved, RefundStatusRejected, RefundStatusCompleted:
		return true
	}
	return false
}

// Valid reports whether s is a known ticket status
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}
