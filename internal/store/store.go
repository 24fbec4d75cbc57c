package store

import (
	"delivery-ledger/internal/models"
)

// Store holds every entity collection of the ledger. It is created once at
// startup and handed to the services; tests build a fresh one per case.
type Store struct {
	locker *Locker

	Orders              *Collection[models.Order]
	Users               *Collection[models.User]
	Stores              *Collection[models.Store]
	Products            *Collection[models.InventoryProduct]
	Customers           *Collection[models.Customer]
	Suppliers           *Collection[models.Supplier]
	Sales               *Collection[models.Sale]
	Payments            *Collection[models.Payment]
	Wallets             *Collection[models.Wallet]
	WalletTransactions  *Collection[models.WalletTransaction]
	Refunds             *Collection[models.Refund]
	LoyaltyAccounts     *Collection[models.LoyaltyAccount]
	LoyaltyTransactions *Collection[models.LoyaltyTransaction]
	Rewards             *Collection[models.LoyaltyReward]
	Redemptions         *Collection[models.Redemption]
	Reviews             *Collection[models.VendorReview]
	Performance         *Collection[models.VendorPerformance]
	Conversations       *Collection[models.Conversation]
	Messages            *Collection[models.ChatMessage]
	Tickets             *Collection[models.SupportTicket]
	Routes              *Collection[models.DeliveryRoute]
	Zones               *Collection[models.DeliveryZone]
	DriverLocations     *Collection[models.DriverLocation]
	Notifications       *Collection[models.Notification]
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	l := NewLocker()
	return &Store{
		locker:              l,
		Orders:              newCollection[models.Order]("order", l),
		Users:               newCollection[models.User]("user", l),
		Stores:              newCollection[models.Store]("store", l),
		Products:            newCollection[models.InventoryProduct]("product", l),
		Customers:           newCollection[models.Customer]("customer", l),
		Suppliers:           newCollection[models.Supplier]("supplier", l),
		Sales:               newCollection[models.Sale]("sale", l),
		Payments:            newCollection[models.Payment]("payment", l),
		Wallets:             newCollection[models.Wallet]("wallet", l),
		WalletTransactions:  newCollection[models.WalletTransaction]("wallet_tx", l),
		Refunds:             newCollection[models.Refund]("refund", l),
		LoyaltyAccounts:     newCollection[models.LoyaltyAccount]("loyalty", l),
		LoyaltyTransactions: newCollection[models.LoyaltyTransaction]("loyalty_tx", l),
		Rewards:             newCollection[models.LoyaltyReward]("reward", l),
		Redemptions:         newCollection[models.Redemption]("redemption", l),
		Reviews:             newCollection[models.VendorReview]("review", l),
		Performance:         newCollection[models.VendorPerformance]("performance", l),
		Conversations:       newCollection[models.Conversation]("conversation", l),
		Messages:            newCollection[models.ChatMessage]("message", l),
		Tickets:             newCollection[models.SupportTicket]("ticket", l),
		Routes:              newCollection[models.DeliveryRoute]("route", l),
		Zones:               newCollection[models.DeliveryZone]("zone", l),
		DriverLocations:     newCollection[models.DriverLocation]("driver_location", l),
		Notifications:       newCollection[models.Notification]("notification", l),
	}
}

// Lock acquires locks spanning several collections, e.g. a customer and
// the products of a sale. Build keys with Collection.Key.
func (s *Store) Lock(keys ...string) func() {
	return s.locker.Lock(keys...)
}
