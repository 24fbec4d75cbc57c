package service

import (
	"context"
	"fmt"
	"strings"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"go.uber.org/zap"
)

// DirectoryService registers the marketplace's users, storefronts and suppliers
type DirectoryService struct {
	store  *store.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(store *store.Store, clk clock.Clock) *DirectoryService {
	return &DirectoryService{
		store:  store,
		clock:  clk,
		logger: util.GetLogger(),
	}
}

func validRole(r models.Role) bool {
	switch r {
	case models.RoleCustomer, models.RoleVendor, models.RoleDriver, models.RoleAdmin:
		return true
	}
	return false
}

// CreateUser registers a user; emails are unique case-insensitively
func (s *DirectoryService) CreateUser(ctx context.Context, input models.User) (*models.User, error) {
	if input.Name == "" {
		return nil, invalid("name", "required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "must be an email address")
	}
	if input.Role == "" {
		input.Role = models.RoleCustomer
	}
	if !validRole(input.Role) {
		return nil, invalid("role", fmt.Sprintf("unknown role %s", input.Role))
	}

	unlock := s.store.Lock("user_email:" + email)
	defer unlock()

	if _, taken := s.store.Users.Find(func(u models.User) bool { return u.Email == email }); taken {
		return nil, invalid("email", "already registered")
	}

	now := s.clock.Now()
	u := s.store.Users.Insert(func(id int64) models.User {
		return models.User{
			ID:        id,
			Name:      input.Name,
			Email:     email,
			Phone:     input.Phone,
			Role:      input.Role,
			CreatedAt: now,
		}
	})

	s.logger.Info("User registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return &u, nil
}

// GetUser retrieves a user by ID
func (s *DirectoryService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, ok := s.store.Users.Get(userID)
	if !ok {
		return nil, notFound("user", userID)
	}
	return &u, nil
}

// ListUsers lists users, optionally filtered by role
func (s *DirectoryService) ListUsers(ctx context.Context, role models.Role) []models.User {
	return s.store.Users.List(func(u models.User) bool {
		return role == "" || u.Role == role
	})
}

// CreateStore registers a storefront owned by a vendor user
func (s *DirectoryService) CreateStore(ctx context.Context, input models.Store) (*models.Store, error) {
	if input.Name == "" {
		return nil, invalid("name", "required")
	}
	vendor, ok := s.store.Users.Get(input.VendorID)
	if !ok {
		return nil, notFound("user", input.VendorID)
	}
	if vendor.Role != models.RoleVendor {
		return nil, invalid("vendor_id", "user is not a vendor")
	}
	if input.ZoneID != nil {
		if _, ok := s.store.Zones.Get(*input.ZoneID); !ok {
			return nil, notFound("zone", *input.ZoneID)
		}
	}

	now := s.clock.Now()
	st := s.store.Stores.Insert(func(id int64) models.Store {
		st := input
		st.ID = id
		st.CreatedAt = now
		return st
	})
	return &st, nil
}

// GetStore retrieves a storefront by ID
func (s *DirectoryService) GetStore(ctx context.Context, storeID int64) (*models.Store, error) {
	st, ok := s.store.Stores.Get(storeID)
	if !ok {
		return nil, notFound("store", storeID)
	}
	return &st, nil
}

// CreateSupplier registers a supplier
func (s *DirectoryService) CreateSupplier(ctx context.Context, input models.Supplier) (*models.Supplier, error) {
	if input.Name == "" {
		return nil, invalid("name", "required")
	}

	now := s.clock.Now()
	sp := s.store.Suppliers.Insert(func(id int64) models.Supplier {
		sp := input
		sp.ID = id
		sp.CreatedAt = now
		return sp
	})
	return &sp, nil
}

// ListSuppliers lists all suppliers
func (s *DirectoryService) ListSuppliers(ctx context.Context) []models.Supplier {
	return s.store.Suppliers.List(nil)
}
