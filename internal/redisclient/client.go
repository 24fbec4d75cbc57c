package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"delivery-ledger/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_location.lua
var setLocationScript string

const locationTTL = time.Hour

// ErrNoLocation is returned when no position is mirrored for a driver
var ErrNoLocation = errors.New("redisclient: no driver location")

// Client mirrors driver positions to Redis for dispatch services that do
// not share the ledger's memory
type Client struct {
	rdb            *redis.Client
	locationScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:            rdb,
		locationScript: redis.NewScript(setLocationScript),
	}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func locationKey(driverID int64) string {
	return fmt.Sprintf("driver_location:%d", driverID)
}

// MirrorDriverLocation stores a position unless Redis already holds a newer
// one for the driver
func (c *Client) MirrorDriverLocation(ctx context.Context, loc models.DriverLocation) error {
	_, err := c.locationScript.Run(ctx, c.rdb,
		[]string{locationKey(loc.DriverID)},
		formatFloat(loc.Latitude),
		formatFloat(loc.Longitude),
		formatFloat(loc.Heading),
		formatFloat(loc.Speed),
		loc.UpdatedAt.UnixMilli(),
		int64(locationTTL/time.Second),
	).Result()
	if err != nil {
		return fmt.Errorf("set location script failed: %w", err)
	}
	return nil
}

// GetDriverLocation reads the mirrored position of a driver. It returns
// ErrNoLocation when none is stored or the entry expired.
func (c *Client) GetDriverLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error) {
	fields, err := c.rdb.HGetAll(ctx, locationKey(driverID)).Result()
	if err != nil {
		return nil, err
	}
	return locationFromHash(driverID, fields)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func locationFromHash(driverID int64, fields map[string]string) (*models.DriverLocation, error) {
	if len(fields) == 0 {
		return nil, ErrNoLocation
	}

	loc := &models.DriverLocation{DriverID: driverID}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"lat", &loc.Latitude},
		{"lng", &loc.Longitude},
		{"heading", &loc.Heading},
		{"speed", &loc.Speed},
	} {
		v, err := strconv.ParseFloat(fields[f.name], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s for driver %d: %w", f.name, driverID, err)
		}
		*f.dst = v
	}

	ms, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at for driver %d: %w", driverID, err)
	}
	loc.UpdatedAt = time.UnixMilli(ms).UTC()
	return loc, nil
}
