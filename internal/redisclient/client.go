package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when a session has no stored cart or address
var ErrNotFound = errors.New("not found")

// Sessions idle out after a week; the cart must survive reloads but not forever.
const sessionTTL = 7 * 24 * time.Hour

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func addressKey(sessionID string) string {
	return fmt.Sprintf("address:%s", sessionID)
}

// LoadCart loads the session's cart; ErrNotFound when none is stored
func (c *Client) LoadCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	data, err := c.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart failed: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	return &cart, nil
}

// SaveCart persists the session's cart as a JSON blob
func (c *Client) SaveCart(ctx context.Context, sessionID string, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	return c.rdb.Set(ctx, cartKey(sessionID), data, sessionTTL).Err()
}

// DeleteCart removes the session's cart
func (c *Client) DeleteCart(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, cartKey(sessionID)).Err()
}

// LoadAddress loads the session's delivery address; ErrNotFound when unset
func (c *Client) LoadAddress(ctx context.Context, sessionID string) (*models.DeliveryAddress, error) {
	data, err := c.rdb.Get(ctx, addressKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get address failed: %w", err)
	}

	var addr models.DeliveryAddress
	if err := json.Unmarshal(data, &addr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal address: %w", err)
	}
	return &addr, nil
}

// SaveAddress persists the session's delivery address
func (c *Client) SaveAddress(ctx context.Context, sessionID string, addr *models.DeliveryAddress) error {
	data, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("failed to marshal address: %w", err)
	}
	return c.rdb.Set(ctx, addressKey(sessionID), data, sessionTTL).Err()
}
