package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetZones retrieves all deliverable zones
func (s *Store) GetZones(ctx context.Context) ([]models.Zone, error) {
	var zones []models.Zone
	err := s.db.SelectContext(ctx, &zones, "SELECT * FROM delivery_zones ORDER BY id")
	return zones, err
}

// GetStock retrieves the stock row for an item
func (s *Store) GetStock(ctx context.Context, itemID string, itemType models.ItemType) (*models.Stock, error) {
	var stock models.Stock
	err := s.db.GetContext(ctx, &stock,
		"SELECT * FROM stock WHERE item_id = $1 AND item_type = $2", itemID, itemType)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stock not found for item: %s", itemID)
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}
