// Package dbtest opens in-memory sqlite databases carrying a portable copy of the Postgres
// schema, for repository and service tests. Geography columns are stored as EWKT text and
// arrays as Postgres array literals.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  is_active BOOLEAN NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  location TEXT,
  parking_ids TEXT NOT NULL DEFAULT '{}',
  wallet_balance INTEGER NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE wallet_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  kind TEXT NOT NULL CHECK (kind IN ('credit','debit')),
  amount INTEGER NOT NULL CHECK (amount > 0),
  description TEXT NOT NULL,
  balance_after INTEGER NOT NULL CHECK (balance_after >= 0),
  reference_type TEXT,
  reference_id TEXT,
  created_at DATETIME,
  seq INTEGER
);`,
	`CREATE TRIGGER wallet_transactions_seq AFTER INSERT ON wallet_transactions
BEGIN
  UPDATE wallet_transactions SET seq = NEW.rowid WHERE rowid = NEW.rowid;
END;`,
	`CREATE TABLE parkings (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  location TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '{}',
  parking_type TEXT NOT NULL,
  payment_type TEXT NOT NULL,
  ownership_type TEXT NOT NULL,
  rate_car TEXT NOT NULL DEFAULT '0',
  rate_bike TEXT NOT NULL DEFAULT '0',
  rate_bus_truck TEXT NOT NULL DEFAULT '0',
  capacity_car INTEGER NOT NULL CHECK (capacity_car >= 0),
  capacity_bike INTEGER NOT NULL DEFAULT 0 CHECK (capacity_bike >= 0),
  capacity_bus_truck INTEGER NOT NULL DEFAULT 0 CHECK (capacity_bus_truck >= 0),
  count_car INTEGER NOT NULL DEFAULT 0 CHECK (count_car >= 0 AND count_car <= capacity_car),
  count_bike INTEGER NOT NULL DEFAULT 0 CHECK (count_bike >= 0 AND count_bike <= capacity_bike),
  count_bus_truck INTEGER NOT NULL DEFAULT 0 CHECK (count_bus_truck >= 0 AND count_bus_truck <= capacity_bus_truck),
  amenities TEXT NOT NULL DEFAULT '{}',
  operating_hours TEXT NOT NULL DEFAULT '{}',
  owner_id TEXT NOT NULL,
  staff_ids TEXT NOT NULL DEFAULT '{}',
  is_active BOOLEAN NOT NULL DEFAULT 1,
  is_approved BOOLEAN NOT NULL DEFAULT 0,
  source_request_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE visits (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  parking_id TEXT NOT NULL,
  reported_location TEXT NOT NULL,
  distance_meters REAL NOT NULL CHECK (distance_meters >= 0),
  is_verified BOOLEAN NOT NULL DEFAULT 0,
  verification_method TEXT NOT NULL,
  coins_earned INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	`CREATE TABLE parking_requests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  request_type TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  location TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '{}',
  parking_details TEXT,
  images TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'pending',
  admin_notes TEXT,
  coins_awarded INTEGER NOT NULL DEFAULT 0,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_parking_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

// Open returns a private in-memory database with the application schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in a db.Client so services can run transactions against it.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.FromConn(Open(t))
}
