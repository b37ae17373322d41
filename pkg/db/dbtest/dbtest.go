// Package dbtest opens in-memory SQLite databases carrying the marketplace schema.
// The DDL mirrors pkg/migrate/migrations closely enough for repository tests:
// same tables, same named constraints, same uniqueness and cascades.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE identities (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		raw_user_meta_data TEXT NOT NULL DEFAULT '{}',
		last_sign_in_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY REFERENCES identities(id) ON DELETE CASCADE,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'buyer' CONSTRAINT profiles_role_check CHECK (role IN ('buyer','seller')),
		email TEXT NOT NULL,
		phone TEXT,
		bio TEXT,
		avatar_url TEXT,
		wishlist TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE sellers (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		store_name TEXT NOT NULL,
		description TEXT,
		address TEXT,
		payment_info TEXT,
		verified BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT sellers_profile_id_key UNIQUE (profile_id)
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL CONSTRAINT products_price_check CHECK (price > 0),
		stock INTEGER NOT NULL DEFAULT 0 CONSTRAINT products_stock_check CHECK (stock >= 0),
		category TEXT NOT NULL,
		image_url TEXT,
		video_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		seller_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CONSTRAINT orders_quantity_check CHECK (quantity > 0),
		unit_price NUMERIC NOT NULL,
		total_price NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		shipping_address TEXT NOT NULL,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		recipient_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		product_id TEXT REFERENCES products(id) ON DELETE SET NULL,
		parent_id TEXT REFERENCES messages(id) ON DELETE SET NULL,
		content TEXT NOT NULL CONSTRAINT messages_content_check CHECK (length(trim(content)) > 0),
		is_read BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE cart_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL DEFAULT 1 CONSTRAINT cart_items_quantity_check CHECK (quantity > 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT cart_items_user_id_product_id_key UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE wishlist (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		CONSTRAINT wishlist_user_id_product_id_key UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE product_likes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		CONSTRAINT product_likes_user_id_product_id_key UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE product_comments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		content TEXT NOT NULL CONSTRAINT product_comments_content_check CHECK (length(trim(content)) > 0),
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh, isolated in-memory database with the schema applied
// and the shared callbacks registered.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.RegisterCallbacks(conn); err != nil {
		t.Fatalf("register callbacks: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	client, err := db.Wrap(conn)
	if err != nil {
		t.Fatalf("wrap client: %v", err)
	}
	return client, conn
}
