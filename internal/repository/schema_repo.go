package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrDDLInTx guards against MySQL silently committing an open transaction on DDL
var ErrDDLInTx = errors.New("schema changes cannot run inside a transaction")

// SchemaRepository owns the DDL of the two domain tables
type SchemaRepository interface {
	Drop(ctx context.Context) error
	Ensure(ctx context.Context) error
}

type schemaRepository struct {
	db *gorm.DB
}

func NewSchemaRepository(db *gorm.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

// Unconstrained NUMERIC on MySQL means DECIMAL(10,0), so it gets an explicit scale.
// The foreign key is table level because MySQL ignores inline REFERENCES.
func ddl(dialect string) []string {
	money := "NUMERIC"
	if dialect == "mysql" {
		money = "DECIMAL(20,6)"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			product_id BIGINT PRIMARY KEY,
			name       TEXT NOT NULL,
			category   TEXT,
			price      ` + money + ` CHECK (price >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id     BIGINT PRIMARY KEY,
			product_id   BIGINT,
			quantity     INTEGER CHECK (quantity > 0),
			created_date DATE,
			FOREIGN KEY (product_id) REFERENCES products(product_id)
		)`,
	}
}

func (r *schemaRepository) Drop(ctx context.Context) error {
	if InTx(ctx) {
		return ErrDDLInTx
	}
	db := GetDB(ctx, r.db)
	// orders references products
	for _, table := range []string{"orders", "products"} {
		if err := db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func (r *schemaRepository) Ensure(ctx context.Context) error {
	if InTx(ctx) {
		return ErrDDLInTx
	}
	db := GetDB(ctx, r.db)
	for _, stmt := range ddl(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
