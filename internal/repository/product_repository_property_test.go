package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, price float64, salePrice float64, imageURL string, stock int) bool {
			ctx := context.Background()
			category := createTestCategory(t)

			product := &domain.Product{
				ID:            uuid.New(),
				Name:          name,
				Description:   description,
				Price:         price,
				CategoryID:    category.ID,
				ImageURL:      imageURL,
				StockQuantity: stock,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			}
			if salePrice < price {
				product.SalePrice = &salePrice
			}

			err := productRepo.Create(ctx, product)
			if err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.ID != product.ID {
				t.Logf("FAIL: ID mismatch. Expected %s, got %s", product.ID, retrieved.ID)
				return false
			}

			if retrieved.Name != product.Name {
				t.Logf("FAIL: Name mismatch. Expected %s, got %s", product.Name, retrieved.Name)
				return false
			}

			if retrieved.Description != product.Description {
				t.Logf("FAIL: Description mismatch. Expected %s, got %s", product.Description, retrieved.Description)
				return false
			}

			// Compare prices with small tolerance for floating point
			if retrieved.Price < product.Price-0.01 || retrieved.Price > product.Price+0.01 {
				t.Logf("FAIL: Price mismatch. Expected %f, got %f", product.Price, retrieved.Price)
				return false
			}

			if product.SalePrice == nil {
				if retrieved.SalePrice != nil {
					t.Logf("FAIL: Expected no sale price, got %f", *retrieved.SalePrice)
					return false
				}
			} else {
				if retrieved.SalePrice == nil {
					t.Logf("FAIL: Sale price was dropped")
					return false
				}
				if *retrieved.SalePrice < *product.SalePrice-0.01 || *retrieved.SalePrice > *product.SalePrice+0.01 {
					t.Logf("FAIL: Sale price mismatch. Expected %f, got %f", *product.SalePrice, *retrieved.SalePrice)
					return false
				}
			}

			if retrieved.CategoryID != product.CategoryID {
				t.Logf("FAIL: CategoryID mismatch. Expected %s, got %s", product.CategoryID, retrieved.CategoryID)
				return false
			}

			if retrieved.ImageURL != product.ImageURL {
				t.Logf("FAIL: ImageURL mismatch. Expected %s, got %s", product.ImageURL, retrieved.ImageURL)
				return false
			}

			if retrieved.StockQuantity != product.StockQuantity {
				t.Logf("FAIL: StockQuantity mismatch. Expected %d, got %d", product.StockQuantity, retrieved.StockQuantity)
				return false
			}

			if retrieved.CreatedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
				t.Logf("FAIL: timestamps not set")
				return false
			}

			// Cleanup
			_ = productRepo.Delete(ctx, product.ID)
			_, _ = testDB.Exec("DELETE FROM categories WHERE id = $1", category.ID)

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),                      // name
		gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),                // description
		gen.Float64Range(0.01, 9999.99),                           // price
		gen.Float64Range(0.01, 9999.99),                           // sale price candidate
		gen.RegexMatch(`https?://[a-z0-9.-]+/[a-z0-9/._-]{1,50}`), // imageURL
		gen.IntRange(0, 1000),                                     // stock
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ProductUpdatesAreReflected(t *testing.T) {
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("updating a product and retrieving it shows the updated values", prop.ForAll(
		func(name1 string, name2 string, price1 float64, price2 float64, stock1 int, stock2 int) bool {
			ctx := context.Background()
			category := createTestCategory(t)

			product := &domain.Product{
				ID:            uuid.New(),
				Name:          name1,
				Description:   "Initial description",
				Price:         price1,
				CategoryID:    category.ID,
				ImageURL:      "http://example.com/image1.jpg",
				StockQuantity: stock1,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			}

			err := productRepo.Create(ctx, product)
			if err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			product.Name = name2
			product.Price = price2
			product.StockQuantity = stock2
			product.UpdatedAt = time.Now()

			err = productRepo.Update(ctx, product)
			if err != nil {
				t.Logf("FAIL: Failed to update product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != name2 {
				t.Logf("FAIL: Name not updated. Expected %s, got %s", name2, retrieved.Name)
				return false
			}

			if retrieved.Price < price2-0.01 || retrieved.Price > price2+0.01 {
				t.Logf("FAIL: Price not updated. Expected %f, got %f", price2, retrieved.Price)
				return false
			}

			if retrieved.StockQuantity != stock2 {
				t.Logf("FAIL: StockQuantity not updated. Expected %d, got %d", stock2, retrieved.StockQuantity)
				return false
			}

			// Cleanup
			_ = productRepo.Delete(ctx, product.ID)
			_, _ = testDB.Exec("DELETE FROM categories WHERE id = $1", category.ID)

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`), // name1
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`), // name2
		gen.Float64Range(0.01, 9999.99),      // price1
		gen.Float64Range(0.01, 9999.99),      // price2
		gen.IntRange(0, 1000),                // stock1
		gen.IntRange(0, 1000),                // stock2
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ProductDeletionRemovesFromCatalog(t *testing.T) {
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("deleting a product makes it not retrievable", prop.ForAll(
		func(name string, price float64, stock int) bool {
			ctx := context.Background()
			category := createTestCategory(t)

			product := &domain.Product{
				ID:            uuid.New(),
				Name:          name,
				Description:   "To be deleted",
				Price:         price,
				CategoryID:    category.ID,
				ImageURL:      "http://example.com/image.jpg",
				StockQuantity: stock,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			}

			err := productRepo.Create(ctx, product)
			if err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			if _, err = productRepo.FindByID(ctx, product.ID); err != nil {
				t.Logf("FAIL: Product should exist before deletion: %v", err)
				return false
			}

			if err = productRepo.Delete(ctx, product.ID); err != nil {
				t.Logf("FAIL: Failed to delete product: %v", err)
				return false
			}

			if _, err = productRepo.FindByID(ctx, product.ID); err != ErrProductNotFound {
				t.Logf("FAIL: Expected ErrProductNotFound after deletion, got: %v", err)
				return false
			}

			// Cleanup category
			_, _ = testDB.Exec("DELETE FROM categories WHERE id = $1", category.ID)

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`), // name
		gen.Float64Range(0.01, 9999.99),      // price
		gen.IntRange(0, 1000),                // stock
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
