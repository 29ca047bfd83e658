//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/solemart/storefront/internal/domain/auth"
	"github.com/solemart/storefront/internal/domain/coupon"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/storage/postgres"
)

// startPostgres launches a throwaway Postgres container and returns a
// migrated pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())

	pool, err := postgres.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool))
	return pool
}

func seedProduct(t *testing.T, repo *postgres.ProductRepository, sku string, price string, category string) product.Product {
	t.Helper()
	p := product.Product{
		ID:       uuid.NewString(),
		SKU:      sku,
		Name:     "Product " + sku,
		Price:    decimal.RequireFromString(price),
		Category: category,
	}
	require.NoError(t, repo.Upsert(context.Background(), &p))
	return p
}

func TestProductRepository_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	repo := postgres.NewProductRepository(pool)
	ctx := context.Background()

	p1 := seedProduct(t, repo, "SKU-0001", "19.99", "waffle")
	seedProduct(t, repo, "SKU-0002", "4.50", "cake")

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cakes, err := repo.ListByCategory(ctx, "cake")
	require.NoError(t, err)
	require.Len(t, cakes, 1)
	assert.Equal(t, "SKU-0002", cakes[0].SKU)

	got, err := repo.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-0001", got.SKU)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, product.ErrNotFound)

	// Upsert with the same SKU updates in place.
	p1.Name = "Renamed"
	p1.ID = uuid.NewString()
	require.NoError(t, repo.Upsert(ctx, &p1))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	repo := postgres.NewOrderRepository(pool)
	ctx := context.Background()

	o := &order.Order{
		ID:     uuid.NewString(),
		Number: 1001,
		UserID: "u1",
		Items: []order.Item{{
			ProductID: "p1", Name: "Waffle", Category: "waffle",
			UnitPrice: decimal.RequireFromString("6.50"), Quantity: 2,
			LineTotal: decimal.RequireFromString("13.00"),
		}},
		Subtotal:      decimal.RequireFromString("13.00"),
		Discount:      decimal.Zero,
		Shipping:      decimal.RequireFromString("9.95"),
		Tax:           decimal.RequireFromString("1.04"),
		Total:         decimal.RequireFromString("23.99"),
		Status:        order.StatusPendingPayment,
		PaymentStatus: order.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got.Number)
	assert.Equal(t, order.StatusPendingPayment, got.Status)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].LineTotal.Equal(decimal.RequireFromString("13.00")))

	// Guarded status update: wrong from-status writes nothing.
	err = repo.UpdateStatus(ctx, o.ID, order.StatusPaid, order.StatusProcessing)
	assert.ErrorIs(t, err, order.ErrNotFound)

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPendingPayment, order.StatusPaid))
	got, err = repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)

	// Events come back oldest first.
	for i, typ := range []order.EventType{order.EventCreated, order.EventPaymentCaptured} {
		require.NoError(t, repo.AppendEvent(ctx, o.ID, order.Event{
			ID:        uuid.NewString(),
			Type:      typ,
			Status:    got.Status,
			Message:   fmt.Sprintf("event %d", i),
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}
	events, err := repo.ListEvents(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, order.EventCreated, events[0].Type)
	assert.Equal(t, order.EventPaymentCaptured, events[1].Type)

	byUser, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestOrderNumberSequence_Increments(t *testing.T) {
	pool := startPostgres(t)
	seq := postgres.NewOrderNumberSequence(pool)
	ctx := context.Background()

	first, err := seq.Next(ctx)
	require.NoError(t, err)
	second, err := seq.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, first+1, second)
}

func TestCouponRepository_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	repo := postgres.NewCouponRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &coupon.Rule{
		Code:         "WELCOME10",
		DiscountType: coupon.DiscountPercentage,
		Value:        decimal.NewFromInt(10),
		Description:  "10% off",
	}))

	// Lookup is case-insensitive.
	rule, err := repo.FindByCode(ctx, "welcome10")
	require.NoError(t, err)
	assert.Equal(t, coupon.DiscountPercentage, rule.DiscountType)

	_, err = repo.FindByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	require.NoError(t, repo.IncrementUses(ctx, "WELCOME10"))
	rule, err = repo.FindByCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Uses)
}

func TestAPIKeyRepository_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	repo := postgres.NewAPIKeyRepository(pool)
	ctx := context.Background()

	identity := &auth.Identity{
		ID:      "key-1",
		KeyHash: "abc123",
		Name:    "test key",
		UserID:  "u1",
		Scopes:  []string{auth.ScopeStorefront},
	}
	require.NoError(t, repo.Upsert(ctx, identity))

	got, err := repo.FindByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.HasScope(auth.ScopeStorefront))
	assert.False(t, got.HasScope(auth.ScopeAdmin))

	_, err = repo.FindByHash(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}
