// Command seed-db loads demo products, coupons, and API keys into the
// database. It is idempotent; rerunning updates existing rows.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solemart/storefront/internal/domain/auth"
	"github.com/solemart/storefront/internal/domain/coupon"
	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		storeKey     string
		adminKey     string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&storeKey, "storefront-key", "", "storefront API key to seed (or SHOP_SEED_STOREFRONT_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or SHOP_SEED_ADMIN_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if storeKey == "" {
		storeKey = os.Getenv("SHOP_SEED_STOREFRONT_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("SHOP_SEED_ADMIN_KEY")
	}
	if storeKey == "" || adminKey == "" {
		slog.Error("API keys are required: set --storefront-key/--admin-key or the SHOP_SEED_* envs")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, storeKey, adminKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, storeKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKeys(ctx, postgres.NewAPIKeyRepository(pool), storeKey, adminKey, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		if err := repo.Upsert(ctx, &product.Product{
			ID:          id,
			SKU:         p.SKU,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    p.Category,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}

		slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding demo coupons")

	rules := []coupon.Rule{
		{
			Code:         "WELCOME10",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			Description:  "Welcome: 10% off your first order",
		},
		{
			Code:         "TENOFF",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(10),
			Description:  "$10 off your order",
		},
		{
			Code:         "BUYGETONE",
			DiscountType: coupon.DiscountFreeLowest,
			Value:        decimal.Zero,
			MinItems:     2,
			Description:  "Buy one get one: lowest priced item free",
		},
	}

	for i := range rules {
		if err := repo.Upsert(ctx, &rules[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", rules[i].Code)
		}

		slog.Info("upserted coupon", slog.String("code", rules[i].Code))
	}

	return nil
}

func seedAPIKeys(ctx context.Context, repo *postgres.APIKeyRepository, storeKey, adminKey, pepper string) error {
	slog.Info("seeding API keys")

	keys := []struct {
		id     string
		key    string
		name   string
		userID string
		scopes []string
	}{
		{"storefront-demo", storeKey, "Demo storefront key", "demo-user", []string{auth.ScopeStorefront}},
		{"admin-demo", adminKey, "Demo admin key", "", []string{auth.ScopeStorefront, auth.ScopeAdmin}},
	}

	for _, k := range keys {
		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(k.key))

		if err := repo.Upsert(ctx, &auth.Identity{
			ID:      k.id,
			KeyHash: hex.EncodeToString(mac.Sum(nil)),
			Name:    k.name,
			UserID:  k.userID,
			Scopes:  k.scopes,
		}); err != nil {
			return errors.Wrapf(err, "upsert api key %s", k.id)
		}

		slog.Info("upserted API key", slog.String("id", k.id))
	}

	return nil
}
