// Command catalog-ingest loads the product catalog from supplier feed files.
//
// Each feed is a gzip-compressed NDJSON file of product records. Supplier
// feeds are noisy, so a product is only accepted when its SKU appears in at
// least two independent feeds. Feeds are large; a two-pass scan with one
// bloom filter per file keeps memory bounded: pass 1 builds the filters,
// pass 2 keeps the records whose SKU probably appears in another feed.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minSKULen     = 4
	maxSKULen     = 32
)

// feedRecord is one supplier feed line.
type feedRecord struct {
	SKU         string
	Name        string
	Description string
	Price       string
	Category    string
	Thumbnail   string
	Mobile      string
	Tablet      string
	Desktop     string
}

// fileResult holds the records found in one feed during pass 2, keyed by SKU
// with a bitmask of the feeds the SKU was seen in.
type fileResult struct {
	records map[string]feedRecord
	seen    map[string]uint
}

func main() {
	var (
		feedGlob    string
		databaseURL string
	)

	flag.StringVar(&feedGlob, "feeds", "data/feed*.ndjson.gz", "glob of supplier feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, feedGlob, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, feedGlob, databaseURL string) error {
	files, err := filepath.Glob(feedGlob)
	if err != nil {
		return errors.Wrap(err, "expand feed glob")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least two feeds for cross-validation, found %d", len(files))
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: collecting cross-validated products")

	products, err := collectValidProducts(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "collect products")
	}

	slog.Info("validated products", slog.Int("count", len(products)))

	if len(products) == 0 {
		slog.Info("no products to insert")
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeProducts(ctx, postgres.NewProductRepository(pool), products)
}

// buildBloomFilters creates one bloom filter of SKUs per feed, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line []byte) {
			rec, err := decodeFeedRecord(line)
			if err != nil || !validSKU(rec.SKU) {
				return
			}
			filter.AddString(rec.SKU)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("records", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_records", count),
		)

		filters[idx] = filter
		return nil
	}
}

// collectValidProducts re-streams each feed and keeps records whose SKU
// appears in at least one OTHER feed's filter. Merged across feeds, a SKU
// kept by two or more feeds is accepted.
func collectValidProducts(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]feedRecord, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(collectCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	records := make(map[string]feedRecord)
	for _, r := range results {
		for sku, mask := range r.seen {
			merged[sku] |= mask
			if rec, ok := r.records[sku]; ok {
				records[sku] = rec
			}
		}
	}

	var valid []feedRecord
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, records[sku])
		}
	}
	return valid, nil
}

func collectCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		res := fileResult{
			records: make(map[string]feedRecord),
			seen:    make(map[string]uint),
		}
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line []byte) {
			rec, err := decodeFeedRecord(line)
			if err != nil || !validSKU(rec.SKU) {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("records", count),
				)
			}

			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(rec.SKU) {
					res.seen[rec.SKU] |= fileBit
					res.records[rec.SKU] = rec
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_records", count),
			slog.Int("candidates", len(res.seen)),
		)

		results[idx] = res
		return nil
	}
}

// decodeFeedRecord parses one NDJSON feed line. Unknown keys are skipped so
// suppliers can extend their feeds without breaking ingest.
func decodeFeedRecord(line []byte) (feedRecord, error) {
	var rec feedRecord
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   string
			err error
		)
		switch key {
		case "sku":
			v, err = d.Str()
			rec.SKU = strings.ToUpper(strings.TrimSpace(v))
		case "name":
			v, err = d.Str()
			rec.Name = v
		case "description":
			v, err = d.Str()
			rec.Description = v
		case "price":
			n, numErr := d.Num()
			if numErr != nil {
				return numErr
			}
			rec.Price = n.String()
		case "category":
			v, err = d.Str()
			rec.Category = v
		case "image":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				s, err := d.Str()
				if err != nil {
					return err
				}
				switch key {
				case "thumbnail":
					rec.Thumbnail = s
				case "mobile":
					rec.Mobile = s
				case "tablet":
					rec.Tablet = s
				case "desktop":
					rec.Desktop = s
				}
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return rec, err
}

func validSKU(sku string) bool {
	return len(sku) >= minSKULen && len(sku) <= maxSKULen
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// writeProducts upserts validated products, keyed by SKU.
func writeProducts(ctx context.Context, repo *postgres.ProductRepository, records []feedRecord) error {
	slog.Info("writing products to database", slog.Int("count", len(records)))

	for i, rec := range records {
		price, err := decimal.NewFromString(rec.Price)
		if err != nil {
			slog.Warn("skipping product with bad price",
				slog.String("sku", rec.SKU),
				slog.String("price", rec.Price),
			)
			continue
		}

		p := &product.Product{
			ID:          uuid.NewString(),
			SKU:         rec.SKU,
			Name:        rec.Name,
			Description: rec.Description,
			Price:       price,
			Category:    rec.Category,
			Image: product.Image{
				Thumbnail: rec.Thumbnail,
				Mobile:    rec.Mobile,
				Tablet:    rec.Tablet,
				Desktop:   rec.Desktop,
			},
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", rec.SKU)
		}

		if (i+1)%100 == 0 || i+1 == len(records) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(records)))
		}
	}
	return nil
}
