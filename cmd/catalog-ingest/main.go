package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/openshelf/elib/internal/repository"
)

// Supplier feeds arrive as gzipped CSV dumps with one book per line:
// isbn,title,author,category,price,copies,cover_url. Feeds overlap and are
// individually unreliable, so a title is only accepted into the catalog
// when its ISBN appears in at least two feeds.
const (
	bloomCapacity = 5_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 1_000_000
	isbnLen       = 13
)

// record is a parsed feed line.
type record struct {
	isbn     string
	title    string
	author   string
	category string
	price    decimal.Decimal
	copies   int
	coverURL string
}

// feedResult holds candidate records found in a single feed during pass 2.
type feedResult struct {
	candidates map[string]record
	masks      map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing bookfeedN.csv.gz files")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("bookfeed%d.csv.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: build one ISBN bloom filter per feed, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: collect records whose ISBN appears in 2+ feeds.
	slog.Info("pass 2: finding corroborated titles")

	accepted, err := findAcceptedRecords(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find accepted records")
	}

	slog.Info("titles accepted", slog.Int("count", len(accepted)))

	if len(accepted) == 0 {
		slog.Info("no titles to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeBooks(ctx, pool, accepted); err != nil {
		return errors.Wrap(err, "write books to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamFeed(ctx, path, func(rec record) {
			filter.AddString(rec.isbn)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("records", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_records", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findAcceptedRecords re-streams each feed and checks ISBNs against OTHER
// feeds' bloom filters. A title is accepted when it appears in 2 or more
// feeds; the record from the lowest-numbered feed wins.
func findAcceptedRecords(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]record, error) {
	results := make([]feedResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(findCandidatesInFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks across feeds, keeping the first feed's record.
	merged := make(map[string]uint)
	records := make(map[string]record)
	for i, r := range results {
		for isbn, mask := range r.masks {
			merged[isbn] |= mask
			if _, ok := records[isbn]; !ok {
				records[isbn] = results[i].candidates[isbn]
			}
		}
	}

	var accepted []record
	for isbn, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			accepted = append(accepted, records[isbn])
		}
	}

	return accepted, nil
}

func findCandidatesInFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []feedResult,
) func() error {
	return func() error {
		candidates := make(map[string]record)
		masks := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamFeed(ctx, path, func(rec record) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("records", count),
				)
			}

			// A record is a candidate when its ISBN also appears in any
			// OTHER feed's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(rec.isbn) {
					candidates[rec.isbn] = rec
					masks[rec.isbn] |= fileBit | (uint(1) << uint(j))
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_records", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = feedResult{candidates: candidates, masks: masks}
		return nil
	}
}

// streamFeed opens a gzipped CSV feed and calls fn for each well-formed
// record. Malformed lines are skipped, not fatal: supplier dumps are dirty.
func streamFeed(ctx context.Context, path string, fn func(rec record)) error {
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

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}

		rec, ok := parseRecord(row)
		if !ok {
			continue
		}
		fn(rec)
	}
}

func parseRecord(row []string) (record, bool) {
	if len(row) < 7 || len(row[0]) != isbnLen {
		return record{}, false
	}

	price, err := decimal.NewFromString(row[4])
	if err != nil || price.IsNegative() {
		return record{}, false
	}
	copies, err := strconv.Atoi(row[5])
	if err != nil || copies < 0 {
		return record{}, false
	}

	return record{
		isbn:     row[0],
		title:    row[1],
		author:   row[2],
		category: row[3],
		price:    price,
		copies:   copies,
		coverURL: row[6],
	}, true
}

const upsertBookSQL = `INSERT INTO books (id, title, author, category, price, no_of_copies, cover_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, author = EXCLUDED.author,
		category = EXCLUDED.category, price = EXCLUDED.price,
		no_of_copies = EXCLUDED.no_of_copies, cover_url = EXCLUDED.cover_url`

// writeBooks upserts all accepted titles into the catalog, keyed by ISBN.
func writeBooks(ctx context.Context, pool *pgxpool.Pool, records []record) error {
	slog.Info("writing books to database", slog.Int("count", len(records)))

	for i, rec := range records {
		_, err := pool.Exec(ctx, upsertBookSQL,
			rec.isbn, rec.title, rec.author, rec.category, rec.price, rec.copies, rec.coverURL,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert book %s", rec.isbn)
		}

		if (i+1)%100 == 0 || i+1 == len(records) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(records)))
		}
	}

	return nil
}
