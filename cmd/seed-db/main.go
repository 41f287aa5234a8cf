package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openshelf/elib/internal/domain/auth"
	"github.com/openshelf/elib/internal/repository"
)

type bookJSON struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	NoOfCopies int             `json:"noOfCopies"`
	CoverURL   string          `json:"coverUrl"`
}

type memberJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

const (
	upsertBookSQL = `INSERT INTO books (id, title, author, category, price, no_of_copies, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, author = EXCLUDED.author,
			category = EXCLUDED.category, price = EXCLUDED.price,
			no_of_copies = EXCLUDED.no_of_copies, cover_url = EXCLUDED.cover_url`

	upsertMemberSQL = `INSERT INTO members (id, name, email, tier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
			tier = EXCLUDED.tier`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO NOTHING`
)

func main() {
	var (
		databaseURL  string
		booksFile    string
		membersFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&booksFile, "books-file", "db/seed/books.json", "path to books JSON file")
	flag.StringVar(&membersFile, "members-file", "db/seed/members.json", "path to members JSON file")
	flag.StringVar(&apiKey, "api-key", "", "staff API key to seed (or ELIB_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ELIB_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ELIB_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ELIB_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ELIB_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, booksFile, membersFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, booksFile, membersFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedBooks(ctx, pool, booksFile); err != nil {
		return errors.Wrap(err, "seed books")
	}

	if err := seedMembers(ctx, pool, membersFile); err != nil {
		return errors.Wrap(err, "seed members")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedBooks(ctx context.Context, pool *pgxpool.Pool, booksFile string) error {
	slog.Info("reading books file", slog.String("path", booksFile))

	data, err := os.ReadFile(booksFile)
	if err != nil {
		return errors.Wrap(err, "read books file")
	}

	var books []bookJSON
	if err := json.Unmarshal(data, &books); err != nil {
		return errors.Wrap(err, "parse books JSON")
	}

	slog.Info("upserting books", slog.Int("count", len(books)))

	for _, b := range books {
		_, err := pool.Exec(ctx, upsertBookSQL,
			b.ID, b.Title, b.Author, b.Category, b.Price, b.NoOfCopies, b.CoverURL,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert book %s", b.ID)
		}

		slog.Info("upserted book", slog.String("id", b.ID), slog.String("title", b.Title))
	}

	return nil
}

func seedMembers(ctx context.Context, pool *pgxpool.Pool, membersFile string) error {
	data, err := os.ReadFile(membersFile)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no members file, skipping", slog.String("path", membersFile))
			return nil
		}
		return errors.Wrap(err, "read members file")
	}

	var members []memberJSON
	if err := json.Unmarshal(data, &members); err != nil {
		return errors.Wrap(err, "parse members JSON")
	}

	slog.Info("upserting members", slog.Int("count", len(members)))

	for _, m := range members {
		if _, err := pool.Exec(ctx, upsertMemberSQL, m.ID, m.Name, m.Email, m.Tier); err != nil {
			return errors.Wrapf(err, "upsert member %s", m.ID)
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	hash := auth.HashKey([]byte(pepper), apiKey)

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		uuid.New().String(), hash, "seed-admin", []string{"admin"},
	)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("seeded api key", slog.String("name", "seed-admin"))
	return nil
}
