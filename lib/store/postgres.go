package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"techup/lib/logger"
	"techup/lib/types"
)

const (
	docCache    = "cache"
	docLedger   = "ledger"
	docRejected = "rejected"
	docTrends   = "trends"
)

const createDocuments = `
	CREATE TABLE IF NOT EXISTS documents (
		name       TEXT PRIMARY KEY,
		body       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

const upsertDocument = `
	INSERT INTO documents (name, body, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

// PgStore keeps the same documents as FileStore as rows of one table.
type PgStore struct {
	url string
	log *logger.Logger
}

func NewPgStore(databaseURL string, log *logger.Logger) *PgStore {
	return &PgStore{url: databaseURL, log: log}
}

func (s *PgStore) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if _, err := conn.Exec(ctx, createDocuments); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return conn, nil
}

func (s *PgStore) Load(ctx context.Context) (types.State, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return types.State{}, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `SELECT name, body FROM documents`)
	if err != nil {
		return types.State{}, fmt.Errorf("loading documents: %w", err)
	}
	bodies := map[string][]byte{}
	for rows.Next() {
		var name string
		var body []byte
		if err := rows.Scan(&name, &body); err != nil {
			rows.Close()
			return types.State{}, fmt.Errorf("scanning document: %w", err)
		}
		bodies[name] = body
	}
	if err := rows.Err(); err != nil {
		return types.State{}, fmt.Errorf("loading documents: %w", err)
	}

	state := types.State{
		Cache:    decode(bodies, docCache, types.Cache{}, s.log),
		Ledger:   decode(bodies, docLedger, types.NewLedger(), s.log),
		Rejected: decode(bodies, docRejected, types.Rejected{}, s.log),
		Trends:   decode(bodies, docTrends, types.Trends{}, s.log),
	}
	fillDefaults(&state)
	return state, nil
}

func decode[T any](bodies map[string][]byte, name string, def T, log *logger.Logger) T {
	body, ok := bodies[name]
	if !ok {
		log.Info("No %s document yet, starting empty", name)
		return def
	}
	var doc T
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Warning("Corrupt %s document, starting empty: %v", name, err)
		return def
	}
	return doc
}

// Save upserts every document in a single transaction.
func (s *PgStore) Save(ctx context.Context, state types.State) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	docs := []struct {
		name string
		doc  any
	}{
		{docCache, state.Cache},
		{docLedger, state.Ledger},
		{docRejected, state.Rejected},
		{docTrends, state.Trends},
	}

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for _, d := range docs {
			body, err := json.Marshal(d.doc)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", d.name, err)
			}
			if _, err := tx.Exec(ctx, upsertDocument, d.name, body); err != nil {
				return fmt.Errorf("saving %s: %w", d.name, err)
			}
		}
		s.log.Info("Saved %d stories, %d ledger entries to database", state.Cache.Len(), state.Ledger.Len())
		return nil
	})
}

// undefinedTable is the SQLSTATE of a query against a missing table.
const undefinedTable = "42P01"

// read fetches one document without creating the table, so read-only
// commands never write to the database.
func (s *PgStore) read(ctx context.Context, name string) ([]byte, bool, error) {
	conn, err := pgx.Connect(ctx, s.url)
	if err != nil {
		return nil, false, fmt.Errorf("unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	var body []byte
	err = conn.QueryRow(ctx, `SELECT body FROM documents WHERE name = $1`, name).Scan(&body)
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == undefinedTable) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading %s: %w", name, err)
	}
	return body, true, nil
}

// Cache reads only the cache document.
func (s *PgStore) Cache(ctx context.Context) (types.Cache, bool, error) {
	body, ok, err := s.read(ctx, docCache)
	if err != nil || !ok {
		return nil, false, err
	}
	var cache types.Cache
	if err := json.Unmarshal(body, &cache); err != nil {
		return nil, false, fmt.Errorf("decoding cache: %w", err)
	}
	return cache, cache != nil, nil
}

func (s *PgStore) Trends(ctx context.Context) (types.Trends, error) {
	trends := types.Trends{}
	body, ok, err := s.read(ctx, docTrends)
	if err != nil || !ok {
		return trends, err
	}
	if err := json.Unmarshal(body, &trends); err != nil {
		return types.Trends{}, fmt.Errorf("decoding trends: %w", err)
	}
	if trends == nil {
		trends = types.Trends{}
	}
	return trends, nil
}
