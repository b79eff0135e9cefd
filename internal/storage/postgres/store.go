package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safeTasks/internal/model"
	"safeTasks/internal/proposal"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS safe_proposals (
		safe_tx_hash TEXT PRIMARY KEY,
		safe_address TEXT NOT NULL,
		chain_id BIGINT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS safe_signatures (
		safe_tx_hash TEXT NOT NULL,
		signer TEXT NOT NULL,
		signature TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (safe_tx_hash, signer)
	)`,
}

// Store keeps proposals and signatures in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ proposal.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range schema {
		batch.Queue(stmt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range schema {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// SaveProposal inserts or replaces a proposal.
func (s *Store) SaveProposal(ctx context.Context, p model.Proposal) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO safe_proposals (safe_tx_hash, safe_address, chain_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (safe_tx_hash) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`, hashKey(p.SafeTxHash), p.Safe.Hex(), int64(p.ChainID), payload)
	return err
}

// LoadProposal returns proposal.ErrNotFound when the hash is unknown.
func (s *Store) LoadProposal(ctx context.Context, safeTxHash common.Hash) (model.Proposal, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT payload FROM safe_proposals WHERE safe_tx_hash=$1`, hashKey(safeTxHash))
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Proposal{}, fmt.Errorf("%w: %s", proposal.ErrNotFound, safeTxHash.Hex())
		}
		return model.Proposal{}, err
	}
	var p model.Proposal
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.Proposal{}, fmt.Errorf("parse proposal: %w", err)
	}
	return p, nil
}

// AddSignature upserts the signature of one signer.
func (s *Store) AddSignature(ctx context.Context, safeTxHash common.Hash, signer common.Address, signature string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO safe_signatures (safe_tx_hash, signer, signature, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (safe_tx_hash, signer) DO UPDATE
		SET signature = EXCLUDED.signature, updated_at = now()
	`, hashKey(safeTxHash), signer.Hex(), signature)
	return err
}

// LoadSignatures returns all signatures collected for a hash.
func (s *Store) LoadSignatures(ctx context.Context, safeTxHash common.Hash) (model.Signatures, error) {
	rows, err := s.pool.Query(ctx, `SELECT signer, signature FROM safe_signatures WHERE safe_tx_hash=$1`, hashKey(safeTxHash))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signatures := model.Signatures{}
	for rows.Next() {
		var signer, signature string
		if err := rows.Scan(&signer, &signature); err != nil {
			return nil, err
		}
		signatures[signer] = signature
	}
	return signatures, rows.Err()
}

func hashKey(hash common.Hash) string {
	return hash.Hex()
}
