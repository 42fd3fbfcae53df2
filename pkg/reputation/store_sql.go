package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/trustmesh/core/pkg/identity"

	_ "modernc.org/sqlite"
)

// SQLStore implements Store using database/sql. It supports both
// Postgres (github.com/lib/pq) and SQLite (modernc.org/sqlite) via
// standard drivers; both accept $n placeholders.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const sqlStoreSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	agent_id BIGINT NOT NULL,
	client TEXT NOT NULL,
	idx BIGINT NOT NULL,
	value TEXT NOT NULL,
	decimals INTEGER NOT NULL,
	tag1 TEXT NOT NULL DEFAULT '',
	tag2 TEXT NOT NULL DEFAULT '',
	endpoint TEXT NOT NULL DEFAULT '',
	feedback_uri TEXT NOT NULL DEFAULT '',
	feedback_hash TEXT NOT NULL DEFAULT '',
	revoked BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (agent_id, client, idx)
);

CREATE TABLE IF NOT EXISTS feedback_clients (
	agent_id BIGINT NOT NULL,
	client TEXT NOT NULL,
	position BIGINT NOT NULL,
	PRIMARY KEY (agent_id, client)
);

CREATE TABLE IF NOT EXISTS feedback_responses (
	agent_id BIGINT NOT NULL,
	client TEXT NOT NULL,
	idx BIGINT NOT NULL,
	responder TEXT NOT NULL,
	position BIGINT NOT NULL,
	response_uri TEXT NOT NULL DEFAULT '',
	response_hash TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (agent_id, client, idx, responder, position)
);
`

// Init creates the schema.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqlStoreSchema)
	return err
}

func (s *SQLStore) AppendFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address, rec FeedbackRecord) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var last uint64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(idx), 0) FROM feedback WHERE agent_id = $1 AND client = $2`,
		int64(agentID), string(client))
	if err := row.Scan(&last); err != nil {
		return 0, err
	}
	index := last + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback (agent_id, client, idx, value, decimals, tag1, tag2, endpoint, feedback_uri, feedback_hash, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)`,
		int64(agentID), string(client), int64(index), rec.Value.String(), rec.Decimals,
		rec.Tag1, rec.Tag2, rec.Endpoint, rec.FeedbackURI, hashColumn(rec.FeedbackHash))
	if err != nil {
		return 0, fmt.Errorf("failed to insert feedback: %w", err)
	}

	// First appearance only; position preserves insertion order.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback_clients (agent_id, client, position)
		SELECT $1, $2, COALESCE(MAX(position), -1) + 1 FROM feedback_clients WHERE agent_id = $1
		ON CONFLICT (agent_id, client) DO NOTHING`,
		int64(agentID), string(client))
	if err != nil {
		return 0, fmt.Errorf("failed to record client: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return index, nil
}

func (s *SQLStore) Feedback(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) (FeedbackRecord, error) {
	if index == 0 {
		return FeedbackRecord{}, fmt.Errorf("%w: 0", ErrInvalidIndex)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT value, decimals, tag1, tag2, endpoint, feedback_uri, feedback_hash, revoked
		FROM feedback WHERE agent_id = $1 AND client = $2 AND idx = $3`,
		int64(agentID), string(client), int64(index))

	rec, err := scanFeedback(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FeedbackRecord{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
		}
		return FeedbackRecord{}, err
	}
	return rec, nil
}

func (s *SQLStore) ListFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address) ([]FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, decimals, tag1, tag2, endpoint, feedback_uri, feedback_hash, revoked
		FROM feedback WHERE agent_id = $1 AND client = $2 ORDER BY idx`,
		int64(agentID), string(client))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []FeedbackRecord
	for rows.Next() {
		rec, err := scanFeedback(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLStore) LastIndex(ctx context.Context, agentID identity.AgentID, client identity.Address) (uint64, error) {
	var last uint64
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(idx), 0) FROM feedback WHERE agent_id = $1 AND client = $2`,
		int64(agentID), string(client))
	if err := row.Scan(&last); err != nil {
		return 0, err
	}
	return last, nil
}

func (s *SQLStore) Clients(ctx context.Context, agentID identity.AgentID) ([]identity.Address, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client FROM feedback_clients WHERE agent_id = $1 ORDER BY position`,
		int64(agentID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var clients []identity.Address
	for rows.Next() {
		var client string
		if err := rows.Scan(&client); err != nil {
			return nil, err
		}
		clients = append(clients, identity.Address(client))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *SQLStore) MarkRevoked(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) error {
	if index == 0 {
		return fmt.Errorf("%w: 0", ErrInvalidIndex)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET revoked = TRUE WHERE agent_id = $1 AND client = $2 AND idx = $3`,
		int64(agentID), string(client), int64(index))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return nil
}

func (s *SQLStore) AppendResponse(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, entry ResponseEntry) error {
	if index == 0 {
		return fmt.Errorf("%w: 0", ErrInvalidIndex)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	row := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM feedback WHERE agent_id = $1 AND client = $2 AND idx = $3)`,
		int64(agentID), string(client), int64(index))
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback_responses (agent_id, client, idx, responder, position, response_uri, response_hash)
		SELECT $1, $2, $3, $4, COALESCE(MAX(position), -1) + 1, $5, $6
		FROM feedback_responses WHERE agent_id = $1 AND client = $2 AND idx = $3 AND responder = $4`,
		int64(agentID), string(client), int64(index), string(entry.Responder),
		entry.ResponseURI, hashColumn(entry.ResponseHash))
	if err != nil {
		return fmt.Errorf("failed to insert response: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) ResponseCount(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) (uint64, error) {
	var count uint64
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM feedback_responses
		WHERE agent_id = $1 AND client = $2 AND idx = $3 AND responder = $4`,
		int64(agentID), string(client), int64(index), string(responder))
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLStore) Responses(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) ([]ResponseEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT responder, response_uri, response_hash FROM feedback_responses
		WHERE agent_id = $1 AND client = $2 AND idx = $3 AND responder = $4
		ORDER BY position`,
		int64(agentID), string(client), int64(index), string(responder))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []ResponseEntry
	for rows.Next() {
		var (
			resp     string
			uri      string
			hashText string
		)
		if err := rows.Scan(&resp, &uri, &hashText); err != nil {
			return nil, err
		}
		hash, err := identity.ParseHash(hashText)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ResponseEntry{
			Responder:    identity.Address(resp),
			ResponseURI:  uri,
			ResponseHash: hash,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanFeedback(scan func(...any) error) (FeedbackRecord, error) {
	var (
		valueText string
		decimals  uint8
		tag1      string
		tag2      string
		endpoint  string
		uri       string
		hashText  string
		revoked   bool
	)
	if err := scan(&valueText, &decimals, &tag1, &tag2, &endpoint, &uri, &hashText, &revoked); err != nil {
		return FeedbackRecord{}, err
	}

	value, ok := new(big.Int).SetString(valueText, 10)
	if !ok {
		return FeedbackRecord{}, fmt.Errorf("corrupt feedback value %q", valueText)
	}
	hash, err := identity.ParseHash(hashText)
	if err != nil {
		return FeedbackRecord{}, err
	}

	return FeedbackRecord{
		Value:        value,
		Decimals:     decimals,
		Tag1:         tag1,
		Tag2:         tag2,
		Endpoint:     endpoint,
		FeedbackURI:  uri,
		FeedbackHash: hash,
		Revoked:      revoked,
	}, nil
}

func hashColumn(h identity.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.Hex()
}
