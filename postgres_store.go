package spinwheel

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// PostgresSchema creates the ledger tables. The UNIQUE constraint on
// contact_key and the primary key on spin_outcomes.participant_id are the
// store-level uniqueness guarantees the ledger relies on.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS participants (
	id                UUID PRIMARY KEY,
	contact_key       TEXT NOT NULL UNIQUE,
	display_name      TEXT NOT NULL,
	phone             TEXT NOT NULL DEFAULT '',
	phone_country     TEXT NOT NULL DEFAULT '',
	phone_number      TEXT NOT NULL DEFAULT '',
	organization_name TEXT NOT NULL DEFAULT '',
	registered_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS spin_outcomes (
	participant_id UUID PRIMARY KEY REFERENCES participants (id),
	reward_name    TEXT NOT NULL,
	reward_weight  DOUBLE PRECISION NOT NULL,
	awarded_at     TIMESTAMPTZ NOT NULL
);
`

// pgUniqueViolation is the SQLSTATE of unique_violation.
const pgUniqueViolation = pq.ErrorCode("23505")

// PostgresStore is a LedgerStore backed by PostgreSQL through lib/pq
type PostgresStore struct {
	db     *sql.DB
	logger Logger
}

// OpenPostgresStore opens a connection pool for dsn
func OpenPostgresStore(cfg *PostgresConfig, logger Logger) (*PostgresStore, error) {
	if cfg == nil {
		cfg = DefaultPostgresConfig()
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, ErrStoreUnavailable.WithOperation("open").WithCause(err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	return NewPostgresStore(db, logger), nil
}

// NewPostgresStore wraps an existing *sql.DB
func NewPostgresStore(db *sql.DB, logger Logger) *PostgresStore {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Migrate creates the ledger tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, PostgresSchema); err != nil {
		return ErrStoreUnavailable.WithOperation("migrate").WithCause(err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error { return s.db.Close() }

// FindParticipant implements LedgerStore.
func (s *PostgresStore) FindParticipant(ctx context.Context, contactKey string) (*Participant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contact_key, display_name, phone, phone_country, phone_number, organization_name, registered_at
		FROM participants WHERE contact_key = $1`, contactKey)

	var p Participant
	err := row.Scan(&p.ID, &p.ContactKey, &p.DisplayName,
		&p.Contact.Phone, &p.Contact.PhoneCountry, &p.Contact.PhoneNumber, &p.Contact.OrganizationName,
		&p.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPostgresError("find_participant", err)
	}
	return &p, nil
}

// CreateParticipant implements LedgerStore.
func (s *PostgresStore) CreateParticipant(ctx context.Context, p *Participant) (*Participant, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	stored := *p
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants
			(id, contact_key, display_name, phone, phone_country, phone_number, organization_name, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stored.ID, stored.ContactKey, stored.DisplayName,
		stored.Contact.Phone, stored.Contact.PhoneCountry, stored.Contact.PhoneNumber, stored.Contact.OrganizationName,
		stored.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKeyConflict.WithDetails(stored.ContactKey).WithCause(err)
		}
		return nil, mapPostgresError("create_participant", err)
	}
	return &stored, nil
}

// FindOutcome implements LedgerStore.
func (s *PostgresStore) FindOutcome(ctx context.Context, participantID string) (*SpinOutcome, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT participant_id, reward_name, reward_weight, awarded_at
		FROM spin_outcomes WHERE participant_id = $1`, participantID)

	var o SpinOutcome
	err := row.Scan(&o.ParticipantID, &o.RewardName, &o.RewardWeight, &o.AwardedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPostgresError("find_outcome", err)
	}
	return &o, nil
}

// CreateOutcome implements LedgerStore.
func (s *PostgresStore) CreateOutcome(ctx context.Context, o *SpinOutcome) (*SpinOutcome, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	stored := *o

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spin_outcomes (participant_id, reward_name, reward_weight, awarded_at)
		VALUES ($1, $2, $3, $4)`,
		stored.ParticipantID, stored.RewardName, stored.RewardWeight, stored.AwardedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyCommitted.WithDetails(stored.ParticipantID).WithCause(err)
		}
		return nil, mapPostgresError("create_outcome", err)
	}
	return &stored, nil
}

// Ping checks connectivity to PostgreSQL
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ErrStoreUnavailable.WithOperation("ping").WithCause(err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// mapPostgresError turns driver errors into ledger errors.
func mapPostgresError(operation string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection, insufficient resources, operator intervention
			return ErrStoreUnavailable.WithOperation(operation).WithCause(err)
		}
		return ErrSystemError.WithOperation(operation).WithDetails(pqErr.Code.Name()).WithCause(err)
	}
	return ErrStoreUnavailable.WithOperation(operation).WithCause(err)
}
