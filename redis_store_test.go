package spinwheel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_FindParticipant(t *testing.T) {
	ctx := context.Background()
	registered := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	stored := Participant{ID: "p-1", ContactKey: "a@co.com", DisplayName: "Ada", RegisteredAt: registered}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	tests := []struct {
		name      string
		setupMock func(mock redismock.ClientMock)
		expected  *Participant
		expectErr error
	}{
		{
			name: "found",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("spinwheel:participant:a@co.com").SetVal(string(data))
			},
			expected: &stored,
		},
		{
			name: "not found",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("spinwheel:participant:a@co.com").RedisNil()
			},
		},
		{
			name: "redis error",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("spinwheel:participant:a@co.com").SetErr(redis.TxFailedErr)
			},
			expectErr: ErrStoreUnavailable,
		},
		{
			name: "corrupted record",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("spinwheel:participant:a@co.com").SetVal("{not json")
			},
			expectErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			store := NewRedisStoreWithRetry(db, nil, "", 0, 0)
			tt.setupMock(mock)

			p, err := store.FindParticipant(ctx, "a@co.com")
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, p)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestRedisStore_CreateParticipant(t *testing.T) {
	ctx := context.Background()
	p := &Participant{ID: "p-1", ContactKey: "a@co.com", DisplayName: "Ada"}

	tests := []struct {
		name      string
		setupMock func(mock redismock.ClientMock)
		expectErr error
	}{
		{
			name: "created",
			setupMock: func(mock redismock.ClientMock) {
				mock.Regexp().ExpectSetNX(`spinwheel:participant:a@co\.com`, `.*"id":"p-1".*`, 0).SetVal(true)
			},
		},
		{
			name: "key taken",
			setupMock: func(mock redismock.ClientMock) {
				mock.Regexp().ExpectSetNX(`spinwheel:participant:a@co\.com`, `.*`, 0).SetVal(false)
			},
			expectErr: ErrDuplicateKeyConflict,
		},
		{
			name: "redis error",
			setupMock: func(mock redismock.ClientMock) {
				mock.Regexp().ExpectSetNX(`spinwheel:participant:a@co\.com`, `.*`, 0).SetErr(redis.TxFailedErr)
			},
			expectErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			store := NewRedisStoreWithRetry(db, nil, "", 0, 0)
			tt.setupMock(mock)

			created, err := store.CreateParticipant(ctx, p)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, created)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "p-1", created.ID)
				assert.False(t, created.RegisteredAt.IsZero())
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestRedisStore_CreateParticipant_Invalid(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, nil)

	_, err := store.CreateParticipant(context.Background(), &Participant{ID: "p-1"})
	assert.ErrorIs(t, err, ErrInvalidContactKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Outcomes(t *testing.T) {
	ctx := context.Background()
	awarded := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)
	outcome := &SpinOutcome{ParticipantID: "p-1", RewardName: "Yoga Session", RewardWeight: 0.1, AwardedAt: awarded}
	data, err := json.Marshal(outcome)
	require.NoError(t, err)

	db, mock := redismock.NewClientMock()
	store := NewRedisStoreWithRetry(db, nil, "booth:", 0, 0)

	mock.ExpectGet("booth:outcome:p-1").RedisNil()
	mock.Regexp().ExpectSetNX(`booth:outcome:p-1`, `.*"reward_name":"Yoga Session".*`, 0).SetVal(true)
	mock.Regexp().ExpectSetNX(`booth:outcome:p-1`, `.*`, 0).SetVal(false)
	mock.ExpectGet("booth:outcome:p-1").SetVal(string(data))

	found, err := store.FindOutcome(ctx, "p-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	created, err := store.CreateOutcome(ctx, outcome)
	require.NoError(t, err)
	assert.Equal(t, outcome, created)

	_, err = store.CreateOutcome(ctx, &SpinOutcome{ParticipantID: "p-1", RewardName: "D&I Session", AwardedAt: awarded})
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	found, err = store.FindOutcome(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, outcome, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_RetriesTransientErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStoreWithRetry(db, nil, "", 2, time.Millisecond)

	mock.ExpectGet("spinwheel:outcome:p-1").SetErr(errors.New("dial tcp 127.0.0.1:6379: connection refused"))
	mock.ExpectGet("spinwheel:outcome:p-1").SetErr(errors.New("i/o timeout"))
	mock.ExpectGet("spinwheel:outcome:p-1").RedisNil()

	found, err := store.FindOutcome(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_StopsOnCancelledContext(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStoreWithRetry(db, nil, "", 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	mock.ExpectGet("spinwheel:outcome:p-1").SetErr(errors.New("connection reset by peer"))
	cancel()

	_, err := store.FindOutcome(ctx, "p-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStore_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, nil)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.ErrorIs(t, store.Ping(context.Background()), ErrStoreUnavailable)
}

func TestRedisStore_WithLedger(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	ledger := NewLedger(NewRedisStoreWithRetry(db, nil, "", 0, 0), nil)

	mock.ExpectGet("spinwheel:participant:new@co.com").RedisNil()
	mock.Regexp().ExpectSetNX(`spinwheel:participant:new@co\.com`, `.*`, 0).SetVal(true)

	reg, err := ledger.RegisterOrResume(ctx, "new@co.com", "New", ContactDetails{})
	require.NoError(t, err)
	assert.True(t, reg.IsNewParticipant)
	assert.NoError(t, mock.ExpectationsWereMet())
}
