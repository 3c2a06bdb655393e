package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var customerRowColumns = []string{"id", "full_name", "meter_number", "account_number", "national_id", "phone", "unit_code", "email"}

func TestBuildFindQuery(t *testing.T) {
	q := domain.CustomerQuery{
		Conditions: []domain.Condition{
			{Field: domain.FieldFullName, Mode: domain.MatchContains, Value: "50%_off"},
			{Field: domain.FieldMeterNumber, Mode: domain.MatchExact, Value: "MTR-1"},
		},
		Limit: 50,
	}

	query, args, err := buildFindQuery(q)
	require.NoError(t, err)
	assert.Contains(t, query, `full_name ILIKE $1 ESCAPE '\'`)
	assert.Contains(t, query, "lower(meter_number) = lower($2)")
	assert.Contains(t, query, "ORDER BY full_name, account_number, id")
	assert.Contains(t, query, "LIMIT $3")
	assert.Equal(t, []any{`%50\%\_off%`, "MTR-1", 50}, args)

	_, _, err = buildFindQuery(domain.CustomerQuery{Conditions: []domain.Condition{{Field: "password", Value: "x"}}})
	assert.Error(t, err)
}

func TestCustomerRepository_Find(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCustomerRepository(db, testLogger())

	rows := sqlmock.NewRows(append(customerRowColumns, "total")).
		AddRow(1, "Ali Hassan", "MTR-1", "ACC-1", "1122334455", "0512345678", "U-1", "").
		AddRow(2, "Ali Omar", "MTR-2", "ACC-2", "", "", "", "").
		AddRow(3, "Ali Zaki", "MTR-3", "ACC-3", "", "", "", "")

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers")).
		WithArgs("%Ali%", 50).
		WillReturnRows(rows)

	customers, total, err := repo.Find(context.Background(), domain.CustomerQuery{
		Conditions: []domain.Condition{{Field: domain.FieldFullName, Mode: domain.MatchContains, Value: "Ali"}},
		Limit:      50,
	})

	require.NoError(t, err)
	assert.Len(t, customers, 3)
	assert.Equal(t, 3, total)
	assert.Equal(t, "1122334455", customers[0].NationalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_FindWithoutConditions(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCustomerRepository(db, testLogger())

	customers, total, err := repo.Find(context.Background(), domain.CustomerQuery{Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, customers)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_FindByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCustomerRepository(db, testLogger())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(customerRowColumns))

	_, err := repo.FindByID(context.Background(), 99)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_InsertBatch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCustomerRepository(db, testLogger())

	customers := []domain.Customer{
		{FullName: "Ali", Phone: "0512345678"},
		{FullName: "Sara", MeterNumber: "MTR-9"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`COPY "customers"`))
	prep.ExpectExec().WithArgs("Ali", "", "", "", "0512345678", "", "").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("Sara", "MTR-9", "", "", "", "", "").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.InsertBatch(context.Background(), customers))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_Append(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHistoryRepository(db, testLogger())
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO lookup_history")).
		WithArgs(nil, "phone", "0512345678", "Ali", "", "", "", "0512345678", "", "",
			"lookup", true, "manual entry, no match", "10.0.0.1", "curl/8").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, created))

	entry := &domain.LookupHistoryEntry{
		Kind:        domain.KindPhone,
		QueryValue:  "0512345678",
		Snapshot:    domain.Identifiers{domain.FieldFullName: "Ali", domain.FieldPhone: "0512345678"},
		Action:      domain.ActionLookup,
		ResultFound: true,
		Message:     "manual entry, no match",
		ClientIP:    "10.0.0.1",
		UserAgent:   "curl/8",
	}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, created, entry.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_Query(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHistoryRepository(db, testLogger())
	found := false

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lookup_history WHERE")).
		WithArgs("%055%", "phone", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cols := []string{"id", "user_id", "query_type", "query_value", "full_name", "meter_number", "account_number",
		"national_id", "phone", "unit_code", "email", "action", "result_found", "message", "ip_address", "user_agent", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5")).
		WithArgs("%055%", "phone", false, 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			3, nil, "phone", "0551234567", "", "", "", "", "0551234567", "", "",
			"lookup", false, "no results", nil, "", time.Now(),
		))

	entries, total, err := repo.Query(context.Background(), domain.HistoryFilter{
		Query: "055", Kind: domain.KindPhone, Found: &found, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.KindPhone, entries[0].Kind)
	assert.Equal(t, "0551234567", entries[0].Snapshot.Get(domain.FieldPhone))
	assert.Empty(t, entries[0].ActorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByPhoneCachesHits(t *testing.T) {
	db, mock := setupMockDB(t)
	m := metrics.NewPortalMetrics(prometheus.NewRegistry())
	repo := NewUserRepository(db, testLogger(), time.Minute, m)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("0512345678").
		WillReturnRows(sqlmock.NewRows([]string{"id", "phone", "national_id", "password_hash", "created_at"}).
			AddRow(id.String(), "0512345678", "1122334455", "hash", time.Now()))

	for i := 0; i < 2; i++ {
		u, err := repo.FindByPhone(context.Background(), "0512345678")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByPhoneNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, testLogger(), time.Minute, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("0500000000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByPhone(context.Background(), "0500000000")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_StoreDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, testLogger(), time.Minute, nil)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Store(context.Background(), &domain.User{ID: uuid.New(), Phone: "0512345678"})
	assert.True(t, errors.Is(err, domain.ErrDuplicateEntry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepository_Store(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewServiceRequestRepository(db)
	customerID := int64(12)
	req := &domain.ServiceRequest{
		ID:         uuid.New(),
		Reference:  "UW-250301-ABCDEF",
		ServiceKey: "pay_debt",
		CustomerID: &customerID,
		Role:       domain.RoleOwner,
		Status:     domain.ServiceRequestPending,
		CreatedAt:  time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_requests")).
		WithArgs(sqlmock.AnyArg(), "UW-250301-ABCDEF", "pay_debt", nil, int64(12), "owner", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_requests")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	require.NoError(t, repo.Store(context.Background(), req))
	err := repo.Store(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrDuplicateEntry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
