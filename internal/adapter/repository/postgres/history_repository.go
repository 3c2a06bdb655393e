package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/V4T54L/service-portal/internal/domain"
)

const historyColumns = `id, user_id, query_type, query_value, full_name, meter_number, account_number,
	national_id, phone, unit_code, email, action, result_found, message, ip_address, user_agent, created_at`

// HistoryRepository implements domain.HistoryRepository on PostgreSQL.
type HistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewHistoryRepository(db *sql.DB, logger *slog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger.With("component", "history_repository")}
}

// Append inserts the entry; the database assigns id and created_at.
func (r *HistoryRepository) Append(ctx context.Context, e *domain.LookupHistoryEntry) error {
	query := `
		INSERT INTO lookup_history (user_id, query_type, query_value, full_name, meter_number, account_number,
			national_id, phone, unit_code, email, action, result_found, message, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`
	s := e.Snapshot
	err := r.db.QueryRowContext(ctx, query,
		nullString(e.ActorID),
		string(e.Kind),
		e.QueryValue,
		s.Get(domain.FieldFullName),
		s.Get(domain.FieldMeterNumber),
		s.Get(domain.FieldAccountNumber),
		s.Get(domain.FieldNationalID),
		s.Get(domain.FieldPhone),
		s.Get(domain.FieldUnitCode),
		s.Get(domain.FieldEmail),
		e.Action,
		e.ResultFound,
		e.Message,
		nullString(e.ClientIP),
		e.UserAgent,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func buildHistoryWhere(f domain.HistoryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		n := len(args)
		cols := []string{"query_value", "full_name", "phone", "national_id", "account_number", "meter_number", "unit_code", "email"}
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, c, n)
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		where = append(where, fmt.Sprintf("query_type = $%d", len(args)))
	}
	if f.Found != nil {
		args = append(args, *f.Found)
		where = append(where, fmt.Sprintf("result_found = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// Query returns a page of entries, newest first, and the total match count.
func (r *HistoryRepository) Query(ctx context.Context, f domain.HistoryFilter) ([]domain.LookupHistoryEntry, int, error) {
	where, args := buildHistoryWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookup_history`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = domain.HistoryPageSize
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM lookup_history%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		historyColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []domain.LookupHistoryEntry{}
	for rows.Next() {
		var (
			e        domain.LookupHistoryEntry
			userID   sql.NullString
			ip       sql.NullString
			kind     string
			snapshot = make(domain.Identifiers, len(domain.Fields))
			vals     = make([]string, len(domain.Fields))
		)
		if err := rows.Scan(&e.ID, &userID, &kind, &e.QueryValue,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6],
			&e.Action, &e.ResultFound, &e.Message, &ip, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		for i, f := range []domain.Field{
			domain.FieldFullName, domain.FieldMeterNumber, domain.FieldAccountNumber,
			domain.FieldNationalID, domain.FieldPhone, domain.FieldUnitCode, domain.FieldEmail,
		} {
			snapshot[f] = vals[i]
		}
		e.ActorID = userID.String
		e.ClientIP = ip.String
		e.Kind = domain.Kind(kind)
		e.Snapshot = snapshot
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history: %w", err)
	}
	return entries, total, nil
}
