package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/V4T54L/service-portal/internal/domain"
)

const customersTableName = "customers"

var customerColumns = []string{"full_name", "meter_number", "account_number", "national_id", "phone", "unit_code", "email"}

// fieldColumns whitelists the columns a query may reference.
var fieldColumns = map[domain.Field]string{
	domain.FieldFullName:      "full_name",
	domain.FieldMeterNumber:   "meter_number",
	domain.FieldAccountNumber: "account_number",
	domain.FieldNationalID:    "national_id",
	domain.FieldPhone:         "phone",
	domain.FieldUnitCode:      "unit_code",
	domain.FieldEmail:         "email",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CustomerRepository implements domain.CustomerRepository and
// domain.CustomerImportRepository on PostgreSQL.
type CustomerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCustomerRepository(db *sql.DB, logger *slog.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: logger.With("component", "customer_repository")}
}

// buildFindQuery renders the conjunctive predicate. Total comes from a window
// count so a single round trip returns both the preview and the match count.
func buildFindQuery(q domain.CustomerQuery) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	for _, cond := range q.Conditions {
		col, ok := fieldColumns[cond.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown customer field %q", cond.Field)
		}
		switch cond.Mode {
		case domain.MatchContains:
			args = append(args, "%"+likeEscaper.Replace(cond.Value)+"%")
			where = append(where, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, len(args)))
		default:
			args = append(args, cond.Value)
			where = append(where, fmt.Sprintf("lower(%s) = lower($%d)", col, len(args)))
		}
	}

	query := `SELECT id, ` + strings.Join(customerColumns, ", ") + `, COUNT(*) OVER() AS total
		FROM ` + customersTableName + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY full_name, account_number, id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args, nil
}

func (r *CustomerRepository) Find(ctx context.Context, q domain.CustomerQuery) ([]domain.Customer, int, error) {
	if len(q.Conditions) == 0 {
		return nil, 0, nil
	}
	query, args, err := buildFindQuery(q)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find customers: %w", err)
	}
	defer rows.Close()

	var (
		customers []domain.Customer
		total     int
	)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.FullName, &c.MeterNumber, &c.AccountNumber, &c.NationalID, &c.Phone, &c.UnitCode, &c.Email, &total); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, total, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `SELECT id, ` + strings.Join(customerColumns, ", ") + ` FROM ` + customersTableName + ` WHERE id = $1`

	var c domain.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.FullName, &c.MeterNumber, &c.AccountNumber, &c.NationalID, &c.Phone, &c.UnitCode, &c.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find customer by id: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+customersTableName)
	if err != nil {
		return 0, fmt.Errorf("delete customers: %w", err)
	}
	return res.RowsAffected()
}

// InsertBatch loads customers with the COPY protocol.
func (r *CustomerRepository) InsertBatch(ctx context.Context, customers []domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(customersTableName, customerColumns...))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx, c.FullName, c.MeterNumber, c.AccountNumber, c.NationalID, c.Phone, c.UnitCode, c.Email); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy customer: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Debug("copied customers", "count", len(customers))
	return nil
}

func (r *CustomerRepository) UpdateBatch(ctx context.Context, customers []domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, `UPDATE `+customersTableName+`
		SET full_name = $2, meter_number = $3, account_number = $4, national_id = $5, phone = $6, unit_code = $7, email = $8
		WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx, c.ID, c.FullName, c.MeterNumber, c.AccountNumber, c.NationalID, c.Phone, c.UnitCode, c.Email); err != nil {
			return fmt.Errorf("update customer %d: %w", c.ID, err)
		}
	}
	return txn.Commit()
}

func (r *CustomerRepository) KeyIndex(ctx context.Context, fields []domain.Field) (map[domain.Field]map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, `+strings.Join(customerColumns, ", ")+` FROM `+customersTableName+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load customer keys: %w", err)
	}
	defer rows.Close()

	index := make(map[domain.Field]map[string]int64, len(fields))
	for _, f := range fields {
		index[f] = make(map[string]int64)
	}
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.FullName, &c.MeterNumber, &c.AccountNumber, &c.NationalID, &c.Phone, &c.UnitCode, &c.Email); err != nil {
			return nil, fmt.Errorf("scan customer keys: %w", err)
		}
		for _, f := range fields {
			if v := c.Value(f); v != "" {
				index[f][v] = c.ID
			}
		}
	}
	return index, rows.Err()
}
