package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/service-portal/internal/domain"
)

const importChunkSize = 1000

// ErrNoImportRows is returned when a file has no usable rows.
var ErrNoImportRows = errors.New("no usable rows to import")

// importKeys are matched in order to find the existing record for a row.
var importKeys = []domain.Field{
	domain.FieldAccountNumber,
	domain.FieldNationalID,
	domain.FieldMeterNumber,
	domain.FieldPhone,
	domain.FieldUnitCode,
	domain.FieldEmail,
}

// ImportStats summarizes an import run.
type ImportStats struct {
	Rows    int
	Deleted int64
	Created int
	Updated int
}

// ImportUseCase loads customer rows into the customer store.
type ImportUseCase struct {
	repo   domain.CustomerImportRepository
	logger *slog.Logger
}

func NewImportUseCase(repo domain.CustomerImportRepository, logger *slog.Logger) *ImportUseCase {
	return &ImportUseCase{repo: repo, logger: logger.With("component", "import_usecase")}
}

// Import replaces the whole dataset when truncate is set. Otherwise each row
// updates the record sharing its first matching strong key, or is created.
func (uc *ImportUseCase) Import(ctx context.Context, rows []domain.Customer, truncate bool) (ImportStats, error) {
	clean := make([]domain.Customer, 0, len(rows))
	for _, r := range rows {
		if !r.IsBlank() {
			r.ID = 0
			clean = append(clean, r)
		}
	}
	stats := ImportStats{Rows: len(clean)}
	if len(clean) == 0 {
		return stats, ErrNoImportRows
	}

	if truncate {
		deleted, err := uc.repo.DeleteAll(ctx)
		if err != nil {
			return stats, fmt.Errorf("delete existing customers: %w", err)
		}
		stats.Deleted = deleted
		uc.logger.Info("deleted existing customers", "count", deleted)

		if err := uc.insertChunks(ctx, clean, &stats); err != nil {
			return stats, err
		}
		return stats, nil
	}

	index, err := uc.repo.KeyIndex(ctx, importKeys)
	if err != nil {
		return stats, fmt.Errorf("load key index: %w", err)
	}

	var toCreate, toUpdate []domain.Customer
	for _, r := range clean {
		if id, ok := findExisting(index, r); ok {
			r.ID = id
			toUpdate = append(toUpdate, r)
		} else {
			toCreate = append(toCreate, r)
		}
	}

	if err := uc.insertChunks(ctx, toCreate, &stats); err != nil {
		return stats, err
	}
	for start := 0; start < len(toUpdate); start += importChunkSize {
		end := min(start+importChunkSize, len(toUpdate))
		if err := uc.repo.UpdateBatch(ctx, toUpdate[start:end]); err != nil {
			return stats, fmt.Errorf("update customers: %w", err)
		}
		stats.Updated += end - start
		uc.logger.Info("updated customers", "progress", stats.Updated, "total", len(toUpdate))
	}
	return stats, nil
}

func (uc *ImportUseCase) insertChunks(ctx context.Context, rows []domain.Customer, stats *ImportStats) error {
	for start := 0; start < len(rows); start += importChunkSize {
		end := min(start+importChunkSize, len(rows))
		if err := uc.repo.InsertBatch(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("insert customers: %w", err)
		}
		stats.Created += end - start
		uc.logger.Info("inserted customers", "progress", stats.Created, "total", len(rows))
	}
	return nil
}

func findExisting(index map[domain.Field]map[string]int64, c domain.Customer) (int64, bool) {
	for _, f := range importKeys {
		v := c.Value(f)
		if v == "" {
			continue
		}
		if id, ok := index[f][v]; ok {
			return id, true
		}
	}
	return 0, false
}
