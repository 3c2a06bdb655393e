package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/V4T54L/service-portal/internal/adapter/importer"
	"github.com/V4T54L/service-portal/internal/adapter/repository/postgres"
	"github.com/V4T54L/service-portal/internal/pkg/logger"
	"github.com/V4T54L/service-portal/internal/usecase"

	_ "github.com/lib/pq"
)

const defaultPath = "data_files/customers.xlsx"

func main() {
	truncate := flag.Bool("truncate", false, "delete every existing customer before importing")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: import-customers [-truncate] [file]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logger.New(*logLevel)
	slog.SetDefault(logger)

	path := defaultPath
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		logger.Error("POSTGRES_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := importer.ReadFile(path)
	if err != nil {
		var colErr *importer.ColumnsError
		if errors.As(err, &colErr) {
			logger.Error("could not map file columns, rename the headers", "headers", colErr.Headers)
		} else {
			logger.Error("failed to read import file", "path", path, "error", err)
		}
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	uc := usecase.NewImportUseCase(postgres.NewCustomerRepository(db, logger), logger)
	stats, err := uc.Import(ctx, rows, *truncate)
	if err != nil {
		logger.Error("import failed", "error", err, "created", stats.Created, "updated", stats.Updated)
		os.Exit(1)
	}

	logger.Info("import finished",
		"rows", stats.Rows,
		"deleted", stats.Deleted,
		"created", stats.Created,
		"updated", stats.Updated,
	)
}
