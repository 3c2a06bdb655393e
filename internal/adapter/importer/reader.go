package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/V4T54L/service-portal/internal/domain"
)

// headerCandidates lists accepted column titles per field, first match wins.
var headerCandidates = map[domain.Field][]string{
	domain.FieldFullName:      {"الاسم", "name", "full name", "full_name"},
	domain.FieldMeterNumber:   {"رقم العداد", "meter_no", "meter_number", "meter"},
	domain.FieldAccountNumber: {"رقم الحساب", "account_no", "account_number", "account"},
	domain.FieldNationalID:    {"رقم الهوية", "national_id", "id"},
	domain.FieldPhone:         {"رقم الجوال", "mobile", "phone", "جوال"},
	domain.FieldUnitCode:      {"كود الوحدة", "unit_code", "unit"},
	domain.FieldEmail:         {"البريد الإلكتروني", "email"},
}

var wholeFloat = regexp.MustCompile(`^(\d+)\.0+$`)

var (
	ErrEmptyFile = errors.New("file is empty")
	ErrNoRows    = errors.New("file has no data rows")
)

// ColumnsError reports a header row that matches no known field.
type ColumnsError struct {
	Headers []string
}

func (e *ColumnsError) Error() string {
	return "no recognised columns, file headers: " + strings.Join(e.Headers, ", ")
}

// ReadFile loads customers from an xlsx workbook, falling back to CSV.
func ReadFile(path string) ([]domain.Customer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Read(data)
}

// Read parses data as an xlsx workbook (first sheet) or, failing that, CSV.
func Read(data []byte) ([]domain.Customer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	rows, xlsxErr := readXLSX(data)
	if xlsxErr != nil {
		var csvErr error
		rows, csvErr = readCSV(data)
		if csvErr != nil {
			return nil, fmt.Errorf("could not read file as xlsx (%v) or csv (%w)", xlsxErr, csvErr)
		}
	}
	return ParseRows(rows)
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheet)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// ParseRows maps a header row plus data rows onto customers. Blank rows are
// dropped.
func ParseRows(rows [][]string) ([]domain.Customer, error) {
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	columns := resolveColumns(rows[0])
	if len(columns) == 0 {
		return nil, &ColumnsError{Headers: rows[0]}
	}

	customers := make([]domain.Customer, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var c domain.Customer
		for field, idx := range columns {
			if idx < len(row) {
				setField(&c, field, cleanValue(row[idx]))
			}
		}
		if !c.IsBlank() {
			customers = append(customers, c)
		}
	}
	if len(customers) == 0 {
		return nil, ErrNoRows
	}
	return customers, nil
}

func resolveColumns(headers []string) map[domain.Field]int {
	columns := make(map[domain.Field]int)
	for field, candidates := range headerCandidates {
	candidate:
		for _, want := range candidates {
			for i, h := range headers {
				if strings.EqualFold(strings.TrimSpace(h), want) {
					columns[field] = i
					break candidate
				}
			}
		}
	}
	return columns
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	if m := wholeFloat.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

func setField(c *domain.Customer, f domain.Field, v string) {
	switch f {
	case domain.FieldFullName:
		c.FullName = v
	case domain.FieldMeterNumber:
		c.MeterNumber = v
	case domain.FieldAccountNumber:
		c.AccountNumber = v
	case domain.FieldNationalID:
		c.NationalID = v
	case domain.FieldPhone:
		c.Phone = v
	case domain.FieldUnitCode:
		c.UnitCode = v
	case domain.FieldEmail:
		c.Email = v
	}
}
