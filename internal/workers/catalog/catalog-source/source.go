package catalogsource

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"shopassist/internal/common/config"
	"shopassist/internal/common/database"

	"github.com/lib/pq"
)

// Source yields raw catalog rows.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
}

// Known CSV columns, matched case-insensitively. Every other column is kept
// in Row.Specs under its header.
const (
	columnName        = "model name"
	columnBrand       = "brand"
	columnPrice       = "price"
	columnDescription = "description"
	columnFeatureText = "laptop_feature"
)

// CSVSource reads a header-first CSV file.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Rows(ctx context.Context) ([]Row, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return readCSV(ctx, f)
}

func readCSV(ctx context.Context, r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}
	columns := make([]string, len(header))
	nameIdx := -1
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if columns[i] == columnName {
			nameIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("catalog header has no %q column", columnName)
	}

	var rows []Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog record: %w", err)
		}

		row := Row{Specs: make(map[string]string)}
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			value = strings.TrimSpace(value)
			switch columns[i] {
			case columnName:
				row.Name = value
			case columnBrand:
				row.Brand = value
			case columnPrice:
				row.Price = value
			case columnDescription:
				row.Description = value
			case columnFeatureText:
				row.FeatureText = value
			default:
				if value != "" {
					row.Specs[strings.TrimSpace(header[i])] = value
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PostgresSource reads the catalog table. The table holds name, brand, price
// (text, separators allowed), description, feature_text and specs (a JSON
// object of strings).
type PostgresSource struct {
	client *database.PostgresClient
	table  string
}

func NewPostgresSource(client *database.PostgresClient, table string) *PostgresSource {
	return &PostgresSource{client: client, table: table}
}

func (s *PostgresSource) query() string {
	return fmt.Sprintf(
		"SELECT name, brand, price, description, feature_text, specs FROM %s ORDER BY name",
		pq.QuoteIdentifier(s.table),
	)
}

func (s *PostgresSource) Rows(ctx context.Context) ([]Row, error) {
	rs, err := s.client.Query(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var row Row
		var brand, description, feature, specs sql.NullString
		if err := rs.Scan(&row.Name, &brand, &row.Price, &description, &feature, &specs); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		row.Brand = brand.String
		row.Description = description.String
		row.FeatureText = feature.String
		if specs.Valid && specs.String != "" {
			if err := json.Unmarshal([]byte(specs.String), &row.Specs); err != nil {
				return nil, fmt.Errorf("invalid specs for %q: %w", row.Name, err)
			}
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog rows: %w", err)
	}
	return rows, nil
}

// NewSource picks the configured source. pg may be nil unless the source is
// postgres.
func NewSource(cfg config.CatalogConfig, pg *database.PostgresClient) (Source, error) {
	switch cfg.Source {
	case "csv":
		return NewCSVSource(cfg.CSVPath), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("catalog source postgres requires a database connection")
		}
		return NewPostgresSource(pg, cfg.Table), nil
	}
	return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
}
