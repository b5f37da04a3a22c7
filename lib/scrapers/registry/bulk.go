package registry

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cpaintel-backend/lib/telemetry"
)

// StatCan-style marker for withheld values, normalized to empty
const missingValueSentinel = ".."

const defaultBatchSize = 500

type BulkConfig struct {
	// source tag persisted on records and jobs, e.g. "reg-federal"
	Source      string
	DownloadURL string
	// archives run to hundreds of MB, defaults to 10m
	Timeout   time.Duration
	BatchSize int
}

func (c BulkConfig) validate() error {
	if c.Source == "" || c.DownloadURL == "" {
		return fmt.Errorf("bulk registry config requires source and download url")
	}
	return nil
}

// BulkLoader ingests a full registry extract: download the archive,
// stream the main CSV out of it, and batch-insert.
type BulkLoader struct {
	cfg   BulkConfig
	store Store
	http  *resty.Client
}

func NewBulkLoader(cfg BulkConfig, store Store) (*BulkLoader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}

	client := resty.New().SetTimeout(cfg.Timeout)
	telemetry.InstrumentResty(client, "registry:bulk")

	return &BulkLoader{cfg: cfg, store: store, http: client}, nil
}

func (l *BulkLoader) Source() string { return l.cfg.Source }

func (l *BulkLoader) Run(ctx context.Context, jobID string) (Counts, error) {
	ctx, span := tracer.Start(ctx, "bulk:Run")
	defer span.End()
	span.SetAttributes(attribute.String("source", l.cfg.Source))

	counts := Counts{}

	archivePath, err := l.download(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "download failed")
		return counts, fmt.Errorf("download extract: %w", err)
	}
	defer os.Remove(archivePath)

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		span.SetStatus(codes.Error, "archive unreadable")
		return counts, fmt.Errorf("open extract archive: %w", err)
	}
	defer reader.Close()

	entry := largestCSVEntry(&reader.Reader)
	if entry == nil {
		span.SetStatus(codes.Error, "no csv in archive")
		return counts, fmt.Errorf("extract archive contains no csv entry")
	}
	slog.InfoContext(ctx, "streaming registry extract",
		"source", l.cfg.Source,
		"entry", entry.Name,
		"uncompressed", entry.UncompressedSize64)

	file, err := entry.Open()
	if err != nil {
		return counts, fmt.Errorf("open csv entry %v: %w", entry.Name, err)
	}
	defer file.Close()

	err = l.load(ctx, file, jobID, &counts)
	return counts, err
}

func (l *BulkLoader) download(ctx context.Context) (string, error) {
	path := filepath.Join(os.TempDir(),
		fmt.Sprintf("registry-%s-%d.zip", l.cfg.Source, time.Now().UnixNano()))

	res, err := l.http.R().
		SetContext(ctx).
		SetOutput(path).
		Get(l.cfg.DownloadURL)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		os.Remove(path)
		return "", fmt.Errorf("extract download returned %v", res.Status())
	}
	return path, nil
}

// the main data file is always the largest entry
func largestCSVEntry(reader *zip.Reader) *zip.File {
	var largest *zip.File
	for _, file := range reader.File {
		if !strings.EqualFold(filepath.Ext(file.Name), ".csv") {
			continue
		}
		if largest == nil || file.UncompressedSize64 > largest.UncompressedSize64 {
			largest = file
		}
	}
	return largest
}

// load streams rows into batches. A malformed row is logged and
// counted, not fatal; the extract's long tail of dirty rows must not
// abort a multi-hundred-MB ingest.
func (l *BulkLoader) load(ctx context.Context, file io.Reader, jobID string, counts *Counts) error {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	columns, err := resolveColumns(header)
	if err != nil {
		return err
	}

	var batch []Business
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := l.store.InsertBusinesses(ctx, batch, jobID)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		counts.Inserted += inserted
		counts.Skipped += len(batch) - inserted
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			counts.Failed++
			slog.WarnContext(ctx, "unparseable extract row",
				"source", l.cfg.Source, "err", err)
			continue
		}

		business, ok := columns.business(row)
		if !ok {
			counts.Failed++
			continue
		}
		business.Source = l.cfg.Source
		counts.Found++
		batch = append(batch, business)

		if len(batch) >= l.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// bulkColumns is the header-resolved column layout. Extracts reorder
// columns between releases, so position is never trusted.
type bulkColumns struct {
	name      int
	number    int
	province  int
	city      int
	naics     int
	employees int
	status    int
}

var headerAliases = map[string][]string{
	"name":      {"business name", "company name", "legal name", "entity name"},
	"number":    {"registry number", "business number", "corporation number", "registry id"},
	"province":  {"province", "province or territory", "prov"},
	"city":      {"city", "municipality"},
	"naics":     {"naics", "naics code", "industry code"},
	"employees": {"employees", "employee count", "number of employees"},
	"status":    {"status", "operating status", "corporate status"},
}

func resolveColumns(header []string) (bulkColumns, error) {
	find := func(field string) int {
		for index, cell := range header {
			cell = strings.ToLower(strings.TrimSpace(cell))
			for _, alias := range headerAliases[field] {
				if cell == alias {
					return index
				}
			}
		}
		return -1
	}

	columns := bulkColumns{
		name:      find("name"),
		number:    find("number"),
		province:  find("province"),
		city:      find("city"),
		naics:     find("naics"),
		employees: find("employees"),
		status:    find("status"),
	}
	if columns.name == -1 {
		return columns, fmt.Errorf("extract header resolves no business-name column: %v", header)
	}
	return columns, nil
}

func (c bulkColumns) business(row []string) (Business, bool) {
	cell := func(index int) string {
		if index < 0 || index >= len(row) {
			return ""
		}
		value := strings.TrimSpace(row[index])
		if value == missingValueSentinel {
			return ""
		}
		return value
	}

	name := cell(c.name)
	if name == "" {
		return Business{}, false
	}
	return Business{
		Name:            name,
		RegistryNumber:  cell(c.number),
		Province:        cell(c.province),
		City:            cell(c.city),
		Industry:        IndustryLabel(cell(c.naics)),
		Employees:       cell(c.employees),
		OperatingStatus: cell(c.status),
	}, true
}
