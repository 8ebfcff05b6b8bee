package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/nevesb/romc-catalog/internal/catalog"
	"github.com/nevesb/romc-catalog/internal/domain"
)

// Format selects the report file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	// ErrUnsupportedFormat is returned when the requested format is not one
	// of the supported report formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNoSnapshot is returned when no snapshot exists to report on.
	ErrNoSnapshot = errors.New("no snapshot available to report on")
)

// Report describes one generated snapshot report on disk.
type Report struct {
	ID         uuid.UUID `json:"id"`
	DatasetTag string    `json:"dataset_tag"`
	Format     Format    `json:"format"`
	FileName   string    `json:"file_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service renders per-snapshot reports: the formula dependency map plus the
// bundle diff summary against the previous snapshot.
type Service struct {
	engine    *catalog.Engine
	exportDir string
	now       func() time.Time
}

// Option customizes the export service.
type Option func(*Service)

// WithExportDirectory overrides where report files are written.
func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

// NewService creates the report exporter.
func NewService(engine *catalog.Engine, opts ...Option) *Service {
	service := &Service{
		engine:    engine,
		exportDir: filepath.Join(os.TempDir(), "romc-catalog-exports"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Dir returns the directory report files are written to.
func (s *Service) Dir() string {
	return s.exportDir
}

// SnapshotReport renders the dependency map and bundle diff summary of one
// snapshot to a file and returns its metadata. An empty tag targets the
// latest snapshot.
func (s *Service) SnapshotReport(ctx context.Context, tag string, format Format) (Report, error) {
	if format != FormatXLSX && format != FormatCSV {
		return Report{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	records, resolvedTag, err := s.engine.DependencyRecords(ctx, tag)
	if err != nil {
		return Report{}, fmt.Errorf("failed to build dependency map: %w", err)
	}
	if resolvedTag == "" {
		return Report{}, ErrNoSnapshot
	}

	bundleDiff, err := s.engine.DiffSnapshotBundles(ctx, resolvedTag, "")
	if err != nil {
		return Report{}, fmt.Errorf("failed to diff snapshot bundles: %w", err)
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	report := Report{
		ID:         uuid.New(),
		DatasetTag: resolvedTag,
		Format:     format,
		CreatedAt:  s.now(),
	}
	report.FileName = fmt.Sprintf("snapshot_%s_%s.%s", sanitizeTag(resolvedTag), report.ID, format)
	target := filepath.Join(s.exportDir, report.FileName)

	dependencyRows := dependencyRows(records)
	bundleRows := bundleRows(bundleDiff)

	switch format {
	case FormatXLSX:
		err = writeXLSX(target, dependencyRows, bundleRows)
	case FormatCSV:
		err = writeCSV(target, dependencyRows, bundleRows)
	}
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// Open returns the file behind a previously generated report. Download names
// never escape the export directory.
func (s *Service) Open(fileName string) (*os.File, error) {
	if fileName != filepath.Base(fileName) {
		return nil, fmt.Errorf("invalid report file name %q", fileName)
	}
	return os.Open(filepath.Join(s.exportDir, fileName))
}

var dependencyHeader = []string{
	"formula", "depends_on_formulas", "skills", "buffs", "npcs",
	"gems", "cards", "skill_flags", "map_types", "zone_types", "dependents",
}

var bundleHeader = []string{"change", "bundle_path"}

func dependencyRows(records map[string]domain.DependencyRecord) [][]string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)+1)
	rows = append(rows, dependencyHeader)
	for _, name := range names {
		record := records[name]
		rows = append(rows, []string{
			record.Name,
			strings.Join(record.Dependencies.Formulas, ", "),
			joinInt64s(record.Dependencies.Skills),
			joinInt64s(record.Dependencies.Buffs),
			joinInt64s(record.Dependencies.Npcs),
			joinInt64s(record.Dependencies.Gems),
			joinInt64s(record.Dependencies.Cards),
			joinInt64s(record.Dependencies.SkillFlags),
			joinInts(record.Dependencies.MapTypes),
			joinInts(record.Dependencies.ZoneTypes),
			strings.Join(record.Dependents, ", "),
		})
	}
	return rows
}

func bundleRows(diff domain.ManifestSetDiff) [][]string {
	rows := [][]string{bundleHeader}
	for _, path := range diff.AddedPaths {
		rows = append(rows, []string{"added", path})
	}
	for _, path := range diff.RemovedPaths {
		rows = append(rows, []string{"removed", path})
	}
	for _, path := range diff.ChangedPaths {
		rows = append(rows, []string{"changed", path})
	}
	return rows
}

func writeXLSX(target string, dependencyRows, bundleRows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const depSheet = "Dependencies"
	const bundleSheet = "Bundles"

	f.SetSheetName(f.GetSheetName(0), depSheet)
	if _, err := f.NewSheet(bundleSheet); err != nil {
		return fmt.Errorf("failed to create bundle sheet: %w", err)
	}

	if err := writeSheet(f, depSheet, dependencyRows); err != nil {
		return err
	}
	if err := writeSheet(f, bundleSheet, bundleRows); err != nil {
		return err
	}

	if err := f.SaveAs(target); err != nil {
		return fmt.Errorf("failed to write xlsx report: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeCSV(target string, dependencyRows, bundleRows [][]string) error {
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create csv report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for _, rows := range [][][]string{dependencyRows, bundleRows} {
		for _, row := range rows {
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv report: %w", err)
	}
	return nil
}

func joinInt64s(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func sanitizeTag(tag string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, tag)
}
