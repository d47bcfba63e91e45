package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ErrNoBurns is returned when nothing matches the export criteria.
var ErrNoBurns = errors.New("no burns match the export criteria")

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	StartTime     time.Time
	EndTime       time.Time
	AccountFilter string
	OutputDir     string
}

// BurnExporter writes ledger entries to files.
type BurnExporter struct {
	normalize *amount.Normalizer
	now       func() time.Time
	logger    *zap.Logger
}

func NewBurnExporter(decimals uint8, logger *zap.Logger) *BurnExporter {
	return &BurnExporter{
		normalize: amount.NewNormalizer(decimals),
		now:       time.Now,
		logger:    logger.Named("export"),
	}
}

// CSVHeaders is the column order of CSV exports.
func CSVHeaders() []string {
	return []string{"burned_at", "signature", "account", "amount_base_units", "amount"}
}

func (be *BurnExporter) toCSV(b *models.Burn) []string {
	return []string{
		b.BurnedAt.UTC().Format(time.RFC3339),
		b.Signature,
		b.Account,
		b.Amount.String(),
		be.normalize.Display(b.Amount),
	}
}

// ExportBurns writes the matching burns, oldest first, and returns the file path.
func (be *BurnExporter) ExportBurns(burns []*models.Burn, options ExportOptions) (string, error) {
	filtered := be.filterBurns(burns, options)
	if len(filtered) == 0 {
		return "", ErrNoBurns
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].BurnedAt.Before(filtered[j].BurnedAt)
	})

	outputPath := filepath.Join(options.OutputDir, be.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = be.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = be.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	be.logger.Info("Burns exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (be *BurnExporter) filterBurns(burns []*models.Burn, options ExportOptions) []*models.Burn {
	var filtered []*models.Burn
	for _, b := range burns {
		if !options.StartTime.IsZero() && b.BurnedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !b.BurnedAt.Before(options.EndTime) {
			continue
		}
		if options.AccountFilter != "" && b.Account != options.AccountFilter {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}

func (be *BurnExporter) generateFilename(options ExportOptions) string {
	prefix := "burns_all"
	if options.AccountFilter != "" {
		account := options.AccountFilter
		if len(account) > 8 {
			account = account[:8]
		}
		prefix = "burns_" + account
	}
	return fmt.Sprintf("%s_%s.%s", prefix, be.now().Format("20060102_150405"), options.Format)
}

func (be *BurnExporter) exportToCSV(burns []*models.Burn, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, b := range burns {
		if err := writer.Write(be.toCSV(b)); err != nil {
			return fmt.Errorf("failed to write burn: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (be *BurnExporter) exportToJSON(burns []*models.Burn, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time      `json:"export_time"`
		BurnCount  int            `json:"burn_count"`
		Burns      []*models.Burn `json:"burns"`
		Summary    ExportSummary  `json:"summary"`
	}{
		ExportTime: be.now(),
		BurnCount:  len(burns),
		Burns:      burns,
		Summary:    be.calculateSummary(burns),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported burns
type ExportSummary struct {
	TotalBurns     int                `json:"total_burns"`
	UniqueAccounts int                `json:"unique_accounts"`
	TotalAmount    amount.TokenAmount `json:"total_amount"`
	TotalDisplay   string             `json:"total_display"`
	LargestAmount  amount.TokenAmount `json:"largest_amount"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
}

// calculateSummary expects burns sorted by time.
func (be *BurnExporter) calculateSummary(burns []*models.Burn) ExportSummary {
	summary := ExportSummary{TotalBurns: len(burns)}
	if len(burns) == 0 {
		return summary
	}

	summary.StartDate = burns[0].BurnedAt
	summary.EndDate = burns[len(burns)-1].BurnedAt

	accounts := make(map[string]struct{})
	for _, b := range burns {
		accounts[b.Account] = struct{}{}
		if total, ok := summary.TotalAmount.Add(b.Amount); ok {
			summary.TotalAmount = total
		}
		if b.Amount.GreaterThan(summary.LargestAmount) {
			summary.LargestAmount = b.Amount
		}
	}
	summary.UniqueAccounts = len(accounts)
	summary.TotalDisplay = be.normalize.Display(summary.TotalAmount)
	return summary
}

// DailyReport is one day of burns with an hourly breakdown.
type DailyReport struct {
	Date            time.Time      `json:"date"`
	BurnCount       int            `json:"burn_count"`
	Summary         ExportSummary  `json:"summary"`
	HourlyBreakdown []HourlyStats  `json:"hourly_breakdown"`
	Burns           []*models.Burn `json:"burns"`
}

// HourlyStats represents burn statistics for an hour
type HourlyStats struct {
	Hour      int                `json:"hour"`
	BurnCount int                `json:"burn_count"`
	Amount    amount.TokenAmount `json:"amount"`
}

// ExportDailyReport writes the burns of date's calendar day. An empty day
// writes nothing and returns an empty path.
func (be *BurnExporter) ExportDailyReport(burns []*models.Burn, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	filtered := be.filterBurns(burns, ExportOptions{
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
	})
	if len(filtered) == 0 {
		be.logger.Info("No burns for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].BurnedAt.Before(filtered[j].BurnedAt)
	})

	report := DailyReport{
		Date:            startOfDay,
		BurnCount:       len(filtered),
		Summary:         be.calculateSummary(filtered),
		HourlyBreakdown: calculateHourlyBreakdown(filtered),
		Burns:           filtered,
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	be.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("burns", len(filtered)))

	return outputPath, nil
}

func calculateHourlyBreakdown(burns []*models.Burn) []HourlyStats {
	hourly := make(map[int]*HourlyStats)
	for _, b := range burns {
		hour := b.BurnedAt.Hour()
		stats, ok := hourly[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour}
			hourly[hour] = stats
		}
		stats.BurnCount++
		if total, ok := stats.Amount.Add(b.Amount); ok {
			stats.Amount = total
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := hourly[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
