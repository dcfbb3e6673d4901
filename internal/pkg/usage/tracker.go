package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/app/repository"
	"github.com/glaciervault/glaciervault/internal/pkg/billing"
)

// Pricing, all in yen.
const (
	GiB                 = int64(1024 * 1024 * 1024)
	PricePerGBMonth     = 10.0
	MonthDivisorDays    = 30.0
	UploadCostPer1000   = 1.0
	RestoreStandardPerG = 5.0
	RestoreBulkPerG     = 1.0
)

// ErrStorageLimitExceeded is returned when an upload would push the
// account past its storage ceiling. ErrFreeTierLimitExceeded is the
// no-payment-method variant; registering a card raises the ceiling,
// so the two are reported differently to the client.
var (
	ErrStorageLimitExceeded  = errors.New("storage limit exceeded")
	ErrFreeTierLimitExceeded = fmt.Errorf("free tier %w", ErrStorageLimitExceeded)
)

// Invoicer creates one usage invoice per billing period. Implemented by
// the billing service.
type Invoicer interface {
	CreateUsageInvoice(ctx context.Context, req billing.InvoiceRequest) error
}

// Tracker records daily storage usage, meters per-action costs and runs
// the monthly billing batch.
type Tracker struct {
	repo     repository.UsageRepository
	users    repository.UserRepository
	photos   repository.PhotoRepository
	invoicer Invoicer
	now      func() time.Time
}

// NewTracker wires the usage tracker.
func NewTracker(repo repository.UsageRepository, users repository.UserRepository, photos repository.PhotoRepository, invoicer Invoicer) *Tracker {
	return &Tracker{
		repo:     repo,
		users:    users,
		photos:   photos,
		invoicer: invoicer,
		now:      time.Now,
	}
}

// RecordDailyUsage writes one usage record per user per calendar day.
// Re-running for the same day overwrites rather than accumulates, so a
// crashed run is repaired by simply running again.
func (t *Tracker) RecordDailyUsage() error {
	users, err := t.users.ListActive()
	if err != nil {
		return err
	}

	day := t.now().Format(models.DayFormat)
	var errs []error
	for _, user := range users {
		count, err := t.photos.CountByUserID(user.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", user.ID, err))
			continue
		}
		if count == 0 {
			continue
		}
		bytes, err := t.photos.SumSizeByUserID(user.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", user.ID, err))
			continue
		}

		record := &models.UsageRecord{
			UserID:         user.ID,
			Day:            day,
			StorageBytes:   bytes,
			FileCount:      count,
			CalculatedCost: DailyStorageCost(bytes),
		}
		if err := t.repo.UpsertDailyRecord(record); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", user.ID, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("daily usage recording had %d failures: %w", len(errs), errors.Join(errs...))
	}
	log.Infof("[Usage] Recorded daily usage for %s", day)
	return nil
}

// DailyStorageCost prices one day of storing the given byte count,
// using a fixed 30-day month divisor.
func DailyStorageCost(bytes int64) float64 {
	gb := float64(bytes) / float64(GiB)
	return gb * PricePerGBMonth / MonthDivisorDays
}

// ExecuteMonthlyBilling invoices every user with a payment method for
// the prior calendar month. Per-user failures are collected so one bad
// account cannot block the rest of the batch.
func (t *Tracker) ExecuteMonthlyBilling(ctx context.Context) []error {
	now := t.now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	periodEnd := periodStart.AddDate(0, 1, 0)

	users, err := t.users.ListActive()
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, user := range users {
		if !user.HasPaymentMethod {
			continue
		}
		if err := t.billUser(ctx, user.ID, periodStart, periodEnd); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", user.ID, err))
		}
	}

	log.Infof("[Usage] Monthly billing for %s done, %d failures", periodStart.Format("2006-01"), len(errs))
	return errs
}

func (t *Tracker) billUser(ctx context.Context, userID uint, periodStart, periodEnd time.Time) error {
	from := periodStart.Format(models.DayFormat)
	to := periodEnd.AddDate(0, 0, -1).Format(models.DayFormat)
	records, err := t.repo.GetRecordsByUserAndRange(userID, from, to)
	if err != nil {
		return err
	}
	storageCost := 0.0
	for _, r := range records {
		storageCost += r.CalculatedCost
	}

	sums, err := t.repo.SumLogCostByAction(userID, periodStart, periodEnd)
	if err != nil {
		return err
	}
	restoreCost := sums[models.UsageActionRestore]
	apiCost := sums[models.UsageActionUpload] + sums[models.UsageActionDownload]

	return t.invoicer.CreateUsageInvoice(ctx, billing.InvoiceRequest{
		UserID:      userID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		StorageCost: storageCost,
		RestoreCost: restoreCost,
		APICost:     apiCost,
	})
}

// LogUpload meters an upload request batch.
func (t *Tracker) LogUpload(userID uint, bytes int64, fileCount int) error {
	return t.repo.CreateLog(&models.UsageLog{
		UserID:           userID,
		ActionType:       models.UsageActionUpload,
		BytesTransferred: bytes,
		FileCount:        fileCount,
		Cost:             float64(fileCount) * UploadCostPer1000 / 1000.0,
	})
}

// LogRestore meters a restore request, priced per GB by tier.
func (t *Tracker) LogRestore(userID uint, bytes int64, tier string) error {
	perGB := RestoreStandardPerG
	if tier == "Bulk" {
		perGB = RestoreBulkPerG
	}
	gb := float64(bytes) / float64(GiB)
	return t.repo.CreateLog(&models.UsageLog{
		UserID:           userID,
		ActionType:       models.UsageActionRestore,
		BytesTransferred: bytes,
		FileCount:        1,
		Cost:             gb * perGB,
		Detail:           tier,
	})
}

// LogDownload records a download. Downloads are free but still logged
// for the usage history.
func (t *Tracker) LogDownload(userID uint, bytes int64) error {
	return t.repo.CreateLog(&models.UsageLog{
		UserID:           userID,
		ActionType:       models.UsageActionDownload,
		BytesTransferred: bytes,
		FileCount:        1,
		Cost:             0,
	})
}

// MonthEstimate is the running cost projection for the current month.
type MonthEstimate struct {
	Month          string  `json:"month"`
	StorageCost    float64 `json:"storage_cost"`
	RestoreCost    float64 `json:"restore_cost"`
	APICost        float64 `json:"api_cost"`
	EstimatedTotal float64 `json:"estimated_total"`
	StorageBytes   int64   `json:"storage_bytes"`
}

// EstimateCurrentMonth sums the month-to-date costs and projects the
// storage component to the end of the month at the current byte count.
func (t *Tracker) EstimateCurrentMonth(userID uint) (*MonthEstimate, error) {
	now := t.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	records, err := t.repo.GetRecordsByUserAndRange(userID,
		monthStart.Format(models.DayFormat), now.Format(models.DayFormat))
	if err != nil {
		return nil, err
	}
	storageCost := 0.0
	for _, r := range records {
		storageCost += r.CalculatedCost
	}

	bytes, err := t.photos.SumSizeByUserID(userID)
	if err != nil {
		return nil, err
	}
	daysLeft := int(nextMonth.Sub(now).Hours() / 24)
	projected := storageCost + float64(daysLeft)*DailyStorageCost(bytes)

	sums, err := t.repo.SumLogCostByAction(userID, monthStart, nextMonth)
	if err != nil {
		return nil, err
	}
	restoreCost := sums[models.UsageActionRestore]
	apiCost := sums[models.UsageActionUpload] + sums[models.UsageActionDownload]

	return &MonthEstimate{
		Month:          monthStart.Format("2006-01"),
		StorageCost:    projected,
		RestoreCost:    restoreCost,
		APICost:        apiCost,
		EstimatedTotal: projected + restoreCost + apiCost,
		StorageBytes:   bytes,
	}, nil
}

// UsageHistory returns the raw metered actions of one period, newest
// data last, for the usage history endpoint.
func (t *Tracker) UsageHistory(userID uint, from, to time.Time) ([]models.UsageLog, error) {
	return t.repo.GetLogsByUserAndRange(userID, from, to)
}

// MonthlyStats is the per-month usage summary for the stats endpoint.
type MonthlyStats struct {
	Month        string  `json:"month"`
	StorageBytes int64   `json:"storage_bytes"`
	FileCount    int64   `json:"file_count"`
	StorageCost  float64 `json:"storage_cost"`
}

// MonthlyStatsSeries returns the trailing twelve calendar months of
// usage, oldest first, ending with the current month.
func (t *Tracker) MonthlyStatsSeries(userID uint) ([]MonthlyStats, error) {
	now := t.now()
	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	months := make([]MonthlyStats, 0, 12)
	for i := 0; i < 12; i++ {
		stats, err := t.MonthlyStatsFor(userID, cursor.Year(), cursor.Month())
		if err != nil {
			return nil, err
		}
		months = append(months, *stats)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months, nil
}

// MonthlyStatsFor aggregates a user's daily records for one month.
func (t *Tracker) MonthlyStatsFor(userID uint, year int, month time.Month) (*MonthlyStats, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	records, err := t.repo.GetRecordsByUserAndRange(userID,
		monthStart.Format(models.DayFormat), monthEnd.Format(models.DayFormat))
	if err != nil {
		return nil, err
	}

	stats := &MonthlyStats{Month: monthStart.Format("2006-01")}
	for _, r := range records {
		stats.StorageCost += r.CalculatedCost
		if r.StorageBytes > stats.StorageBytes {
			stats.StorageBytes = r.StorageBytes
			stats.FileCount = r.FileCount
		}
	}
	return stats, nil
}

// CheckStorageLimit rejects an upload whose projected post-upload usage
// would exceed the account's storage ceiling.
func (t *Tracker) CheckStorageLimit(userID uint, incomingBytes int64) error {
	user, err := t.users.GetByID(userID)
	if err != nil {
		return err
	}
	current, err := t.photos.SumSizeByUserID(userID)
	if err != nil {
		return err
	}
	if current+incomingBytes > user.StorageLimitBytes {
		limitErr := ErrStorageLimitExceeded
		if !user.HasPaymentMethod {
			limitErr = ErrFreeTierLimitExceeded
		}
		return fmt.Errorf("%w: %d + %d bytes over limit %d",
			limitErr, current, incomingBytes, user.StorageLimitBytes)
	}
	return nil
}
