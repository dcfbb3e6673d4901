package billing

import (
	"context"
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2/log"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/internal/pkg/payments"
)

// MinInvoiceYen is the minimum billable amount. Periods totaling less
// are skipped, not carried over.
const MinInvoiceYen = 1.0

// CreateUsageInvoice turns one billing period's cost components into a
// provider invoice with one line item per non-zero component, and
// mirrors it locally. Totals below the minimum are skipped silently.
func (s *Service) CreateUsageInvoice(ctx context.Context, req InvoiceRequest) error {
	total := req.Total()
	if total < MinInvoiceYen {
		log.Infof("[Billing] Skipping invoice for user %d: total %.2f below minimum", req.UserID, total)
		return nil
	}

	sub, err := s.repo.GetSubscriptionByUserID(req.UserID)
	if err != nil {
		return err
	}
	if sub.ProviderCustomerID == "" {
		return ErrNoSubscription
	}

	period := fmt.Sprintf("%s - %s", req.PeriodStart.Format("2006-01-02"), req.PeriodEnd.Format("2006-01-02"))
	var items []payments.InvoiceItem
	if yen := roundYen(req.StorageCost); yen > 0 {
		items = append(items, payments.InvoiceItem{
			Description: "Cold storage " + period,
			Amount:      yen,
		})
	}
	if yen := roundYen(req.RestoreCost); yen > 0 {
		items = append(items, payments.InvoiceItem{
			Description: "Data retrieval " + period,
			Amount:      yen,
		})
	}
	if yen := roundYen(req.APICost); yen > 0 {
		items = append(items, payments.InvoiceItem{
			Description: "API usage " + period,
			Amount:      yen,
		})
	}
	if len(items) == 0 {
		return nil
	}

	invoiceID, err := s.provider.CreateInvoice(ctx, sub.ProviderCustomerID, "Usage charges "+period, items)
	if err != nil {
		return err
	}

	record := &models.Invoice{
		UserID:            req.UserID,
		ProviderInvoiceID: invoiceID,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		StorageCost:       req.StorageCost,
		RestoreCost:       req.RestoreCost,
		APICost:           req.APICost,
		TotalAmount:       total,
		Status:            models.InvoiceStatusOpen,
	}
	return s.repo.CreateInvoice(record)
}

// ListInvoices returns the user's most recent invoices.
func (s *Service) ListInvoices(userID uint, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = 12
	}
	return s.repo.GetInvoicesByUserID(userID, limit)
}

// roundYen rounds a cost to whole yen, the smallest JPY unit.
func roundYen(cost float64) int64 {
	return int64(math.Round(cost))
}
