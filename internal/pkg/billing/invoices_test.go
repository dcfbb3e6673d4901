package billing

import (
	"context"
	"testing"
	"time"

	"github.com/glaciervault/glaciervault/app/models"
)

func invoicePeriod() (time.Time, time.Time) {
	return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestCreateUsageInvoice_SkipsBelowMinimum(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_test"}
	provider := &fakeProvider{}
	svc := testBillingService(repo, newFakeUsers(), provider, time.Now())

	start, end := invoicePeriod()
	err := svc.CreateUsageInvoice(context.Background(), InvoiceRequest{
		UserID:      1,
		PeriodStart: start,
		PeriodEnd:   end,
		StorageCost: 0.4,
	})
	if err != nil {
		t.Fatalf("CreateUsageInvoice: %v", err)
	}
	if len(provider.invoiceIDs) != 0 {
		t.Fatalf("sub-minimum total must not reach the provider")
	}
	if len(repo.invoices) != 0 {
		t.Fatalf("sub-minimum total must not be mirrored locally")
	}
}

func TestCreateUsageInvoice_OneItemPerNonZeroComponent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1, ProviderCustomerID: "cus_test"}
	provider := &fakeProvider{}
	svc := testBillingService(repo, newFakeUsers(), provider, time.Now())

	start, end := invoicePeriod()
	err := svc.CreateUsageInvoice(context.Background(), InvoiceRequest{
		UserID:      1,
		PeriodStart: start,
		PeriodEnd:   end,
		StorageCost: 120.4,
		RestoreCost: 25.0,
		APICost:     0,
	})
	if err != nil {
		t.Fatalf("CreateUsageInvoice: %v", err)
	}

	if len(provider.lastItems) != 2 {
		t.Fatalf("items = %d, want 2 (zero components are omitted)", len(provider.lastItems))
	}
	if provider.lastItems[0].Amount != 120 || provider.lastItems[1].Amount != 25 {
		t.Fatalf("amounts = %d/%d, want 120/25", provider.lastItems[0].Amount, provider.lastItems[1].Amount)
	}

	if len(repo.invoices) != 1 {
		t.Fatalf("local mirror count = %d, want 1", len(repo.invoices))
	}
	inv := repo.invoices[0]
	if inv.Status != models.InvoiceStatusOpen {
		t.Fatalf("status = %q, want open", inv.Status)
	}
	if inv.TotalAmount != 145.4 {
		t.Fatalf("total = %v, want 145.4", inv.TotalAmount)
	}
}

func TestCreateUsageInvoice_WithoutCustomer(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, UserID: 1}
	svc := testBillingService(repo, newFakeUsers(), &fakeProvider{}, time.Now())

	start, end := invoicePeriod()
	err := svc.CreateUsageInvoice(context.Background(), InvoiceRequest{
		UserID:      1,
		PeriodStart: start,
		PeriodEnd:   end,
		StorageCost: 100,
	})
	if err != ErrNoSubscription {
		t.Fatalf("err = %v, want ErrNoSubscription", err)
	}
}

func TestRoundYen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want int64
	}{
		{0.4, 0},
		{0.5, 1},
		{1.49, 1},
		{120.5, 121},
	}
	for _, tt := range tests {
		if got := roundYen(tt.in); got != tt.want {
			t.Fatalf("roundYen(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
