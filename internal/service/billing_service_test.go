package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-service/internal/model"
)

func TestCreateInvoiceIfMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.seedRequest(t, requestSeed{
		status:     model.RequestStatusCompleted,
		priority:   model.PriorityMedium,
		baseCharge: 100,
	})

	invoice, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)

	assert.Equal(t, 100.0, invoice.Amount)
	assert.Equal(t, model.InvoiceStatusPending, invoice.Status)
	assert.Equal(t, 100.0, f.reload(t, request.ID).TotalPrice)
}

func TestCreateInvoiceIfMissing_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.seedRequest(t, requestSeed{
		status:     model.RequestStatusCompleted,
		baseCharge: 100,
	})

	first, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)

	second, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateInvoiceIfMissing_PriorityMultipliers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	amounts := make(map[model.Priority]float64)
	for _, priority := range []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh} {
		request := f.seedRequest(t, requestSeed{
			status:     model.RequestStatusCompleted,
			priority:   priority,
			baseCharge: 100,
		})
		invoice, err := f.billing.CreateInvoiceIfMissing(ctx, request)
		require.NoError(t, err)
		amounts[priority] = invoice.Amount
	}

	assert.Equal(t, 100.0, amounts[model.PriorityMedium])
	assert.Less(t, amounts[model.PriorityLow], amounts[model.PriorityMedium])
	assert.Greater(t, amounts[model.PriorityHigh], amounts[model.PriorityMedium])
}

func TestPayInvoice_MarksPaidAndClosesCompletedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	request := f.seedRequest(t, requestSeed{
		customerID: customerID,
		status:     model.RequestStatusCompleted,
		baseCharge: 100,
	})
	invoice, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)

	require.NoError(t, f.billing.PayInvoice(ctx, customerPrincipal(customerID), invoice.ID.String()))

	var paid model.Invoice
	require.NoError(t, f.db.Where("id = ?", invoice.ID).First(&paid).Error)
	assert.Equal(t, model.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	assert.Equal(t, model.RequestStatusClosed, f.reload(t, request.ID).Status)
}

func TestPayInvoice_DoesNotCloseUncompletedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	request := f.seedRequest(t, requestSeed{
		customerID: customerID,
		status:     model.RequestStatusInProgress,
		baseCharge: 100,
	})
	invoice, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)

	require.NoError(t, f.billing.PayInvoice(ctx, customerPrincipal(customerID), invoice.ID.String()))

	assert.Equal(t, model.RequestStatusInProgress, f.reload(t, request.ID).Status)
}

func TestPayInvoice_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.billing.PayInvoice(context.Background(), managerPrincipal(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPayInvoice_DeniesOtherCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.seedRequest(t, requestSeed{
		customerID: uuid.New(),
		status:     model.RequestStatusCompleted,
		baseCharge: 100,
	})
	invoice, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)

	err = f.billing.PayInvoice(ctx, customerPrincipal(uuid.New()), invoice.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPayInvoice_AlreadyPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	request := f.seedRequest(t, requestSeed{
		customerID: customerID,
		status:     model.RequestStatusCompleted,
		baseCharge: 100,
	})
	invoice, err := f.billing.CreateInvoiceIfMissing(ctx, request)
	require.NoError(t, err)

	require.NoError(t, f.billing.PayInvoice(ctx, customerPrincipal(customerID), invoice.ID.String()))
	err = f.billing.PayInvoice(ctx, customerPrincipal(customerID), invoice.ID.String())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetInvoices_FiltersByCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	mine := f.seedRequest(t, requestSeed{customerID: customerID, status: model.RequestStatusCompleted, baseCharge: 50})
	other := f.seedRequest(t, requestSeed{status: model.RequestStatusCompleted, baseCharge: 70})

	_, err := f.billing.CreateInvoiceIfMissing(ctx, mine)
	require.NoError(t, err)
	_, err = f.billing.CreateInvoiceIfMissing(ctx, other)
	require.NoError(t, err)

	invoices, err := f.billing.GetInvoices(ctx, customerPrincipal(customerID))
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, mine.ID, invoices[0].ServiceRequestID)

	all, err := f.billing.GetInvoices(ctx, managerPrincipal())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.billing.GetInvoices(ctx, technicianPrincipal(uuid.New()))
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
