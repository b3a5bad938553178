package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"field-service/internal/model"
	"field-service/internal/notify"
	"field-service/internal/repository"
)

type fixture struct {
	db           *gorm.DB
	requestRepo  *repository.RequestRepository
	categoryRepo *repository.CategoryRepository
	invoiceRepo  *repository.InvoiceRepository
	userRepo     *repository.UserRepository
	availability *AvailabilityService
	billing      *BillingService
	requests     *RequestService
	categories   *CategoryService
	dashboard    *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(
		&model.User{},
		&model.ServiceCategory{},
		&model.ServiceRequest{},
		&model.Invoice{},
	))

	f := &fixture{db: database}
	f.requestRepo = repository.NewRequestRepository(database)
	f.categoryRepo = repository.NewCategoryRepository(database)
	f.invoiceRepo = repository.NewInvoiceRepository(database)
	f.userRepo = repository.NewUserRepository(database)

	log := zerolog.Nop()
	f.availability = NewAvailabilityService(f.requestRepo, f.userRepo)
	f.billing = NewBillingService(f.requestRepo, f.invoiceRepo, log)
	f.requests = NewRequestService(f.requestRepo, f.categoryRepo, f.userRepo, f.availability, f.billing, notify.NopQueue{}, log)
	f.categories = NewCategoryService(f.categoryRepo)
	f.dashboard = NewDashboardService(f.requestRepo, f.invoiceRepo)

	return f
}

func customerPrincipal(id uuid.UUID) model.Principal {
	return model.Principal{UserID: id, Role: model.RoleCustomer}
}

func technicianPrincipal(id uuid.UUID) model.Principal {
	return model.Principal{UserID: id, Role: model.RoleTechnician}
}

func managerPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleManager}
}

func (f *fixture) seedTechnician(t *testing.T, name string) uuid.UUID {
	t.Helper()
	user := &model.User{
		FullName: name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Role:     model.RoleTechnician,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user.ID
}

func (f *fixture) seedCategory(t *testing.T, name string, baseCharge float64, slaHours int) *model.ServiceCategory {
	t.Helper()
	category := &model.ServiceCategory{
		Name:       name,
		BaseCharge: baseCharge,
		SlaHours:   slaHours,
	}
	require.NoError(t, f.db.Create(category).Error)
	return category
}

type requestSeed struct {
	customerID    uuid.UUID
	technicianID  *uuid.UUID
	status        model.RequestStatus
	priority      model.Priority
	scheduledDate *time.Time
	baseCharge    float64
	slaHours      int
}

func (f *fixture) seedRequest(t *testing.T, seed requestSeed) *model.ServiceRequest {
	t.Helper()

	if seed.customerID == uuid.Nil {
		seed.customerID = uuid.New()
	}
	if seed.priority == "" {
		seed.priority = model.PriorityMedium
	}
	if seed.baseCharge == 0 {
		seed.baseCharge = 100
	}
	if seed.slaHours == 0 {
		seed.slaHours = 2
	}

	category := f.seedCategory(t, fmt.Sprintf("cat-%s", uuid.NewString()[:8]), seed.baseCharge, seed.slaHours)

	request := &model.ServiceRequest{
		CustomerID:         seed.customerID,
		TechnicianID:       seed.technicianID,
		CategoryID:         category.ID,
		CategoryName:       category.Name,
		CategoryBaseCharge: category.BaseCharge,
		CategorySlaHours:   category.SlaHours,
		IssueDescription:   "seeded issue",
		Priority:           seed.priority,
		Status:             seed.status,
		ScheduledDate:      seed.scheduledDate,
	}
	require.NoError(t, f.db.Create(request).Error)
	return request
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *model.ServiceRequest {
	t.Helper()
	var request model.ServiceRequest
	require.NoError(t, f.db.Where("id = ?", id).First(&request).Error)
	return &request
}

func timePtr(ts time.Time) *time.Time {
	return &ts
}
