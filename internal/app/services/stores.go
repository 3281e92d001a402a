package services

import (
	"context"
	"time"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/repositories"
	"github.com/ai2c/amap/internal/pkg/hierarchy"
)

// The interfaces below are the slices of the repositories each service needs.
// *repositories.XRepository satisfies them; tests use in-memory fakes.

// Transactor runs fn in one database transaction carried by ctx
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitStore persists units and their derived hierarchy
type UnitStore interface {
	GetByUIC(ctx context.Context, uic string) (*models.Unit, error)
	FindByShortName(ctx context.Context, shortName string) (*models.Unit, error)
	Exists(ctx context.Context, uic string) (bool, error)
	GetMany(ctx context.Context, uics []string) ([]*models.Unit, error)
	List(ctx context.Context, f repositories.UnitFilter) ([]*models.Unit, int64, error)
	Create(ctx context.Context, u *models.Unit) error
	UpdateAttributes(ctx context.Context, u *models.Unit) error
	SetParent(ctx context.Context, uic string, parent *string) error
	SetCompo(ctx context.Context, uics []string, compo string) (int64, error)
	LockHierarchy(ctx context.Context) error
	ParentLinks(ctx context.Context) (map[string]string, error)
	StoredLineages(ctx context.Context) (map[string]hierarchy.Lineage, error)
	UpdateLineages(ctx context.Context, lineages map[string]hierarchy.Lineage, logicalTime int64) error
	AllUICs(ctx context.Context) ([]string, error)
}

// ClockStore bumps logical clocks
type ClockStore interface {
	Bump(ctx context.Context, model string) (int64, error)
}

// SoldierStore persists soldiers, logins and MOS codes
type SoldierStore interface {
	GetByID(ctx context.Context, userID string) (*models.Soldier, error)
	GetMany(ctx context.Context, userIDs []string) (map[string]*models.Soldier, error)
	ListByUnits(ctx context.Context, uics []string) ([]*models.Soldier, error)
	ListWithLogin(ctx context.Context) ([]*models.Soldier, error)
	AdminIDs(ctx context.Context) ([]string, error)
	ListMaintainers(ctx context.Context, uics []string) ([]repositories.MaintainerRow, error)
	Create(ctx context.Context, s *models.Soldier) error
	Update(ctx context.Context, s *models.Soldier) error
	SetUnit(ctx context.Context, userID, uic string) error
	SetReportingML(ctx context.Context, userID string, ml *string) error
	RecordLogin(ctx context.Context, userID string, at time.Time) error
	LastLogins(ctx context.Context, userIDs []string) (map[string]time.Time, error)
	ListMOS(ctx context.Context, kind string) ([]*models.MOSCode, error)
	MOSExists(ctx context.Context, mos string) (bool, error)
	UpsertMOS(ctx context.Context, m *models.MOSCode) error
	AdditionalMOS(ctx context.Context, userID string) ([]string, error)
	ReplaceAdditionalMOS(ctx context.Context, userID string, codes []string) error
}

// RoleStore persists user roles
type RoleStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.UserRole, error)
	ListByUnitsAndLevel(ctx context.Context, uics []string, level models.AccessLevel) ([]*models.UserRole, error)
	UserIDsWithLevels(ctx context.Context, levels []models.AccessLevel) ([]string, error)
	GetByID(ctx context.Context, id int64) (*models.UserRole, error)
	Upsert(ctx context.Context, userID, uic string, level models.AccessLevel) (*models.UserRole, error)
	Delete(ctx context.Context, id int64) error
	GetLevel(ctx context.Context, userID, uic string) (*models.AccessLevel, error)
}

// RequestStore persists permission and transfer requests
type RequestStore interface {
	CreatePermission(ctx context.Context, req *models.UserRequest) error
	ListPermissionsByUnits(ctx context.Context, uics []string) ([]*models.UserRequest, error)
	ListPermissionsByIDs(ctx context.Context, ids []int64) ([]*models.UserRequest, error)
	CountPermissionsByUnits(ctx context.Context, uics []string) (int64, error)
	HasOpenPermissions(ctx context.Context, userID string) (bool, error)
	DeletePermissions(ctx context.Context, ids []int64) error
	CreateTransfer(ctx context.Context, req *models.SoldierTransferRequest) error
	ListTransfersTouchingUnits(ctx context.Context, uics []string) ([]*models.SoldierTransferRequest, error)
	ListTransfersByRequester(ctx context.Context, requesterID string) ([]*models.SoldierTransferRequest, error)
	ListTransfersByIDs(ctx context.Context, ids []int64) ([]*models.SoldierTransferRequest, error)
	CountTransfersTouchingUnits(ctx context.Context, uics []string) (int64, error)
	DeleteTransfers(ctx context.Context, ids []int64) error
	DeleteTransfersForSoldier(ctx context.Context, soldierID string) error
}

// FlagStore persists soldier flags
type FlagStore interface {
	Create(ctx context.Context, f *models.SoldierFlag) error
	GetByID(ctx context.Context, id int64) (*models.SoldierFlag, error)
	Update(ctx context.Context, f *models.SoldierFlag) error
	SoftDelete(ctx context.Context, id int64, modifiedBy string) error
	ListForSoldiers(ctx context.Context, soldierIDs []string) ([]*models.SoldierFlag, error)
	ListForUnits(ctx context.Context, uics []string) ([]*models.SoldierFlag, error)
}

// DesignationStore persists designation types and soldier designations
type DesignationStore interface {
	ListTypes(ctx context.Context) ([]*models.Designation, error)
	FindType(ctx context.Context, designationType string) (*models.Designation, error)
	Create(ctx context.Context, d *models.SoldierDesignation) error
	GetByID(ctx context.Context, id int64) (*models.SoldierDesignation, error)
	Remove(ctx context.Context, id int64, modifiedBy string) error
	ListForSoldiers(ctx context.Context, soldierIDs []string) ([]*models.SoldierDesignation, error)
	ListForUnits(ctx context.Context, uics []string) ([]*models.SoldierDesignation, error)
}

// FaultStore persists faults, actions and maintainer links
type FaultStore interface {
	GetFault(ctx context.Context, id string) (*models.Fault, error)
	ListActions(ctx context.Context, faultIDs []string) ([]*models.FaultAction, error)
	ListMaintainers(ctx context.Context, actionIDs []string) ([]repositories.MaintainerLink, error)
	SoldierFaultRoles(ctx context.Context, userID string) ([]repositories.FaultRoleRow, error)
	FaultsMaintainedInWindow(ctx context.Context, userID string, from, to time.Time) ([]*models.Fault, error)
	ActionsMaintainedBy(ctx context.Context, userID string, faultIDs []string) ([]*models.FaultAction, error)
	ExistingFaultIDs(ctx context.Context, ids []string) (map[string]bool, error)
	ExistingActionIDs(ctx context.Context, ids []string) (map[string]bool, error)
	CreateFault(ctx context.Context, f *models.Fault) error
	UpdateFault(ctx context.Context, f *models.Fault) error
	CreateAction(ctx context.Context, a *models.FaultAction) error
	EnsureMaintainer(ctx context.Context, actionID, soldierID string, manHours float64) (bool, error)
}

// EventStore persists form lookups and DA 7817 events
type EventStore interface {
	ListLookup(ctx context.Context, table string) ([]*models.Lookup, error)
	LookupExists(ctx context.Context, table, value string) (bool, error)
	UpsertLookup(ctx context.Context, table string, l *models.Lookup) error
	ListTCSLocations(ctx context.Context) ([]*models.TCSLocation, error)
	UpsertTCSLocation(ctx context.Context, l *models.TCSLocation) error
	ListTasks(ctx context.Context, numbers []string) ([]*models.Task, error)
	UpsertTask(ctx context.Context, t *models.Task) error
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	ListBySoldier(ctx context.Context, soldierID string) ([]*models.Event, error)
	ReplaceTasks(ctx context.Context, eventID int64, tasks []models.EventTask) error
	TasksFor(ctx context.Context, eventIDs []int64) (map[int64][]models.EventTask, error)
	EventsWithDocuments(ctx context.Context, eventIDs []int64) (map[int64]bool, error)
	LatestMaintenanceLevel(ctx context.Context, soldierID string) (*string, error)
	LatestAnnualGoDate(ctx context.Context, soldierID string) (*time.Time, error)
}

// DocumentStore persists counselings and supporting documents
type DocumentStore interface {
	ListTypes(ctx context.Context) ([]*models.SupportingDocumentType, error)
	TypeExists(ctx context.Context, docType string) (bool, error)
	UpsertType(ctx context.Context, docType string) error
	CreateCounseling(ctx context.Context, c *models.Counseling) error
	GetCounseling(ctx context.Context, id int64) (*models.Counseling, error)
	ListCounselings(ctx context.Context, soldierID string, ids []int64, visibleOnly bool) ([]*models.Counseling, error)
	HideCounseling(ctx context.Context, id int64) error
	CreateSupportingDocument(ctx context.Context, d *models.SupportingDocument) error
	GetSupportingDocument(ctx context.Context, id int64) (*models.SupportingDocument, error)
	ListSupportingDocuments(ctx context.Context, soldierID string, ids []int64, visibleOnly bool) ([]*models.SupportingDocument, error)
	UpdateSupportingDocument(ctx context.Context, d *models.SupportingDocument) error
	HideSupportingDocument(ctx context.Context, id int64) error
}

// NotificationStore persists notifications and their deliveries
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	Deliver(ctx context.Context, notificationID int64, soldierIDs []string) (map[string]int64, error)
	ListForSoldier(ctx context.Context, soldierID string) ([]*models.SoldierNotification, error)
	MarkRead(ctx context.Context, soldierID string, id int64) error
	MarkAllRead(ctx context.Context, soldierID string) (int64, error)
}

// RawSource reads the vendor staging tables
type RawSource interface {
	FaultsSince(ctx context.Context, since time.Time) ([]*models.RawFault, error)
	FaultActionsSince(ctx context.Context, since time.Time) ([]*models.RawFaultAction, error)
	Soldiers(ctx context.Context) ([]*models.RawSoldier, error)
}
