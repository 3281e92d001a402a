package repositories

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UnitRepository         *UnitRepository
	LogicalClockRepository *LogicalClockRepository
	SoldierRepository      *SoldierRepository
	RoleRepository         *RoleRepository
	RequestRepository      *RequestRepository
	FlagRepository         *FlagRepository
	DesignationRepository  *DesignationRepository
	FaultRepository        *FaultRepository
	EventRepository        *EventRepository
	DocumentRepository     *DocumentRepository
	NotificationRepository *NotificationRepository
	RawSourceRepository    *RawSourceRepository
}

// NewRepositories initializes all repositories. sourceDB may be nil when no
// staging database is configured; the ETL jobs then report it unavailable.
func NewRepositories(pool *pgxpool.Pool, sourceDB *sql.DB) *Repositories {
	repos := &Repositories{
		UnitRepository:         NewUnitRepository(pool),
		LogicalClockRepository: NewLogicalClockRepository(pool),
		SoldierRepository:      NewSoldierRepository(pool),
		RoleRepository:         NewRoleRepository(pool),
		RequestRepository:      NewRequestRepository(pool),
		FlagRepository:         NewFlagRepository(pool),
		DesignationRepository:  NewDesignationRepository(pool),
		FaultRepository:        NewFaultRepository(pool),
		EventRepository:        NewEventRepository(pool),
		DocumentRepository:     NewDocumentRepository(pool),
		NotificationRepository: NewNotificationRepository(pool),
	}
	if sourceDB != nil {
		repos.RawSourceRepository = NewRawSourceRepository(sourceDB)
	}
	return repos
}
