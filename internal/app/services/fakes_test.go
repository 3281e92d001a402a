package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/repositories"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/filestorage"
	"github.com/ai2c/amap/internal/pkg/hierarchy"
	"github.com/ai2c/amap/internal/pkg/websocket"
	"github.com/rs/zerolog"
)

// In-memory stand-ins for the repositories. They keep just enough behavior for
// the services under test.

var testLogger = zerolog.Nop()

type fakeTx struct{ calls int }

func (f *fakeTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// --- units ---

type fakeUnits struct {
	units      map[string]*models.Unit
	lastFilter repositories.UnitFilter
}

func newFakeUnits(units ...*models.Unit) *fakeUnits {
	f := &fakeUnits{units: make(map[string]*models.Unit)}
	for _, u := range units {
		f.units[u.UIC] = u
	}
	return f
}

func (f *fakeUnits) GetByUIC(_ context.Context, uic string) (*models.Unit, error) {
	u, ok := f.units[uic]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
	}
	return u, nil
}

func (f *fakeUnits) FindByShortName(_ context.Context, shortName string) (*models.Unit, error) {
	for _, u := range f.units {
		if u.ShortName == shortName {
			return u, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
}

func (f *fakeUnits) Exists(_ context.Context, uic string) (bool, error) {
	_, ok := f.units[uic]
	return ok, nil
}

func (f *fakeUnits) GetMany(_ context.Context, uics []string) ([]*models.Unit, error) {
	out := []*models.Unit{}
	for _, uic := range uics {
		if u, ok := f.units[uic]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUnits) List(_ context.Context, filter repositories.UnitFilter) ([]*models.Unit, int64, error) {
	f.lastFilter = filter
	out := []*models.Unit{}
	for _, uic := range f.sortedUICs() {
		u := f.units[uic]
		if filter.TaskForceOnly && !u.IsTaskForce() {
			continue
		}
		if filter.UICs != nil && !toSet(filter.UICs)[uic] {
			continue
		}
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUnits) Create(_ context.Context, u *models.Unit) error {
	if _, ok := f.units[u.UIC]; ok {
		return apperrors.NewConflictError("unit exists")
	}
	f.units[u.UIC] = u
	return nil
}

func (f *fakeUnits) UpdateAttributes(_ context.Context, u *models.Unit) error {
	f.units[u.UIC] = u
	return nil
}

func (f *fakeUnits) SetParent(_ context.Context, uic string, parent *string) error {
	u, ok := f.units[uic]
	if !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgUnitNotFound)
	}
	u.ParentUIC = parent
	return nil
}

func (f *fakeUnits) SetCompo(_ context.Context, uics []string, compo string) (int64, error) {
	var n int64
	for _, uic := range uics {
		if u, ok := f.units[uic]; ok && u.Compo != compo {
			u.Compo = compo
			n++
		}
	}
	return n, nil
}

func (f *fakeUnits) LockHierarchy(context.Context) error { return nil }

func (f *fakeUnits) ParentLinks(context.Context) (map[string]string, error) {
	links := make(map[string]string, len(f.units))
	for uic, u := range f.units {
		links[uic] = ""
		if u.ParentUIC != nil {
			links[uic] = *u.ParentUIC
		}
	}
	return links, nil
}

func (f *fakeUnits) StoredLineages(context.Context) (map[string]hierarchy.Lineage, error) {
	out := make(map[string]hierarchy.Lineage, len(f.units))
	for uic, u := range f.units {
		out[uic] = hierarchy.Lineage{
			ParentUICs:      u.ParentUICs,
			ChildUICs:       u.ChildUICs,
			SubordinateUICs: u.SubordinateUICs,
			Level:           u.Level,
		}
	}
	return out, nil
}

func (f *fakeUnits) UpdateLineages(_ context.Context, lineages map[string]hierarchy.Lineage, logicalTime int64) error {
	for uic, l := range lineages {
		u := f.units[uic]
		u.ParentUICs, u.ChildUICs, u.SubordinateUICs, u.Level = l.ParentUICs, l.ChildUICs, l.SubordinateUICs, l.Level
		u.AsOfLogicalTime = logicalTime
	}
	return nil
}

func (f *fakeUnits) AllUICs(context.Context) ([]string, error) {
	return f.sortedUICs(), nil
}

func (f *fakeUnits) sortedUICs() []string {
	out := make([]string, 0, len(f.units))
	for uic := range f.units {
		out = append(out, uic)
	}
	sort.Strings(out)
	return out
}

type fakeClock struct{ times map[string]int64 }

func (f *fakeClock) Bump(_ context.Context, model string) (int64, error) {
	if f.times == nil {
		f.times = make(map[string]int64)
	}
	f.times[model]++
	return f.times[model], nil
}

// --- soldiers ---

type fakeSoldiers struct {
	soldiers   map[string]*models.Soldier
	mos        map[string]*models.MOSCode
	additional map[string][]string
	logins     map[string]time.Time
	units      *fakeUnits
}

func (f *fakeSoldiers) GetByID(_ context.Context, id string) (*models.Soldier, error) {
	s, ok := f.soldiers[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
	}
	return s, nil
}

func (f *fakeSoldiers) GetMany(_ context.Context, ids []string) (map[string]*models.Soldier, error) {
	out := make(map[string]*models.Soldier)
	for _, id := range ids {
		if s, ok := f.soldiers[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeSoldiers) ListByUnits(_ context.Context, uics []string) ([]*models.Soldier, error) {
	set := toSet(uics)
	out := []*models.Soldier{}
	for _, id := range f.sortedIDs() {
		if s := f.soldiers[id]; set[s.UnitUIC] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSoldiers) ListWithLogin(context.Context) ([]*models.Soldier, error) {
	out := []*models.Soldier{}
	for _, id := range f.sortedIDs() {
		if _, ok := f.logins[id]; ok {
			out = append(out, f.soldiers[id])
		}
	}
	return out, nil
}

func (f *fakeSoldiers) AdminIDs(context.Context) ([]string, error) {
	out := []string{}
	for _, id := range f.sortedIDs() {
		if f.soldiers[id].IsAdmin {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeSoldiers) ListMaintainers(_ context.Context, uics []string) ([]repositories.MaintainerRow, error) {
	set := toSet(uics)
	out := []repositories.MaintainerRow{}
	for _, id := range f.sortedIDs() {
		s := f.soldiers[id]
		if !set[s.UnitUIC] || !s.IsMaintainer {
			continue
		}
		row := repositories.MaintainerRow{Soldier: s}
		if f.units != nil {
			if u, ok := f.units.units[s.UnitUIC]; ok {
				row.UnitShortName = u.ShortName
			}
		}
		if s.PrimaryMOS != nil {
			if m, ok := f.mos[*s.PrimaryMOS]; ok {
				row.AMTP = m.AMTP
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeSoldiers) Create(_ context.Context, s *models.Soldier) error {
	if _, ok := f.soldiers[s.UserID]; ok {
		return apperrors.NewConflictError("soldier exists")
	}
	f.soldiers[s.UserID] = s
	return nil
}

func (f *fakeSoldiers) Update(_ context.Context, s *models.Soldier) error {
	f.soldiers[s.UserID] = s
	return nil
}

func (f *fakeSoldiers) SetUnit(_ context.Context, id, uic string) error {
	s, ok := f.soldiers[id]
	if !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgSoldierNotFound)
	}
	s.UnitUIC = uic
	return nil
}

func (f *fakeSoldiers) SetReportingML(_ context.Context, id string, ml *string) error {
	if s, ok := f.soldiers[id]; ok {
		s.ReportingML = ml
	}
	return nil
}

func (f *fakeSoldiers) RecordLogin(_ context.Context, id string, at time.Time) error {
	if f.logins == nil {
		f.logins = make(map[string]time.Time)
	}
	f.logins[id] = at
	return nil
}

func (f *fakeSoldiers) LastLogins(_ context.Context, ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for _, id := range ids {
		if t, ok := f.logins[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (f *fakeSoldiers) ListMOS(_ context.Context, kind string) ([]*models.MOSCode, error) {
	out := []*models.MOSCode{}
	for _, m := range f.mos {
		if kind == repositories.MOSKindAMTP && !m.AMTP {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MOS < out[j].MOS })
	return out, nil
}

func (f *fakeSoldiers) MOSExists(_ context.Context, mos string) (bool, error) {
	_, ok := f.mos[mos]
	return ok, nil
}

func (f *fakeSoldiers) UpsertMOS(_ context.Context, m *models.MOSCode) error {
	f.mos[m.MOS] = m
	return nil
}

func (f *fakeSoldiers) AdditionalMOS(_ context.Context, id string) ([]string, error) {
	return append([]string{}, f.additional[id]...), nil
}

func (f *fakeSoldiers) ReplaceAdditionalMOS(_ context.Context, id string, codes []string) error {
	if f.additional == nil {
		f.additional = make(map[string][]string)
	}
	f.additional[id] = append([]string{}, codes...)
	return nil
}

func (f *fakeSoldiers) sortedIDs() []string {
	out := make([]string, 0, len(f.soldiers))
	for id := range f.soldiers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// --- roles and requests ---

type fakeRoles struct {
	roles  []*models.UserRole
	nextID int64
}

func (f *fakeRoles) ListByUser(_ context.Context, userID string) ([]*models.UserRole, error) {
	out := []*models.UserRole{}
	for _, r := range f.roles {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoles) ListByUnitsAndLevel(_ context.Context, uics []string, level models.AccessLevel) ([]*models.UserRole, error) {
	set := toSet(uics)
	out := []*models.UserRole{}
	for _, r := range f.roles {
		if set[r.UnitUIC] && r.AccessLevel == level {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoles) UserIDsWithLevels(_ context.Context, levels []models.AccessLevel) ([]string, error) {
	var ids []string
	for _, r := range f.roles {
		for _, l := range levels {
			if r.AccessLevel == l {
				ids = append(ids, r.UserID)
			}
		}
	}
	return dedupe(ids), nil
}

func (f *fakeRoles) GetByID(_ context.Context, id int64) (*models.UserRole, error) {
	for _, r := range f.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("User Role does not exist.")
}

func (f *fakeRoles) Upsert(_ context.Context, userID, uic string, level models.AccessLevel) (*models.UserRole, error) {
	for _, r := range f.roles {
		if r.UserID == userID && r.UnitUIC == uic {
			r.AccessLevel = level
			return r, nil
		}
	}
	f.nextID++
	r := &models.UserRole{ID: f.nextID + 100, UserID: userID, UnitUIC: uic, AccessLevel: level}
	f.roles = append(f.roles, r)
	return r, nil
}

func (f *fakeRoles) Delete(_ context.Context, id int64) error {
	for i, r := range f.roles {
		if r.ID == id {
			f.roles = append(f.roles[:i], f.roles[i+1:]...)
			return nil
		}
	}
	return apperrors.NewResourceNotFoundError("User Role does not exist.")
}

func (f *fakeRoles) GetLevel(_ context.Context, userID, uic string) (*models.AccessLevel, error) {
	for _, r := range f.roles {
		if r.UserID == userID && r.UnitUIC == uic {
			level := r.AccessLevel
			return &level, nil
		}
	}
	return nil, nil
}

type fakeRequests struct {
	permissions []*models.UserRequest
	transfers   []*models.SoldierTransferRequest
	nextID      int64
}

func (f *fakeRequests) CreatePermission(_ context.Context, req *models.UserRequest) error {
	f.nextID++
	req.ID = f.nextID
	f.permissions = append(f.permissions, req)
	return nil
}

func (f *fakeRequests) ListPermissionsByUnits(_ context.Context, uics []string) ([]*models.UserRequest, error) {
	set := toSet(uics)
	out := []*models.UserRequest{}
	for _, r := range f.permissions {
		if set[r.UIC] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) ListPermissionsByIDs(_ context.Context, ids []int64) ([]*models.UserRequest, error) {
	set := idSet(ids)
	out := []*models.UserRequest{}
	for _, r := range f.permissions {
		if set[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) CountPermissionsByUnits(ctx context.Context, uics []string) (int64, error) {
	list, _ := f.ListPermissionsByUnits(ctx, uics)
	return int64(len(list)), nil
}

func (f *fakeRequests) HasOpenPermissions(_ context.Context, userID string) (bool, error) {
	for _, r := range f.permissions {
		if r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequests) DeletePermissions(_ context.Context, ids []int64) error {
	set := idSet(ids)
	kept := f.permissions[:0]
	for _, r := range f.permissions {
		if !set[r.ID] {
			kept = append(kept, r)
		}
	}
	f.permissions = kept
	return nil
}

func (f *fakeRequests) CreateTransfer(_ context.Context, req *models.SoldierTransferRequest) error {
	for _, r := range f.transfers {
		if r.SoldierID == req.SoldierID {
			return apperrors.NewConflictError("Soldier already has a transfer request.")
		}
	}
	f.nextID++
	req.ID = f.nextID
	f.transfers = append(f.transfers, req)
	return nil
}

func (f *fakeRequests) ListTransfersTouchingUnits(_ context.Context, uics []string) ([]*models.SoldierTransferRequest, error) {
	return f.transfers, nil
}

func (f *fakeRequests) ListTransfersByRequester(_ context.Context, requesterID string) ([]*models.SoldierTransferRequest, error) {
	out := []*models.SoldierTransferRequest{}
	for _, r := range f.transfers {
		if r.RequesterID == requesterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) ListTransfersByIDs(_ context.Context, ids []int64) ([]*models.SoldierTransferRequest, error) {
	set := idSet(ids)
	out := []*models.SoldierTransferRequest{}
	for _, r := range f.transfers {
		if set[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) CountTransfersTouchingUnits(_ context.Context, uics []string) (int64, error) {
	return int64(len(f.transfers)), nil
}

func (f *fakeRequests) DeleteTransfers(_ context.Context, ids []int64) error {
	set := idSet(ids)
	kept := f.transfers[:0]
	for _, r := range f.transfers {
		if !set[r.ID] {
			kept = append(kept, r)
		}
	}
	f.transfers = kept
	return nil
}

func (f *fakeRequests) DeleteTransfersForSoldier(_ context.Context, soldierID string) error {
	kept := f.transfers[:0]
	for _, r := range f.transfers {
		if r.SoldierID != soldierID {
			kept = append(kept, r)
		}
	}
	f.transfers = kept
	return nil
}

// --- flags ---

type fakeFlags struct {
	flags  map[int64]*models.SoldierFlag
	nextID int64
}

func newFakeFlags() *fakeFlags {
	return &fakeFlags{flags: make(map[int64]*models.SoldierFlag)}
}

func (f *fakeFlags) Create(_ context.Context, flag *models.SoldierFlag) error {
	f.nextID++
	flag.ID = f.nextID
	f.flags[flag.ID] = flag
	return nil
}

func (f *fakeFlags) GetByID(_ context.Context, id int64) (*models.SoldierFlag, error) {
	flag, ok := f.flags[id]
	if !ok || flag.FlagDeleted {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgFlagNotFound)
	}
	return flag, nil
}

func (f *fakeFlags) Update(_ context.Context, flag *models.SoldierFlag) error {
	f.flags[flag.ID] = flag
	return nil
}

func (f *fakeFlags) SoftDelete(_ context.Context, id int64, modifiedBy string) error {
	flag, ok := f.flags[id]
	if !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgFlagNotFound)
	}
	flag.FlagDeleted = true
	flag.LastModifiedBy = &modifiedBy
	return nil
}

func (f *fakeFlags) ListForSoldiers(_ context.Context, ids []string) ([]*models.SoldierFlag, error) {
	set := toSet(ids)
	out := []*models.SoldierFlag{}
	for _, id := range f.sortedIDs() {
		flag := f.flags[id]
		if !flag.FlagDeleted && flag.SoldierID != nil && set[*flag.SoldierID] {
			out = append(out, flag)
		}
	}
	return out, nil
}

func (f *fakeFlags) ListForUnits(_ context.Context, uics []string) ([]*models.SoldierFlag, error) {
	set := toSet(uics)
	out := []*models.SoldierFlag{}
	for _, id := range f.sortedIDs() {
		flag := f.flags[id]
		if !flag.FlagDeleted && flag.SoldierID == nil && flag.UnitUIC != nil && set[*flag.UnitUIC] {
			out = append(out, flag)
		}
	}
	return out, nil
}

func (f *fakeFlags) sortedIDs() []int64 {
	out := make([]int64, 0, len(f.flags))
	for id := range f.flags {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// --- designations ---

type fakeDesignations struct {
	types       []*models.Designation
	assignments map[int64]*models.SoldierDesignation
	nextID      int64
}

func newFakeDesignations() *fakeDesignations {
	return &fakeDesignations{
		types: []*models.Designation{
			{ID: 1, Type: "QC", Description: strp("Quality Control")},
			{ID: 2, Type: "Safety", Description: strp("Safety Officer")},
		},
		assignments: make(map[int64]*models.SoldierDesignation),
	}
}

func (f *fakeDesignations) ListTypes(context.Context) ([]*models.Designation, error) {
	return f.types, nil
}

func (f *fakeDesignations) FindType(_ context.Context, designationType string) (*models.Designation, error) {
	for _, d := range f.types {
		if d.Type == designationType {
			return d, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError(apperrors.MsgDesignationNotFound)
}

func (f *fakeDesignations) Create(_ context.Context, d *models.SoldierDesignation) error {
	f.nextID++
	d.ID = f.nextID
	f.assignments[d.ID] = d
	return nil
}

func (f *fakeDesignations) GetByID(_ context.Context, id int64) (*models.SoldierDesignation, error) {
	d, ok := f.assignments[id]
	if !ok || d.DesignationRemoved {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgDesignationNotFound)
	}
	return d, nil
}

func (f *fakeDesignations) Remove(_ context.Context, id int64, modifiedBy string) error {
	d, ok := f.assignments[id]
	if !ok || d.DesignationRemoved {
		return apperrors.NewResourceNotFoundError(apperrors.MsgDesignationNotFound)
	}
	d.DesignationRemoved = true
	d.LastModifiedBy = &modifiedBy
	return nil
}

func (f *fakeDesignations) ListForSoldiers(_ context.Context, ids []string) ([]*models.SoldierDesignation, error) {
	set := toSet(ids)
	return f.filter(func(d *models.SoldierDesignation) bool { return set[d.SoldierID] }), nil
}

func (f *fakeDesignations) ListForUnits(_ context.Context, uics []string) ([]*models.SoldierDesignation, error) {
	set := toSet(uics)
	return f.filter(func(d *models.SoldierDesignation) bool { return d.UnitUIC != nil && set[*d.UnitUIC] }), nil
}

func (f *fakeDesignations) filter(keep func(*models.SoldierDesignation) bool) []*models.SoldierDesignation {
	ids := make([]int64, 0, len(f.assignments))
	for id := range f.assignments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []*models.SoldierDesignation{}
	for _, id := range ids {
		if d := f.assignments[id]; !d.DesignationRemoved && keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// --- faults ---

type fakeFaults struct {
	faults      map[string]*models.Fault
	actions     map[string]*models.FaultAction
	maintainers []repositories.MaintainerLink
	roleRows    []repositories.FaultRoleRow
}

func newFakeFaults() *fakeFaults {
	return &fakeFaults{faults: make(map[string]*models.Fault), actions: make(map[string]*models.FaultAction)}
}

func (f *fakeFaults) GetFault(_ context.Context, id string) (*models.Fault, error) {
	fault, ok := f.faults[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgFaultNotFound)
	}
	return fault, nil
}

func (f *fakeFaults) ListActions(_ context.Context, faultIDs []string) ([]*models.FaultAction, error) {
	set := toSet(faultIDs)
	out := []*models.FaultAction{}
	for _, id := range sortedKeys(f.actions) {
		if a := f.actions[id]; set[a.FaultID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeFaults) ListMaintainers(_ context.Context, actionIDs []string) ([]repositories.MaintainerLink, error) {
	set := toSet(actionIDs)
	out := []repositories.MaintainerLink{}
	for _, l := range f.maintainers {
		if set[l.FaultActionID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeFaults) SoldierFaultRoles(_ context.Context, userID string) ([]repositories.FaultRoleRow, error) {
	return f.roleRows, nil
}

func (f *fakeFaults) FaultsMaintainedInWindow(_ context.Context, userID string, from, to time.Time) ([]*models.Fault, error) {
	maintained := make(map[string]bool)
	for _, l := range f.maintainers {
		if l.SoldierID == userID {
			if a, ok := f.actions[l.FaultActionID]; ok {
				maintained[a.FaultID] = true
			}
		}
	}
	out := []*models.Fault{}
	for _, id := range sortedKeys(f.faults) {
		fault := f.faults[id]
		if maintained[id] && !fault.DiscoveryDateTime.Before(from) && fault.DiscoveryDateTime.Before(to) {
			out = append(out, fault)
		}
	}
	return out, nil
}

func (f *fakeFaults) ActionsMaintainedBy(_ context.Context, userID string, faultIDs []string) ([]*models.FaultAction, error) {
	set := toSet(faultIDs)
	mine := make(map[string]bool)
	for _, l := range f.maintainers {
		if l.SoldierID == userID {
			mine[l.FaultActionID] = true
		}
	}
	out := []*models.FaultAction{}
	for _, id := range sortedKeys(f.actions) {
		if a := f.actions[id]; mine[id] && set[a.FaultID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeFaults) ExistingFaultIDs(_ context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := f.faults[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeFaults) ExistingActionIDs(_ context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := f.actions[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeFaults) CreateFault(_ context.Context, fault *models.Fault) error {
	f.faults[fault.ID] = fault
	return nil
}

func (f *fakeFaults) UpdateFault(_ context.Context, fault *models.Fault) error {
	f.faults[fault.ID] = fault
	return nil
}

func (f *fakeFaults) CreateAction(_ context.Context, a *models.FaultAction) error {
	f.actions[a.ID] = a
	return nil
}

func (f *fakeFaults) EnsureMaintainer(_ context.Context, actionID, soldierID string, manHours float64) (bool, error) {
	for _, l := range f.maintainers {
		if l.FaultActionID == actionID && l.SoldierID == soldierID {
			return false, nil
		}
	}
	f.maintainers = append(f.maintainers, repositories.MaintainerLink{FaultActionID: actionID, SoldierID: soldierID, ManHours: manHours})
	return true, nil
}

// --- events ---

type fakeEvents struct {
	lookups   map[string][]*models.Lookup
	locations []*models.TCSLocation
	tasks     []*models.Task
	events    map[int64]*models.Event
	taskLinks map[int64][]models.EventTask
	withDocs  map[int64]bool
	nextID    int64
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{
		lookups:   make(map[string][]*models.Lookup),
		events:    make(map[int64]*models.Event),
		taskLinks: make(map[int64][]models.EventTask),
		withDocs:  make(map[int64]bool),
	}
}

func (f *fakeEvents) ListLookup(_ context.Context, table string) ([]*models.Lookup, error) {
	return f.lookups[table], nil
}

func (f *fakeEvents) LookupExists(_ context.Context, table, value string) (bool, error) {
	for _, l := range f.lookups[table] {
		if l.Type == value {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvents) UpsertLookup(_ context.Context, table string, l *models.Lookup) error {
	f.lookups[table] = append(f.lookups[table], l)
	return nil
}

func (f *fakeEvents) ListTCSLocations(context.Context) ([]*models.TCSLocation, error) {
	return f.locations, nil
}

func (f *fakeEvents) UpsertTCSLocation(_ context.Context, l *models.TCSLocation) error {
	f.locations = append(f.locations, l)
	return nil
}

func (f *fakeEvents) ListTasks(_ context.Context, numbers []string) ([]*models.Task, error) {
	if numbers == nil {
		return f.tasks, nil
	}
	set := toSet(numbers)
	out := []*models.Task{}
	for _, t := range f.tasks {
		if set[t.TaskNumber] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeEvents) UpsertTask(_ context.Context, t *models.Task) error {
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeEvents) Create(_ context.Context, e *models.Event) error {
	f.nextID++
	e.ID = f.nextID
	copied := *e
	f.events[e.ID] = &copied
	return nil
}

func (f *fakeEvents) GetByID(_ context.Context, id int64) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok || e.EventDeleted {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgEventNotFound)
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEvents) Update(_ context.Context, e *models.Event) error {
	if _, ok := f.events[e.ID]; !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgEventNotFound)
	}
	copied := *e
	f.events[e.ID] = &copied
	return nil
}

func (f *fakeEvents) ListBySoldier(_ context.Context, soldierID string) ([]*models.Event, error) {
	out := []*models.Event{}
	for _, e := range f.events {
		if e.SoldierID == soldierID && !e.EventDeleted {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeEvents) ReplaceTasks(_ context.Context, eventID int64, tasks []models.EventTask) error {
	if len(tasks) == 0 {
		delete(f.taskLinks, eventID)
		return nil
	}
	linked := make([]models.EventTask, 0, len(tasks))
	for _, t := range tasks {
		t.EventID = eventID
		linked = append(linked, t)
	}
	f.taskLinks[eventID] = linked
	return nil
}

func (f *fakeEvents) TasksFor(_ context.Context, ids []int64) (map[int64][]models.EventTask, error) {
	out := make(map[int64][]models.EventTask)
	for _, id := range ids {
		if t, ok := f.taskLinks[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (f *fakeEvents) EventsWithDocuments(_ context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, id := range ids {
		if f.withDocs[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeEvents) LatestMaintenanceLevel(_ context.Context, soldierID string) (*string, error) {
	var latest *models.Event
	for _, e := range f.events {
		if e.SoldierID != soldierID || e.EventDeleted || e.MaintenanceLevel == nil {
			continue
		}
		if latest == nil || e.Date.After(latest.Date) || (e.Date.Equal(latest.Date) && e.ID > latest.ID) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	ml := *latest.MaintenanceLevel
	return &ml, nil
}

func (f *fakeEvents) LatestAnnualGoDate(_ context.Context, soldierID string) (*time.Time, error) {
	var latest *time.Time
	for _, e := range f.events {
		if e.SoldierID != soldierID || e.EventDeleted || e.EventType != models.EventTypeEvaluation {
			continue
		}
		if e.EvaluationType == nil || *e.EvaluationType != models.EvaluationTypeAnnual || e.GoNoGo == nil || *e.GoNoGo != models.GO {
			continue
		}
		if latest == nil || e.Date.After(*latest) {
			d := e.Date
			latest = &d
		}
	}
	return latest, nil
}

// --- documents ---

type fakeDocuments struct {
	types       []*models.SupportingDocumentType
	counselings map[int64]*models.Counseling
	docs        map[int64]*models.SupportingDocument
	nextID      int64
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{
		counselings: make(map[int64]*models.Counseling),
		docs:        make(map[int64]*models.SupportingDocument),
	}
}

func (f *fakeDocuments) ListTypes(context.Context) ([]*models.SupportingDocumentType, error) {
	return f.types, nil
}

func (f *fakeDocuments) TypeExists(_ context.Context, docType string) (bool, error) {
	for _, t := range f.types {
		if t.Type == docType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocuments) UpsertType(_ context.Context, docType string) error {
	f.types = append(f.types, &models.SupportingDocumentType{ID: int64(len(f.types) + 1), Type: docType})
	return nil
}

func (f *fakeDocuments) CreateCounseling(_ context.Context, c *models.Counseling) error {
	f.nextID++
	c.ID = f.nextID
	f.counselings[c.ID] = c
	return nil
}

func (f *fakeDocuments) GetCounseling(_ context.Context, id int64) (*models.Counseling, error) {
	c, ok := f.counselings[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgCounselingNotFound)
	}
	return c, nil
}

func (f *fakeDocuments) ListCounselings(_ context.Context, soldierID string, ids []int64, visibleOnly bool) ([]*models.Counseling, error) {
	set := idSet(ids)
	out := []*models.Counseling{}
	for _, c := range f.counselings {
		if (soldierID != "" && c.SoldierID != soldierID) || (ids != nil && !set[c.ID]) || (visibleOnly && !c.VisibleToUser) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocuments) HideCounseling(_ context.Context, id int64) error {
	c, ok := f.counselings[id]
	if !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgCounselingNotFound)
	}
	c.VisibleToUser = false
	return nil
}

func (f *fakeDocuments) CreateSupportingDocument(_ context.Context, d *models.SupportingDocument) error {
	f.nextID++
	d.ID = f.nextID
	f.docs[d.ID] = d
	return nil
}

func (f *fakeDocuments) GetSupportingDocument(_ context.Context, id int64) (*models.SupportingDocument, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(apperrors.MsgDocumentNotFound)
	}
	return d, nil
}

func (f *fakeDocuments) ListSupportingDocuments(_ context.Context, soldierID string, ids []int64, visibleOnly bool) ([]*models.SupportingDocument, error) {
	set := idSet(ids)
	out := []*models.SupportingDocument{}
	for _, d := range f.docs {
		if (soldierID != "" && d.SoldierID != soldierID) || (ids != nil && !set[d.ID]) || (visibleOnly && !d.VisibleToUser) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocuments) UpdateSupportingDocument(_ context.Context, d *models.SupportingDocument) error {
	f.docs[d.ID] = d
	return nil
}

func (f *fakeDocuments) HideSupportingDocument(_ context.Context, id int64) error {
	d, ok := f.docs[id]
	if !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgDocumentNotFound)
	}
	d.VisibleToUser = false
	return nil
}

// --- notifications ---

type fakeNotifications struct {
	notifications map[int64]*models.Notification
	deliveries    []*models.SoldierNotification
	nextID        int64
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{notifications: make(map[int64]*models.Notification)}
}

func (f *fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	f.nextID++
	n.ID = f.nextID
	f.notifications[n.ID] = n
	return nil
}

func (f *fakeNotifications) Deliver(_ context.Context, notificationID int64, soldierIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(soldierIDs))
	for _, id := range soldierIDs {
		f.nextID++
		f.deliveries = append(f.deliveries, &models.SoldierNotification{
			ID:             f.nextID,
			SoldierID:      id,
			NotificationID: notificationID,
			Notification:   f.notifications[notificationID],
		})
		out[id] = f.nextID
	}
	return out, nil
}

func (f *fakeNotifications) ListForSoldier(_ context.Context, soldierID string) ([]*models.SoldierNotification, error) {
	out := []*models.SoldierNotification{}
	for i := len(f.deliveries) - 1; i >= 0; i-- {
		if d := f.deliveries[i]; d.SoldierID == soldierID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, soldierID string, id int64) error {
	for _, d := range f.deliveries {
		if d.ID == id && d.SoldierID == soldierID {
			d.NotificationRead = true
			return nil
		}
	}
	return apperrors.NewResourceNotFoundError(apperrors.MsgNotificationNotFound)
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, soldierID string) (int64, error) {
	var n int64
	for _, d := range f.deliveries {
		if d.SoldierID == soldierID && !d.NotificationRead {
			d.NotificationRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) recipientsOf(short string) []string {
	var out []string
	for _, d := range f.deliveries {
		if d.Notification != nil && strings.Contains(d.Notification.ShortDisplay, short) {
			out = append(out, d.SoldierID)
		}
	}
	sort.Strings(out)
	return out
}

// --- outbound collaborators ---

type fakePusher struct {
	mu     sync.Mutex
	pushed map[string][]*websocket.Message
}

func (f *fakePusher) Push(userID string, msg *websocket.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushed == nil {
		f.pushed = make(map[string][]*websocket.Message)
	}
	f.pushed[userID] = append(f.pushed[userID], msg)
}

type sentMail struct{ to, subject string }

type fakeMailer struct{ sent []sentMail }

func (f *fakeMailer) SendNotificationEmail(toEmail, toName, shortDisplay, verboseDisplay string) error {
	f.sent = append(f.sent, sentMail{to: toEmail, subject: shortDisplay})
	return nil
}

type published struct {
	key     string
	payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, key string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{key: key, payload: payload})
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.key)
	}
	return out
}

// fakeStorage keeps uploaded files in memory
type fakeStorage struct {
	files map[string][]byte
	n     int
}

var _ filestorage.FileStorage = (*fakeStorage)(nil)

func (f *fakeStorage) SaveFileWithPath(fh *multipart.FileHeader, subPath string) (*filestorage.StoredFile, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.SaveStream(file, fh.Filename, subPath)
}

func (f *fakeStorage) SaveStream(r io.Reader, filename, subPath string) (*filestorage.StoredFile, error) {
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.n++
	key := path.Join(subPath, strings.Repeat("f", f.n)+path.Ext(filename))
	f.files[key] = data
	return &filestorage.StoredFile{Key: key, URL: f.URL(key), OriginalName: filename, Size: int64(len(data))}, nil
}

func (f *fakeStorage) Open(key string) (io.ReadCloser, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) DeleteFile(key string) error {
	delete(f.files, key)
	return nil
}

func (f *fakeStorage) URL(key string) string { return "/uploads/" + key }

type fakeRaw struct {
	faults   []*models.RawFault
	actions  []*models.RawFaultAction
	soldiers []*models.RawSoldier
	since    time.Time
}

func (f *fakeRaw) FaultsSince(_ context.Context, since time.Time) ([]*models.RawFault, error) {
	f.since = since
	return f.faults, nil
}

func (f *fakeRaw) FaultActionsSince(_ context.Context, since time.Time) ([]*models.RawFaultAction, error) {
	return f.actions, nil
}

func (f *fakeRaw) Soldiers(context.Context) ([]*models.RawSoldier, error) {
	return f.soldiers, nil
}

// --- fixture ---

// Test users
const (
	adminID    = "1000000001"
	managerID  = "1000000002"
	memberID   = "1000000003"
	outsiderID = "1000000004"
	viewerID   = "1000000005"
)

// Unit tree:
//
//	WAAAA0 (BDE)
//	├── WBBBB0 (BN)
//	│   └── WCCCC0 (CO)
//	└── WDDDD0 (BN)
//	TRANS0 (holding unit)
type world struct {
	tx            *fakeTx
	units         *fakeUnits
	soldiers      *fakeSoldiers
	roles         *fakeRoles
	requests      *fakeRequests
	flags         *fakeFlags
	designations  *fakeDesignations
	faults        *fakeFaults
	events        *fakeEvents
	documents     *fakeDocuments
	notifications *fakeNotifications
	pusher        *fakePusher
	mailer        *fakeMailer
	publisher     *fakePublisher
	storage       *fakeStorage
	authz         *auth.AuthorizationService
}

func strp(s string) *string { return &s }

func unit(uic, short string, parent *string, parents, children, subs []string, level int) *models.Unit {
	return &models.Unit{
		UIC:             uic,
		ShortName:       short,
		DisplayName:     short + " Display",
		Echelon:         "BN",
		Compo:           models.CompoActive,
		ParentUIC:       parent,
		ParentUICs:      parents,
		ChildUICs:       children,
		SubordinateUICs: subs,
		Level:           level,
		StartDate:       models.DefaultUnitStartDate,
	}
}

func newWorld() *world {
	units := newFakeUnits(
		unit("WAAAA0", "1-BDE", nil, nil, []string{"WBBBB0", "WDDDD0"}, []string{"WBBBB0", "WDDDD0", "WCCCC0"}, 0),
		unit("WBBBB0", "1-BN", strp("WAAAA0"), []string{"WAAAA0"}, []string{"WCCCC0"}, []string{"WCCCC0"}, 1),
		unit("WCCCC0", "A-CO", strp("WBBBB0"), []string{"WBBBB0", "WAAAA0"}, nil, nil, 2),
		unit("WDDDD0", "2-BN", strp("WAAAA0"), []string{"WAAAA0"}, nil, nil, 1),
		unit("TRANS0", "HOLD", nil, nil, nil, nil, 0),
	)
	soldiers := &fakeSoldiers{
		soldiers: map[string]*models.Soldier{
			adminID:    {UserID: adminID, Rank: "COL", FirstName: "Ada", LastName: "Admin", UnitUIC: "WAAAA0", IsAdmin: true, DoDEmail: strp("admin@army.mil"), ReceiveEmails: true},
			managerID:  {UserID: managerID, Rank: "CPT", FirstName: "Max", LastName: "Manager", UnitUIC: "WBBBB0"},
			memberID:   {UserID: memberID, Rank: "SGT", FirstName: "Mia", LastName: "Member", UnitUIC: "WCCCC0", PrimaryMOS: strp("15R"), IsMaintainer: true},
			outsiderID: {UserID: outsiderID, Rank: "SPC", FirstName: "Oz", LastName: "Outsider", UnitUIC: "WDDDD0", PrimaryMOS: strp("15T"), IsMaintainer: true},
			viewerID:   {UserID: viewerID, Rank: "SSG", FirstName: "Vic", LastName: "Viewer", UnitUIC: "WDDDD0"},
		},
		mos: map[string]*models.MOSCode{
			"15R":   {MOS: "15R", MOSDescription: "Apache Repairer", AMTP: true},
			"15T":   {MOS: "15T", MOSDescription: "Black Hawk Repairer", AMTP: true},
			"15B":   {MOS: "15B", MOSDescription: "Powerplant Repairer", AMTP: true},
			"15B-O": {MOS: "15B-O", MOSDescription: "Powerplant Officer"},
			"92Y":   {MOS: "92Y", MOSDescription: "Supply"},
		},
		units: units,
	}
	roles := &fakeRoles{roles: []*models.UserRole{
		{ID: 1, UserID: managerID, UnitUIC: "WBBBB0", AccessLevel: models.AccessManager},
		{ID: 2, UserID: viewerID, UnitUIC: "WDDDD0", AccessLevel: models.AccessViewer},
	}}

	return &world{
		tx:            &fakeTx{},
		units:         units,
		soldiers:      soldiers,
		roles:         roles,
		requests:      &fakeRequests{},
		flags:         newFakeFlags(),
		designations:  newFakeDesignations(),
		faults:        newFakeFaults(),
		events:        newFakeEvents(),
		documents:     newFakeDocuments(),
		notifications: newFakeNotifications(),
		pusher:        &fakePusher{},
		mailer:        &fakeMailer{},
		publisher:     &fakePublisher{},
		storage:       &fakeStorage{},
		authz:         auth.NewAuthorizationService(soldiers, roles, units),
	}
}

func (w *world) notificationService() NotificationService {
	return NewNotificationService(w.tx, w.notifications, w.soldiers, w.roles, w.authz, w.pusher, w.mailer, w.publisher, testLogger)
}

func idSet(ids []int64) map[int64]bool {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedNow(s string) func() time.Time {
	return func() time.Time { return day(s).Add(12 * time.Hour) }
}
