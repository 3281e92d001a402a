package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/events"
)

func newRequestService(w *world) RequestService {
	return NewRequestService(w.tx, w.requests, w.roles, w.soldiers, w.units, w.notificationService(), w.authz, testLogger)
}

func boolp(b bool) *bool { return &b }

func TestCreatePermissionRequestNotifiesChainManagersAndAdmins(t *testing.T) {
	w := newWorld()
	svc := newRequestService(w)

	req, err := svc.CreatePermissionRequest(context.Background(), memberID, &dto.CreatePermissionRequest{UIC: "WCCCC0", AccessLevel: "Recorder"})
	if err != nil {
		t.Fatalf("CreatePermissionRequest: %v", err)
	}
	if req.ID == 0 || req.AccessLevel != models.AccessRecorder {
		t.Fatalf("unexpected request %+v", req)
	}

	got := w.notifications.recipientsOf("requests Recorder access")
	want := []string{adminID, managerID}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recipients = %v, want %v", got, want)
	}
	if len(w.pusher.pushed[managerID]) != 1 {
		t.Errorf("manager should get a live push")
	}
	if len(w.mailer.sent) != 1 || w.mailer.sent[0].to != "admin@army.mil" {
		t.Errorf("only the opted-in admin should be emailed, got %+v", w.mailer.sent)
	}
	if keys := w.publisher.keys(); len(keys) != 1 || keys[0] != events.NotificationCreated {
		t.Errorf("published %v", keys)
	}
}

func TestCreatePermissionRequestUnknownUnit(t *testing.T) {
	w := newWorld()
	_, err := newRequestService(w).CreatePermissionRequest(context.Background(), memberID, &dto.CreatePermissionRequest{UIC: "WZZZZ0", AccessLevel: "Viewer"})
	if msg, _ := apperrors.MessageOf(err); msg != apperrors.MsgUnitNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateTransferRequestRejectsCurrentUnit(t *testing.T) {
	w := newWorld()
	_, err := newRequestService(w).CreateTransferRequest(context.Background(), managerID, &dto.CreateTransferRequest{SoldierID: memberID, GainingUIC: "WCCCC0"})
	if !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestAdjudicatePermissionsApproveUpsertsRole(t *testing.T) {
	w := newWorld()
	svc := newRequestService(w)
	ctx := context.Background()

	req, err := svc.CreatePermissionRequest(ctx, memberID, &dto.CreatePermissionRequest{UIC: "WBBBB0", AccessLevel: "Viewer"})
	if err != nil {
		t.Fatalf("CreatePermissionRequest: %v", err)
	}

	msg, err := svc.AdjudicatePermissions(ctx, managerID, &dto.AdjudicateRequest{RequestIDs: []int64{req.ID}, Approved: boolp(true)})
	if err != nil {
		t.Fatalf("AdjudicatePermissions: %v", err)
	}
	if msg != "Successfully approved 1 permission request(s)" {
		t.Errorf("message = %q", msg)
	}
	level, _ := w.roles.GetLevel(ctx, memberID, "WBBBB0")
	if level == nil || *level != models.AccessViewer {
		t.Fatalf("role not granted: %v", level)
	}
	if len(w.requests.permissions) != 0 {
		t.Errorf("adjudicated request should be removed")
	}
	if got := w.notifications.recipientsOf("Permission Request approved"); !reflect.DeepEqual(got, []string{memberID}) {
		t.Errorf("approval recipients = %v", got)
	}

	// A second request for a higher level updates the existing role.
	req, _ = svc.CreatePermissionRequest(ctx, memberID, &dto.CreatePermissionRequest{UIC: "WBBBB0", AccessLevel: "Manager"})
	if _, err := svc.AdjudicatePermissions(ctx, managerID, &dto.AdjudicateRequest{RequestIDs: []int64{req.ID}, Approved: boolp(true)}); err != nil {
		t.Fatalf("AdjudicatePermissions: %v", err)
	}
	roles, _ := w.roles.ListByUser(ctx, memberID)
	if len(roles) != 1 || roles[0].AccessLevel != models.AccessManager {
		t.Errorf("roles = %+v", roles)
	}
}

func TestAdjudicatePermissionsOutsideManagedUnits(t *testing.T) {
	w := newWorld()
	svc := newRequestService(w)
	ctx := context.Background()

	req, _ := svc.CreatePermissionRequest(ctx, memberID, &dto.CreatePermissionRequest{UIC: "WDDDD0", AccessLevel: "Viewer"})

	_, err := svc.AdjudicatePermissions(ctx, managerID, &dto.AdjudicateRequest{RequestIDs: []int64{req.ID}, Approved: boolp(false)})
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	_, err = svc.AdjudicatePermissions(ctx, managerID, &dto.AdjudicateRequest{Approved: boolp(true)})
	if msg, _ := apperrors.MessageOf(err); msg != "request_ids cannot be empty" {
		t.Fatalf("err = %v", err)
	}
}

func TestAdjudicateTransfersMovesSoldier(t *testing.T) {
	w := newWorld()
	svc := newRequestService(w)
	ctx := context.Background()

	transfer, err := svc.CreateTransferRequest(ctx, adminID, &dto.CreateTransferRequest{SoldierID: outsiderID, GainingUIC: "WCCCC0"})
	if err != nil {
		t.Fatalf("CreateTransferRequest: %v", err)
	}

	received, err := svc.ListTransferRequests(ctx, managerID)
	if err != nil {
		t.Fatalf("ListTransferRequests: %v", err)
	}
	if len(received.ReceivedRequests) != 1 || len(received.SentRequests) != 0 {
		t.Fatalf("manager of gaining unit should see one received request, got %+v", received)
	}

	msg, err := svc.AdjudicateTransfers(ctx, managerID, &dto.AdjudicateRequest{RequestIDs: []int64{transfer.ID}, Approved: boolp(true)})
	if err != nil {
		t.Fatalf("AdjudicateTransfers: %v", err)
	}
	if msg != "Successfully approved 1 transfer request(s)" {
		t.Errorf("message = %q", msg)
	}
	if got := w.soldiers.soldiers[outsiderID].UnitUIC; got != "WCCCC0" {
		t.Errorf("soldier unit = %s", got)
	}
	if len(w.requests.transfers) != 0 {
		t.Errorf("transfer requests should be cleared")
	}
}

func TestDeleteRoleRequiresManager(t *testing.T) {
	w := newWorld()
	svc := newRequestService(w)
	ctx := context.Background()

	err := svc.DeleteRole(ctx, managerID, 2)
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if err := svc.DeleteRole(ctx, adminID, 2); err != nil {
		t.Fatalf("admin DeleteRole: %v", err)
	}
	if roles, _ := w.roles.ListByUser(ctx, viewerID); len(roles) != 0 {
		t.Errorf("role not deleted")
	}
}

func TestUserRolesFiltersToManagedUnits(t *testing.T) {
	w := newWorld()
	w.roles.roles = append(w.roles.roles, &models.UserRole{ID: 3, UserID: memberID, UnitUIC: "WCCCC0", AccessLevel: models.AccessRecorder},
		&models.UserRole{ID: 4, UserID: memberID, UnitUIC: "WDDDD0", AccessLevel: models.AccessViewer})
	svc := newRequestService(w)

	roles, err := svc.UserRoles(context.Background(), managerID, memberID)
	if err != nil {
		t.Fatalf("UserRoles: %v", err)
	}
	if len(roles) != 1 || roles[0].ID != 3 {
		t.Fatalf("roles = %+v", roles)
	}

	own, _ := svc.UserRoles(context.Background(), memberID, memberID)
	if len(own) != 2 {
		t.Errorf("user should see all own roles, got %d", len(own))
	}
}

func TestCountsForAdmin(t *testing.T) {
	w := newWorld()
	svc := newRequestService(w)
	ctx := context.Background()
	_, _ = svc.CreatePermissionRequest(ctx, memberID, &dto.CreatePermissionRequest{UIC: "WDDDD0", AccessLevel: "Viewer"})

	counts, err := svc.Counts(ctx, adminID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.PermissionRequestsCount != 1 {
		t.Errorf("permission count = %d", counts.PermissionRequestsCount)
	}
}
