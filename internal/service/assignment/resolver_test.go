package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	assignmentdomain "shopfloor-service/internal/domain/assignment"
	"shopfloor-service/internal/domain/factory"
	xerrors "shopfloor-service/internal/pkg/errors"
	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type fakeRunner struct{}

func (fakeRunner) WithRetry(ctx context.Context, fn postgres.TxFunc) error {
	return fn(ctx, nil)
}

type fakeStore struct {
	current *assignmentdomain.ProcessAssignment

	created          *assignmentdomain.ProcessAssignment
	updatedMaterials int
	switchedTo       int64
}

func (f *fakeStore) GetForUpdate(ctx context.Context, tx pgx.Tx, lineID, processID int64, workDate time.Time) (*assignmentdomain.ProcessAssignment, error) {
	if f.current == nil {
		return nil, xerrors.ErrNotFound
	}
	return f.current, nil
}

func (f *fakeStore) Create(ctx context.Context, tx pgx.Tx, a *assignmentdomain.ProcessAssignment) error {
	a.ID = 100
	f.created = a
	return nil
}

func (f *fakeStore) UpdateMaterials(ctx context.Context, tx pgx.Tx, id int64, materials int) error {
	f.updatedMaterials = materials
	return nil
}

func (f *fakeStore) SwitchAssignee(ctx context.Context, tx pgx.Tx, id, newEmployeeID int64) error {
	f.switchedTo = newEmployeeID
	return nil
}

func (f *fakeStore) ListByLine(ctx context.Context, lineID int64, workDate time.Time) ([]*assignmentdomain.ProcessAssignment, error) {
	if f.current == nil {
		return nil, nil
	}
	return []*assignmentdomain.ProcessAssignment{f.current}, nil
}

type outputCall struct {
	employeeID int64
	quantity   int
}

type fakeProduction struct {
	sideEffectErr error

	sideEffects []outputCall
	outputs     []outputCall
}

func (f *fakeProduction) RecordScanSideEffects(ctx context.Context, tx pgx.Tx, lineID, processID, employeeID int64, workDate time.Time, hour, quantity int) error {
	if f.sideEffectErr != nil {
		return f.sideEffectErr
	}
	f.sideEffects = append(f.sideEffects, outputCall{employeeID, quantity})
	return nil
}

func (f *fakeProduction) UpsertHourlyOutput(ctx context.Context, tx pgx.Tx, lineID, processID, employeeID int64, workDate time.Time, hour, quantity int) error {
	f.outputs = append(f.outputs, outputCall{employeeID, quantity})
	return nil
}

type fakeEmployees struct {
	byID map[int64]*factory.Employee
}

func (f *fakeEmployees) FindEmployeeByID(ctx context.Context, id int64) (*factory.Employee, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

type fakeAudit struct {
	actions []string
}

func (f *fakeAudit) RecordWithTx(ctx context.Context, tx pgx.Tx, identity *session.Identity, action, entity string, entityID int64, detail interface{}, ip string) error {
	f.actions = append(f.actions, action)
	return nil
}

type resolverFixture struct {
	svc        *Service
	store      *fakeStore
	production *fakeProduction
	audit      *fakeAudit
}

func newResolverFixture(t *testing.T, current *assignmentdomain.ProcessAssignment) *resolverFixture {
	t.Helper()
	store := &fakeStore{current: current}
	production := &fakeProduction{}
	audit := &fakeAudit{}
	employees := &fakeEmployees{byID: map[int64]*factory.Employee{
		1: {ID: 1, BadgeNo: "B-001", FullName: "Amina O.", Active: true},
		2: {ID: 2, BadgeNo: "B-002", FullName: "Kip T.", Active: true},
		9: {ID: 9, BadgeNo: "B-009", FullName: "Idle I.", Active: false},
	}}

	svc := NewService(fakeRunner{}, store, store, production, employees, audit, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 14, 20, 0, 0, time.UTC) }
	return &resolverFixture{svc: svc, store: store, production: production, audit: audit}
}

func identity() *session.Identity {
	return &session.Identity{UserID: 55, Username: "floor-lead", Role: "supervisor"}
}

func TestResolveScanAssignsVacantProcess(t *testing.T) {
	fx := newResolverFixture(t, nil)

	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 1, MaterialsAtLink: 40,
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("ResolveScan: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeSuccess {
		t.Fatalf("Outcome = %s, want success", res.Outcome)
	}
	if res.Employee == nil || res.Employee.ID != 1 {
		t.Errorf("Employee = %+v", res.Employee)
	}
	if fx.store.created == nil {
		t.Fatal("assignment not created")
	}
	if fx.store.created.MaterialsAtLink != 40 {
		t.Errorf("MaterialsAtLink = %d, want 40", fx.store.created.MaterialsAtLink)
	}
	if wd := fx.store.created.WorkDate; wd.Hour() != 0 || wd.Day() != 10 {
		t.Errorf("WorkDate = %v, want midnight of the scan day", wd)
	}
	if len(fx.production.sideEffects) != 1 || fx.production.sideEffects[0].employeeID != 1 {
		t.Errorf("side effects = %+v", fx.production.sideEffects)
	}
	if len(fx.audit.actions) != 1 || fx.audit.actions[0] != "assign" {
		t.Errorf("audit actions = %v", fx.audit.actions)
	}
}

func TestResolveScanSelfRescan(t *testing.T) {
	fx := newResolverFixture(t, &assignmentdomain.ProcessAssignment{
		ID: 100, LineID: 3, ProcessID: 12, EmployeeID: 1, QuantityCompleted: 25,
	})

	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 1, MaterialsAtLink: 60,
	}, "")
	if err != nil {
		t.Fatalf("ResolveScan: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeSuccess {
		t.Fatalf("Outcome = %s, want success", res.Outcome)
	}
	if fx.store.updatedMaterials != 60 {
		t.Errorf("updatedMaterials = %d, want 60", fx.store.updatedMaterials)
	}
	if fx.store.created != nil || fx.store.switchedTo != 0 {
		t.Error("self re-scan must not create or switch")
	}
}

func TestResolveScanRequiresConfirmation(t *testing.T) {
	fx := newResolverFixture(t, &assignmentdomain.ProcessAssignment{
		ID: 100, LineID: 3, ProcessID: 12, EmployeeID: 1, QuantityCompleted: 25,
	})

	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 2,
	}, "")
	if err != nil {
		t.Fatalf("conflict outcome must not surface an error: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeConfirmRequired {
		t.Fatalf("Outcome = %s, want confirm_change", res.Outcome)
	}
	if fx.store.switchedTo != 0 || len(fx.production.outputs) != 0 {
		t.Error("unconfirmed scan must not mutate anything")
	}
}

func TestResolveScanRequiresCloseOutQuantity(t *testing.T) {
	fx := newResolverFixture(t, &assignmentdomain.ProcessAssignment{
		ID: 100, LineID: 3, ProcessID: 12, EmployeeID: 1, QuantityCompleted: 25,
	})

	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 2, ConfirmChange: true,
	}, "")
	if err != nil {
		t.Fatalf("conflict outcome must not surface an error: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeQuantityRequired {
		t.Fatalf("Outcome = %s, want quantity_required", res.Outcome)
	}
	if fx.store.switchedTo != 0 {
		t.Error("switch happened without a close-out quantity")
	}
}

func TestResolveScanConfirmedSwitch(t *testing.T) {
	fx := newResolverFixture(t, &assignmentdomain.ProcessAssignment{
		ID: 100, LineID: 3, ProcessID: 12, EmployeeID: 1, QuantityCompleted: 25,
	})

	qty := 30
	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 2,
		ConfirmChange: true, QuantityCompleted: &qty,
	}, "")
	if err != nil {
		t.Fatalf("ResolveScan: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeSuccess {
		t.Fatalf("Outcome = %s, want success", res.Outcome)
	}
	if fx.store.switchedTo != 2 {
		t.Errorf("switchedTo = %d, want 2", fx.store.switchedTo)
	}
	// Close-out credits the outgoing assignee with the delta beyond the
	// running counter.
	if len(fx.production.outputs) != 1 {
		t.Fatalf("outputs = %+v, want one close-out", fx.production.outputs)
	}
	if got := fx.production.outputs[0]; got.employeeID != 1 || got.quantity != 5 {
		t.Errorf("close-out = %+v, want employee 1 qty 5", got)
	}
	if len(fx.audit.actions) != 1 || fx.audit.actions[0] != "reassign" {
		t.Errorf("audit actions = %v", fx.audit.actions)
	}
}

func TestResolveScanConfirmedSwitchNoNewOutput(t *testing.T) {
	fx := newResolverFixture(t, &assignmentdomain.ProcessAssignment{
		ID: 100, LineID: 3, ProcessID: 12, EmployeeID: 1, QuantityCompleted: 25,
	})

	// Close-out equal to the running counter: nothing new to credit.
	qty := 25
	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 2,
		ConfirmChange: true, QuantityCompleted: &qty,
	}, "")
	if err != nil {
		t.Fatalf("ResolveScan: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeSuccess {
		t.Fatalf("Outcome = %s, want success", res.Outcome)
	}
	if len(fx.production.outputs) != 0 {
		t.Errorf("outputs = %+v, want none", fx.production.outputs)
	}
}

func TestResolveScanUnknownEmployee(t *testing.T) {
	fx := newResolverFixture(t, nil)

	_, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 404,
	}, "")
	if !errors.Is(err, xerrors.ErrInvalidQRCode) {
		t.Fatalf("err = %v, want ErrInvalidQRCode", err)
	}
}

func TestResolveScanInactiveEmployee(t *testing.T) {
	fx := newResolverFixture(t, nil)

	_, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 9,
	}, "")
	if err == nil {
		t.Fatal("inactive employee must not be assignable")
	}
}

func TestResolveScanSideEffectFailureIsNonFatal(t *testing.T) {
	fx := newResolverFixture(t, nil)
	fx.production.sideEffectErr = errors.New("attendance table locked")

	res, err := fx.svc.ResolveScan(context.Background(), identity(), assignmentdomain.ScanInput{
		LineID: 3, ProcessID: 12, EmployeeID: 1,
	}, "")
	if err != nil {
		t.Fatalf("ResolveScan: %v", err)
	}
	if res.Outcome != assignmentdomain.OutcomeSuccess {
		t.Fatalf("Outcome = %s, want success despite side-effect failure", res.Outcome)
	}
	if fx.store.created == nil {
		t.Error("assignment decision must survive side-effect failure")
	}
}
