package importerhandlers

import (
	"context"

	"github.com/google/uuid"

	importerservice "github.com/combine-hq/combine-server/app/modules/importer/application"
	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	"github.com/combine-hq/combine-server/internal/results"
)

// FakeService implements importerservice.Service with overridable funcs.
// Unset funcs return an empty success so handler plumbing tests stay short.
type FakeService struct {
	StartSessionFunc       func(ctx context.Context, eventID, actorID string, mode domain.ImportMode) (results.OperationResult, error)
	ResumeSessionFunc      func(ctx context.Context, eventID, actorID string) (results.OperationResult, error)
	DiscardDraftFunc       func(ctx context.Context, eventID string) (results.OperationResult, error)
	ProvideSourceFunc      func(ctx context.Context, sessionID uuid.UUID, input importerservice.SourceInput) (results.OperationResult, error)
	SelectSheetFunc        func(ctx context.Context, sessionID uuid.UUID, sheetName string) (results.OperationResult, error)
	GetSessionFunc         func(ctx context.Context, sessionID uuid.UUID) (*domain.ImportSession, error)
	SetColumnMappingFunc   func(ctx context.Context, sessionID uuid.UUID, column, targetKey string) error
	EditRowFunc            func(ctx context.Context, sessionID uuid.UUID, rowID int, column, value string) error
	SetRowStrategyFunc     func(ctx context.Context, sessionID uuid.UUID, rowID int, strategy domain.MergeStrategy) error
	SetConflictDefaultFunc func(ctx context.Context, sessionID uuid.UUID, strategy domain.MergeStrategy) error
	AcknowledgeGuardFunc   func(ctx context.Context, sessionID uuid.UUID, code domain.GuardCode) error
	BackToInputFunc        func(ctx context.Context, sessionID uuid.UUID) error
	CloseSessionFunc       func(ctx context.Context, sessionID uuid.UUID) error
	PreflightFunc          func(ctx context.Context, sessionID uuid.UUID) ([]domain.GuardIssue, error)
	SubmitFunc             func(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error)
	RevertFunc             func(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error)
	GetHistoryFunc         func(ctx context.Context, eventID string, limit int) (results.OperationResult, error)
}

func (f *FakeService) StartSession(ctx context.Context, eventID, actorID string, mode domain.ImportMode) (results.OperationResult, error) {
	if f.StartSessionFunc != nil {
		return f.StartSessionFunc(ctx, eventID, actorID, mode)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) ResumeSession(ctx context.Context, eventID, actorID string) (results.OperationResult, error) {
	if f.ResumeSessionFunc != nil {
		return f.ResumeSessionFunc(ctx, eventID, actorID)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) DiscardDraft(ctx context.Context, eventID string) (results.OperationResult, error) {
	if f.DiscardDraftFunc != nil {
		return f.DiscardDraftFunc(ctx, eventID)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) ProvideSource(ctx context.Context, sessionID uuid.UUID, input importerservice.SourceInput) (results.OperationResult, error) {
	if f.ProvideSourceFunc != nil {
		return f.ProvideSourceFunc(ctx, sessionID, input)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) SelectSheet(ctx context.Context, sessionID uuid.UUID, sheetName string) (results.OperationResult, error) {
	if f.SelectSheetFunc != nil {
		return f.SelectSheetFunc(ctx, sessionID, sheetName)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ImportSession, error) {
	if f.GetSessionFunc != nil {
		return f.GetSessionFunc(ctx, sessionID)
	}
	return &domain.ImportSession{ID: sessionID}, nil
}

func (f *FakeService) SetColumnMapping(ctx context.Context, sessionID uuid.UUID, column, targetKey string) error {
	if f.SetColumnMappingFunc != nil {
		return f.SetColumnMappingFunc(ctx, sessionID, column, targetKey)
	}
	return nil
}

func (f *FakeService) EditRow(ctx context.Context, sessionID uuid.UUID, rowID int, column, value string) error {
	if f.EditRowFunc != nil {
		return f.EditRowFunc(ctx, sessionID, rowID, column, value)
	}
	return nil
}

func (f *FakeService) SetRowStrategy(ctx context.Context, sessionID uuid.UUID, rowID int, strategy domain.MergeStrategy) error {
	if f.SetRowStrategyFunc != nil {
		return f.SetRowStrategyFunc(ctx, sessionID, rowID, strategy)
	}
	return nil
}

func (f *FakeService) SetConflictDefault(ctx context.Context, sessionID uuid.UUID, strategy domain.MergeStrategy) error {
	if f.SetConflictDefaultFunc != nil {
		return f.SetConflictDefaultFunc(ctx, sessionID, strategy)
	}
	return nil
}

func (f *FakeService) AcknowledgeGuard(ctx context.Context, sessionID uuid.UUID, code domain.GuardCode) error {
	if f.AcknowledgeGuardFunc != nil {
		return f.AcknowledgeGuardFunc(ctx, sessionID, code)
	}
	return nil
}

func (f *FakeService) BackToInput(ctx context.Context, sessionID uuid.UUID) error {
	if f.BackToInputFunc != nil {
		return f.BackToInputFunc(ctx, sessionID)
	}
	return nil
}

func (f *FakeService) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	if f.CloseSessionFunc != nil {
		return f.CloseSessionFunc(ctx, sessionID)
	}
	return nil
}

func (f *FakeService) Preflight(ctx context.Context, sessionID uuid.UUID) ([]domain.GuardIssue, error) {
	if f.PreflightFunc != nil {
		return f.PreflightFunc(ctx, sessionID)
	}
	return nil, nil
}

func (f *FakeService) Submit(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error) {
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, sessionID)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) Revert(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error) {
	if f.RevertFunc != nil {
		return f.RevertFunc(ctx, sessionID)
	}
	return results.SuccessResult(nil), nil
}

func (f *FakeService) GetHistory(ctx context.Context, eventID string, limit int) (results.OperationResult, error) {
	if f.GetHistoryFunc != nil {
		return f.GetHistoryFunc(ctx, eventID, limit)
	}
	return results.SuccessResult(nil), nil
}
