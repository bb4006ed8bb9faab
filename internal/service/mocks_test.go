package service_test

import (
	"context"
	"time"

	"pulsehq.app/pulse/common/llm"
	"pulsehq.app/pulse/internal/model"
	"pulsehq.app/pulse/internal/store"
)

type mockFeatureStore struct {
	getByIDFn func(ctx context.Context, id string) (*model.Feature, error)
	listFn    func(ctx context.Context) ([]model.Feature, error)
	upsertFn  func(ctx context.Context, feature *model.Feature) error
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockFeatureStore) GetByID(ctx context.Context, id string) (*model.Feature, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockFeatureStore) List(ctx context.Context) ([]model.Feature, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockFeatureStore) Upsert(ctx context.Context, feature *model.Feature) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, feature)
	}
	return nil
}

func (m *mockFeatureStore) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockGroupStore struct {
	getByIDFn               func(ctx context.Context, id string) (*model.Group, error)
	listSinceFn             func(ctx context.Context, project string, since time.Time) ([]model.Group, error)
	updateAssignmentsFn     func(ctx context.Context, updates []store.AssignmentUpdate) error
	countUngroupedThreadsFn func(ctx context.Context, project string) (int, error)
	countThreadsSinceFn     func(ctx context.Context, project string, since time.Time) (int, error)
}

func (m *mockGroupStore) GetByID(ctx context.Context, id string) (*model.Group, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockGroupStore) ListSince(ctx context.Context, project string, since time.Time) ([]model.Group, error) {
	if m.listSinceFn != nil {
		return m.listSinceFn(ctx, project, since)
	}
	return nil, nil
}

func (m *mockGroupStore) UpdateAssignments(ctx context.Context, updates []store.AssignmentUpdate) error {
	if m.updateAssignmentsFn != nil {
		return m.updateAssignmentsFn(ctx, updates)
	}
	return nil
}

func (m *mockGroupStore) CountUngroupedThreads(ctx context.Context, project string) (int, error) {
	if m.countUngroupedThreadsFn != nil {
		return m.countUngroupedThreadsFn(ctx, project)
	}
	return 0, nil
}

func (m *mockGroupStore) CountThreadsSince(ctx context.Context, project string, since time.Time) (int, error) {
	if m.countThreadsSinceFn != nil {
		return m.countThreadsSinceFn(ctx, project, since)
	}
	return 0, nil
}

type mockIssueStore struct {
	getFn              func(ctx context.Context, project string, number int64) (*model.TrackedIssue, error)
	listOpenSinceFn    func(ctx context.Context, project string, since time.Time) ([]model.TrackedIssue, error)
	countOpenedSinceFn func(ctx context.Context, project string, since time.Time) (int, error)
	countClosedSinceFn func(ctx context.Context, project string, since time.Time) (int, error)
	upsertFn           func(ctx context.Context, issue *model.TrackedIssue) error
}

func (m *mockIssueStore) Get(ctx context.Context, project string, number int64) (*model.TrackedIssue, error) {
	if m.getFn != nil {
		return m.getFn(ctx, project, number)
	}
	return nil, store.ErrNotFound
}

func (m *mockIssueStore) ListOpenSince(ctx context.Context, project string, since time.Time) ([]model.TrackedIssue, error) {
	if m.listOpenSinceFn != nil {
		return m.listOpenSinceFn(ctx, project, since)
	}
	return nil, nil
}

func (m *mockIssueStore) CountOpenedSince(ctx context.Context, project string, since time.Time) (int, error) {
	if m.countOpenedSinceFn != nil {
		return m.countOpenedSinceFn(ctx, project, since)
	}
	return 0, nil
}

func (m *mockIssueStore) CountClosedSince(ctx context.Context, project string, since time.Time) (int, error) {
	if m.countClosedSinceFn != nil {
		return m.countClosedSinceFn(ctx, project, since)
	}
	return 0, nil
}

func (m *mockIssueStore) Upsert(ctx context.Context, issue *model.TrackedIssue) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, issue)
	}
	return nil
}

type mockChangeStore struct {
	listMergedSinceFn  func(ctx context.Context, project string, since time.Time) ([]model.MergedChange, error)
	countOpenedSinceFn func(ctx context.Context, project string, since time.Time) (int, error)
	countMergedSinceFn func(ctx context.Context, project string, since time.Time) (int, error)
	upsertFn           func(ctx context.Context, change *model.MergedChange) error
}

func (m *mockChangeStore) ListMergedSince(ctx context.Context, project string, since time.Time) ([]model.MergedChange, error) {
	if m.listMergedSinceFn != nil {
		return m.listMergedSinceFn(ctx, project, since)
	}
	return nil, nil
}

func (m *mockChangeStore) CountOpenedSince(ctx context.Context, project string, since time.Time) (int, error) {
	if m.countOpenedSinceFn != nil {
		return m.countOpenedSinceFn(ctx, project, since)
	}
	return 0, nil
}

func (m *mockChangeStore) CountMergedSince(ctx context.Context, project string, since time.Time) (int, error) {
	if m.countMergedSinceFn != nil {
		return m.countMergedSinceFn(ctx, project, since)
	}
	return 0, nil
}

func (m *mockChangeStore) Upsert(ctx context.Context, change *model.MergedChange) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, change)
	}
	return nil
}

type mockSessionStore struct {
	getLatestFn func(ctx context.Context, project string) (*model.Session, error)
	createFn    func(ctx context.Context, session *model.Session) error
	finishFn    func(ctx context.Context, id string, summary *string, endedAt time.Time) error
}

func (m *mockSessionStore) GetLatest(ctx context.Context, project string) (*model.Session, error) {
	if m.getLatestFn != nil {
		return m.getLatestFn(ctx, project)
	}
	return nil, store.ErrNotFound
}

func (m *mockSessionStore) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionStore) Finish(ctx context.Context, id string, summary *string, endedAt time.Time) error {
	if m.finishFn != nil {
		return m.finishFn(ctx, id, summary, endedAt)
	}
	return nil
}

type mockCodeMappingStore struct {
	listByFeatureFn func(ctx context.Context, featureID string) ([]model.CodeMapping, error)
	createFn        func(ctx context.Context, mapping *model.CodeMapping) error
}

func (m *mockCodeMappingStore) ListByFeature(ctx context.Context, featureID string) ([]model.CodeMapping, error) {
	if m.listByFeatureFn != nil {
		return m.listByFeatureFn(ctx, featureID)
	}
	return nil, nil
}

func (m *mockCodeMappingStore) Create(ctx context.Context, mapping *model.CodeMapping) error {
	if m.createFn != nil {
		return m.createFn(ctx, mapping)
	}
	return nil
}

func newStores() *store.Stores {
	return &store.Stores{
		Features:     &mockFeatureStore{},
		Groups:       &mockGroupStore{},
		Issues:       &mockIssueStore{},
		Changes:      &mockChangeStore{},
		Sessions:     &mockSessionStore{},
		CodeMappings: &mockCodeMappingStore{},
	}
}

type mockLLMClient struct {
	chatFn  func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	modelFn func() string
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, req, result)
	}
	return &llm.Response{}, nil
}

func (m *mockLLMClient) Model() string {
	if m.modelFn != nil {
		return m.modelFn()
	}
	return "mock-model"
}
