package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// MockProductsRepository is a mock implementation of ProductsRepositoryInterface
type MockProductsRepository struct {
	mock.Mock
}

func (m *MockProductsRepository) FindByEANs(ctx context.Context, eans []string) (map[string]*models.Product, error) {
	args := m.Called(ctx, eans)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Product), args.Error(1)
}

func (m *MockProductsRepository) BulkCreate(ctx context.Context, products []*models.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductsRepository) BulkUpdate(ctx context.Context, products []*models.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsRepository) List(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductsRepository) ListAll(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

var _ repository.ProductsRepositoryInterface = (*MockProductsRepository)(nil)

func strPtr(s string) *string {
	return &s
}

// candidate builds a normalized row the way the row normalizer emits them:
// one core property and one offer property so both routes stay observable.
func candidate(row int, ean, name string) *ProductCandidate {
	core := models.NewPropertyMap()
	core.Set("material", "steel")
	offer := models.NewPropertyMap()
	offer.Set("price", 19.5)
	return &ProductCandidate{
		Row:             row,
		EAN:             ean,
		Name:            name,
		CoreProperties:  core,
		OfferProperties: offer,
	}
}

// storedMatch is the persisted twin of a candidate: same identity fields, so
// reconciling the candidate against it must report no change.
func storedMatch(c *ProductCandidate) *models.Product {
	return &models.Product{
		ID:          uuid.New(),
		EAN:         c.EAN,
		Name:        c.Name,
		Description: c.Description,
		Properties:  c.CoreProperties.Clone(),
	}
}

// ============================================================================
// Reconcile Tests
// ============================================================================

func TestReconciler_CreatesNewProducts(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	candidates := []*ProductCandidate{
		candidate(2, "111", "Chair"),
		candidate(3, "222", "Table"),
	}

	var created []*models.Product
	mockProducts.On("FindByEANs", mock.Anything, []string{"111", "222"}).
		Return(map[string]*models.Product{}, nil)
	mockProducts.On("BulkCreate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).([]*models.Product)
		}).
		Return(nil)

	processed := map[string]struct{}{}
	result, err := reconciler.Reconcile(context.Background(), candidates, processed)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.NoChange)
	assert.Equal(t, 0, result.DuplicateSkips)
	assert.Empty(t, result.Errors)

	require.Len(t, created, 2)
	assert.Equal(t, "111", created[0].EAN)
	assert.Equal(t, "222", created[1].EAN)
	// IDs are assigned before the insert so the linker can use them.
	assert.NotEqual(t, uuid.Nil, created[0].ID)
	assert.NotEqual(t, uuid.Nil, created[1].ID)

	require.Len(t, result.Linkable, 2)
	assert.Equal(t, created[0].ID, result.Linkable[0].ProductID)
	assert.Equal(t, created[1].ID, result.Linkable[1].ProductID)
	assert.Equal(t, "19.5", result.Linkable[0].Properties.GetString("price"))

	assert.Contains(t, processed, "111")
	assert.Contains(t, processed, "222")
	mockProducts.AssertNotCalled(t, "BulkUpdate", mock.Anything, mock.Anything)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_DuplicateEANKeepsFirstOccurrence(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	candidates := []*ProductCandidate{
		candidate(2, "111", "Chair"),
		candidate(3, "222", "Table"),
		candidate(4, "111", "Chair v2"),
	}

	var created []*models.Product
	mockProducts.On("FindByEANs", mock.Anything, []string{"111", "222", "111"}).
		Return(map[string]*models.Product{}, nil)
	mockProducts.On("BulkCreate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).([]*models.Product)
		}).
		Return(nil)

	result, err := reconciler.Reconcile(context.Background(), candidates, map[string]struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.DuplicateSkips)
	require.Len(t, created, 2)
	assert.Equal(t, "Chair", created[0].Name)
	// The later row with the same EAN contributes nothing, not even a link.
	require.Len(t, result.Linkable, 2)
	assert.Equal(t, 2, result.Linkable[0].Row)
	assert.Equal(t, 3, result.Linkable[1].Row)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_UnchangedProductLeftAlone(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	c := candidate(2, "111", "Chair")
	prior := storedMatch(c)

	mockProducts.On("FindByEANs", mock.Anything, []string{"111"}).
		Return(map[string]*models.Product{"111": prior}, nil)

	result, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{c}, map[string]struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.NoChange)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Linkable, 1)
	assert.Equal(t, prior.ID, result.Linkable[0].ProductID)
	mockProducts.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)
	mockProducts.AssertNotCalled(t, "BulkUpdate", mock.Anything, mock.Anything)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_UpdatesChangedProduct(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	c := candidate(2, "111", "Chair")
	c.Description = strPtr("Padded seat")

	prior := &models.Product{
		ID:         uuid.New(),
		EAN:        "111",
		Name:       "Old Chair",
		Properties: models.PropertyMap{},
	}

	var updated []*models.Product
	mockProducts.On("FindByEANs", mock.Anything, []string{"111"}).
		Return(map[string]*models.Product{"111": prior}, nil)
	mockProducts.On("BulkUpdate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			updated = args.Get(1).([]*models.Product)
		}).
		Return(nil)

	result, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{c}, map[string]struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Created)
	require.Len(t, updated, 1)
	assert.Equal(t, prior.ID, updated[0].ID)
	assert.Equal(t, "Chair", updated[0].Name)
	require.NotNil(t, updated[0].Description)
	assert.Equal(t, "Padded seat", *updated[0].Description)
	assert.Equal(t, "steel", updated[0].Properties.GetString("material"))
	require.Len(t, result.Linkable, 1)
	assert.Equal(t, prior.ID, result.Linkable[0].ProductID)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_DescriptionOnlyChangeTriggersUpdate(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	c := candidate(2, "111", "Chair")
	c.Description = strPtr("Now with armrests")
	prior := storedMatch(c)
	prior.Description = nil

	mockProducts.On("FindByEANs", mock.Anything, []string{"111"}).
		Return(map[string]*models.Product{"111": prior}, nil)
	mockProducts.On("BulkUpdate", mock.Anything, mock.Anything).Return(nil)

	result, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{c}, map[string]struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.NoChange)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_SecondImportOfSameFileWritesNothing(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	candidates := []*ProductCandidate{
		candidate(2, "111", "Chair"),
		candidate(3, "222", "Table"),
	}

	var created []*models.Product
	mockProducts.On("FindByEANs", mock.Anything, []string{"111", "222"}).
		Return(map[string]*models.Product{}, nil).Once()
	mockProducts.On("BulkCreate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).([]*models.Product)
		}).
		Return(nil).Once()

	first, err := reconciler.Reconcile(context.Background(), candidates, map[string]struct{}{})
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	// Feed the created products back as the persisted state and run the same
	// batch again with a fresh run-scoped duplicate set.
	persisted := map[string]*models.Product{}
	for _, p := range created {
		persisted[p.EAN] = p
	}
	mockProducts.On("FindByEANs", mock.Anything, []string{"111", "222"}).
		Return(persisted, nil).Once()

	second, err := reconciler.Reconcile(context.Background(), candidates, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.NoChange)
	assert.Len(t, second.Linkable, 2)
	mockProducts.AssertNumberOfCalls(t, "BulkCreate", 1)
	mockProducts.AssertNotCalled(t, "BulkUpdate", mock.Anything, mock.Anything)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_EANMatchIsCaseInsensitive(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	c := candidate(2, "ABC123", "Chair")
	stored := storedMatch(c)
	stored.EAN = "abc123"

	mockProducts.On("FindByEANs", mock.Anything, []string{"ABC123", "abc123"}).
		Return(map[string]*models.Product{"abc123": stored}, nil)

	lower := candidate(3, "abc123", "Chair again")
	result, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{c, lower}, map[string]struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.NoChange)
	assert.Equal(t, 1, result.DuplicateSkips)
	mockProducts.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_AlreadyProcessedEANSkipped(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	mockProducts.On("FindByEANs", mock.Anything, []string{"111"}).
		Return(map[string]*models.Product{}, nil)

	// "111" was reconciled by an earlier batch of the same run.
	processed := map[string]struct{}{"111": {}}
	result, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{candidate(2, "111", "Chair")}, processed)

	require.NoError(t, err)
	assert.Equal(t, 1, result.DuplicateSkips)
	assert.Equal(t, 0, result.Created)
	assert.Empty(t, result.Linkable)
	mockProducts.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)
	mockProducts.AssertExpectations(t)
}

func TestReconciler_LookupFailure(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	mockProducts.On("FindByEANs", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	result, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{candidate(2, "111", "Chair")}, map[string]struct{}{})

	assert.Nil(t, result)
	var bulkErr *BulkOpError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, CodeDBError, bulkErr.Code)
}

func TestReconciler_BulkCreateFailure(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	mockProducts.On("FindByEANs", mock.Anything, mock.Anything).
		Return(map[string]*models.Product{}, nil)
	mockProducts.On("BulkCreate", mock.Anything, mock.Anything).
		Return(errors.New("insert failed"))

	_, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{candidate(2, "111", "Chair")}, map[string]struct{}{})

	var bulkErr *BulkOpError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, CodeBulkCreateFailed, bulkErr.Code)
}

func TestReconciler_BulkUpdateFailure(t *testing.T) {
	mockProducts := new(MockProductsRepository)
	reconciler := NewReconciler(mockProducts, testLogger())

	c := candidate(2, "111", "Chair")
	prior := &models.Product{
		ID:         uuid.New(),
		EAN:        "111",
		Name:       "Old Chair",
		Properties: models.PropertyMap{},
	}

	mockProducts.On("FindByEANs", mock.Anything, mock.Anything).
		Return(map[string]*models.Product{"111": prior}, nil)
	mockProducts.On("BulkUpdate", mock.Anything, mock.Anything).
		Return(errors.New("update failed"))

	_, err := reconciler.Reconcile(context.Background(), []*ProductCandidate{c}, map[string]struct{}{})

	var bulkErr *BulkOpError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, CodeBulkUpsertFailed, bulkErr.Code)
}
