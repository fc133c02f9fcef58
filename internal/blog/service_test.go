package blog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lgulliver/blogshelf/internal/storage"
	"github.com/lgulliver/blogshelf/pkg/config"
	"github.com/lgulliver/blogshelf/pkg/types"
)

// MockAssetStore is a mock implementation of storage.AssetStore
type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) Store(ctx context.Context, content []byte, meta storage.AssetMeta) (*storage.StoredAsset, error) {
	args := m.Called(ctx, content, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredAsset), args.Error(1)
}

func (m *MockAssetStore) Remove(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockBlogRepository is a mock implementation of repository.BlogRepository
type MockBlogRepository struct {
	mock.Mock
}

func (m *MockBlogRepository) Create(ctx context.Context, post *types.BlogPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockBlogRepository) Get(ctx context.Context, id string) (*types.BlogPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BlogPost), args.Error(1)
}

func (m *MockBlogRepository) List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.BlogPost), args.Error(1)
}

func (m *MockBlogRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupTestService(policy string) (*Service, *MockBlogRepository, *MockAssetStore) {
	repo := new(MockBlogRepository)
	store := new(MockAssetStore)
	svc := NewService(repo, store, &config.BlogConfig{
		Categories:    types.DefaultCategories,
		CleanupPolicy: policy,
	})
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, repo, store
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func validInput(t *testing.T) CreateInput {
	return CreateInput{
		Title:       "Hello",
		Description: "First post",
		Category:    types.CategoryTechnology,
		Author:      "Alex",
		AuthorImg:   "/author_img.png",
		Image: &ImageUpload{
			Filename:    "cover.png",
			ContentType: "image/png",
			Content:     testPNG(t),
		},
	}
}

func TestService_CreateValidationOrder(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *CreateInput)
		wantField string
		wantMsg   string
	}{
		{
			name:      "everything missing reports title first",
			mutate:    func(in *CreateInput) { *in = CreateInput{} },
			wantField: "title",
			wantMsg:   "title is required",
		},
		{
			name:      "blank description",
			mutate:    func(in *CreateInput) { in.Description = "   "; in.Author = "" },
			wantField: "description",
			wantMsg:   "description is required",
		},
		{
			name:      "missing category",
			mutate:    func(in *CreateInput) { in.Category = "" },
			wantField: "category",
			wantMsg:   "category is required",
		},
		{
			name:      "missing author",
			mutate:    func(in *CreateInput) { in.Author = ""; in.AuthorImg = "" },
			wantField: "author",
			wantMsg:   "author is required",
		},
		{
			name:      "missing author image",
			mutate:    func(in *CreateInput) { in.AuthorImg = "" },
			wantField: "authorImg",
			wantMsg:   "authorImg is required",
		},
		{
			name:      "unknown category",
			mutate:    func(in *CreateInput) { in.Category = "Cooking" },
			wantField: "category",
			wantMsg:   "category must be one of: Technology, Startup, Lifestyle",
		},
		{
			name:      "missing image",
			mutate:    func(in *CreateInput) { in.Image = nil },
			wantField: "image",
			wantMsg:   "image required",
		},
		{
			name:      "empty image",
			mutate:    func(in *CreateInput) { in.Image.Content = nil },
			wantField: "image",
			wantMsg:   "image required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := setupTestService(config.CleanupWarn)
			in := validInput(t)
			tt.mutate(&in)

			post, err := svc.Create(context.Background(), in)
			assert.Nil(t, post)
			require.ErrorIs(t, err, types.ErrValidation)

			var verr *types.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, tt.wantMsg, verr.Message)

			store.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_CreateRejectsImageBeforeStore(t *testing.T) {
	tests := []struct {
		name    string
		image   *ImageUpload
		wantErr error
	}{
		{
			name:    "gif",
			image:   &ImageUpload{Filename: "a.gif", ContentType: "image/gif", Content: []byte("GIF89a....")},
			wantErr: types.ErrUnsupportedMediaType,
		},
		{
			name:    "too large",
			image:   &ImageUpload{Filename: "a.png", ContentType: "image/png", Content: make([]byte, storage.MaxAssetSize+1)},
			wantErr: types.ErrPayloadTooLarge,
		},
		{
			name:    "not really a png",
			image:   &ImageUpload{Filename: "a.png", ContentType: "image/png", Content: []byte("plain text")},
			wantErr: types.ErrUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := setupTestService(config.CleanupWarn)
			in := validInput(t)
			in.Image = tt.image

			post, err := svc.Create(context.Background(), in)
			assert.Nil(t, post)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, types.ErrValidation)

			store.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_CreateSuccess(t *testing.T) {
	svc, repo, store := setupTestService(config.CleanupWarn)
	ctx := context.Background()
	in := validInput(t)
	in.Title = "  Hello  "
	in.Category = "technology"

	asset := &storage.StoredAsset{
		Locator:     "https://res.cloudinary.com/demo/blog-app/cover.png",
		AssetID:     "blog-app/cover",
		ContentType: storage.ContentTypePNG,
		Size:        int64(len(in.Image.Content)),
	}
	store.On("Store", ctx, in.Image.Content, mock.MatchedBy(func(meta storage.AssetMeta) bool {
		return meta.ContentType == storage.ContentTypePNG && meta.Filename == "cover.png"
	})).Return(asset, nil).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*types.BlogPost")).Run(func(args mock.Arguments) {
		args.Get(1).(*types.BlogPost).ID = "blog-1"
	}).Return(nil).Once()

	post, err := svc.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "blog-1", post.ID)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, types.CategoryTechnology, post.Category)
	assert.Equal(t, asset.Locator, post.Image)
	assert.Equal(t, "blog-app/cover", post.ImageAssetID)
	assert.Equal(t, storage.ContentTypePNG, post.ImageContentType)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), post.CreatedAt)

	store.AssertExpectations(t)
	repo.AssertExpectations(t)
	store.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestService_CreateStoreFailureWritesNothing(t *testing.T) {
	svc, repo, store := setupTestService(config.CleanupWarn)
	ctx := context.Background()

	store.On("Store", ctx, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: upload rejected", types.ErrStoreUnavailable))

	post, err := svc.Create(ctx, validInput(t))
	assert.Nil(t, post)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_CreateRepositoryFailureRemovesAssetOnce(t *testing.T) {
	tests := []struct {
		name      string
		asset     *storage.StoredAsset
		wantRef   string
		removeErr error
	}{
		{
			name:    "local locator",
			asset:   &storage.StoredAsset{Locator: "/uploads/1700000000000_cover.png"},
			wantRef: "/uploads/1700000000000_cover.png",
		},
		{
			name:    "remote asset id",
			asset:   &storage.StoredAsset{Locator: "https://cdn/x.png", AssetID: "blog-app/x"},
			wantRef: "blog-app/x",
		},
		{
			name:      "cleanup failure is not returned",
			asset:     &storage.StoredAsset{Locator: "/uploads/1700000000000_cover.png"},
			wantRef:   "/uploads/1700000000000_cover.png",
			removeErr: fmt.Errorf("%w: disk gone", types.ErrStoreUnavailable),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := setupTestService(config.CleanupWarn)
			ctx := context.Background()

			store.On("Store", ctx, mock.Anything, mock.Anything).Return(tt.asset, nil)
			repo.On("Create", ctx, mock.Anything).Return(errors.New("connection refused"))
			store.On("Remove", ctx, tt.wantRef).Return(tt.removeErr)

			post, err := svc.Create(ctx, validInput(t))
			assert.Nil(t, post)
			assert.ErrorIs(t, err, types.ErrRepository)
			assert.NotErrorIs(t, err, types.ErrStoreUnavailable)

			store.AssertNumberOfCalls(t, "Remove", 1)
			store.AssertCalled(t, "Remove", ctx, tt.wantRef)
		})
	}
}

func TestService_Get(t *testing.T) {
	svc, repo, _ := setupTestService(config.CleanupWarn)
	ctx := context.Background()

	repo.On("Get", ctx, "blog-1").Return(&types.BlogPost{ID: "blog-1"}, nil)
	repo.On("Get", ctx, "missing").Return(nil, types.ErrNotFound)

	post, err := svc.Get(ctx, "blog-1")
	require.NoError(t, err)
	assert.Equal(t, "blog-1", post.ID)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.Get(ctx, " ")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestService_ListNormalisesCategory(t *testing.T) {
	svc, repo, _ := setupTestService(config.CleanupWarn)
	ctx := context.Background()

	repo.On("List", ctx, types.BlogFilter{Category: types.CategoryStartup}).Return([]*types.BlogPost{{ID: "1"}}, nil)
	repo.On("List", ctx, types.BlogFilter{Category: "Unknown"}).Return([]*types.BlogPost{}, nil)

	posts, err := svc.List(ctx, types.BlogFilter{Category: "startup"})
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	posts, err = svc.List(ctx, types.BlogFilter{Category: "Unknown"})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestService_DeleteUnknownLeavesStoreUntouched(t *testing.T) {
	svc, repo, store := setupTestService(config.CleanupWarn)
	ctx := context.Background()

	repo.On("Get", ctx, "missing").Return(nil, types.ErrNotFound)

	err := svc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	store.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_Delete(t *testing.T) {
	post := &types.BlogPost{ID: "blog-1", Image: "https://cdn/x.png", ImageAssetID: "blog-app/x"}

	tests := []struct {
		name         string
		policy       string
		removeErr    error
		deleteErr    error
		wantErr      error
		expectDelete bool
	}{
		{name: "removes asset and row", policy: config.CleanupWarn, expectDelete: true},
		{
			name:         "warn policy keeps going when removal fails",
			policy:       config.CleanupWarn,
			removeErr:    fmt.Errorf("%w: timeout", types.ErrStoreUnavailable),
			expectDelete: true,
		},
		{
			name:      "strict policy keeps the row when removal fails",
			policy:    config.CleanupStrict,
			removeErr: fmt.Errorf("%w: timeout", types.ErrStoreUnavailable),
			wantErr:   types.ErrStoreUnavailable,
		},
		{
			name:         "row vanished between get and delete",
			policy:       config.CleanupWarn,
			deleteErr:    types.ErrNotFound,
			wantErr:      types.ErrNotFound,
			expectDelete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := setupTestService(tt.policy)
			ctx := context.Background()

			repo.On("Get", ctx, "blog-1").Return(post, nil)
			store.On("Remove", ctx, "blog-app/x").Return(tt.removeErr).Once()
			repo.On("Delete", ctx, "blog-1").Return(tt.deleteErr)

			err := svc.Delete(ctx, "blog-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			store.AssertExpectations(t)
			if tt.expectDelete {
				repo.AssertCalled(t, "Delete", ctx, "blog-1")
			} else {
				repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(new(MockBlogRepository), new(MockAssetStore), &config.BlogConfig{})
	assert.Equal(t, types.DefaultCategories, svc.Categories())
	assert.Equal(t, config.CleanupWarn, svc.policy)
}
