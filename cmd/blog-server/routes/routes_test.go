package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lgulliver/blogshelf/cmd/blog-server/middleware"
	"github.com/lgulliver/blogshelf/internal/blog"
	"github.com/lgulliver/blogshelf/internal/web"
	"github.com/lgulliver/blogshelf/pkg/types"
)

// MockBlogService mocks the blog service for testing
type MockBlogService struct {
	mock.Mock
}

func (m *MockBlogService) Create(ctx context.Context, in blog.CreateInput) (*types.BlogPost, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BlogPost), args.Error(1)
}

func (m *MockBlogService) Get(ctx context.Context, id string) (*types.BlogPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BlogPost), args.Error(1)
}

func (m *MockBlogService) List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.BlogPost), args.Error(1)
}

func (m *MockBlogService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBlogService) Categories() []string {
	return types.DefaultCategories
}

// MockSubscriptionService mocks the subscription service for testing
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Subscribe(ctx context.Context, email string) (*types.EmailSubscription, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.EmailSubscription), args.Error(1)
}

func (m *MockSubscriptionService) List(ctx context.Context) ([]*types.EmailSubscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.EmailSubscription), args.Error(1)
}

func (m *MockSubscriptionService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func setupTestRouter(t *testing.T, blogs *MockBlogService, subs *MockSubscriptionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())

	templates, err := web.Templates()
	require.NoError(t, err)
	router.SetHTMLTemplate(templates)

	api := router.Group("/api")
	api.Use(middleware.BodyLimit(6 << 20))
	BlogRoutes(api, blogs)
	EmailRoutes(api, subs)
	PageRoutes(router, blogs, subs, 5<<20)
	return router
}

type formFile struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		h.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) types.APIResponse {
	var resp types.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func validFields() map[string]string {
	return map[string]string{
		"title":       "Hello",
		"description": "First post",
		"category":    "Technology",
		"author":      "Alex",
		"authorImg":   "/static/author_img.svg",
	}
}

func TestCreateBlog_Success(t *testing.T) {
	blogs := new(MockBlogService)
	router := setupTestRouter(t, blogs, new(MockSubscriptionService))

	image := []byte("\x89PNG fake bytes")
	created := &types.BlogPost{ID: "blog-1", Title: "Hello", Image: "/uploads/1_cover.png"}
	blogs.On("Create", mock.Anything, mock.MatchedBy(func(in blog.CreateInput) bool {
		return in.Title == "Hello" &&
			in.Category == "Technology" &&
			in.AuthorImg == "/static/author_img.svg" &&
			in.Image != nil &&
			in.Image.Filename == "cover.png" &&
			in.Image.ContentType == "image/png" &&
			bytes.Equal(in.Image.Content, image)
	})).Return(created, nil)

	body, contentType := multipartBody(t, validFields(), &formFile{"image", "cover.png", "image/png", image})
	req := httptest.NewRequest(http.MethodPost, "/api/blog", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Blog Added", resp.Msg)
	require.NotNil(t, resp.Blog)
	assert.Equal(t, "blog-1", resp.Blog.ID)
	blogs.AssertExpectations(t)
}

func TestCreateBlog_BindsURLEncodedForm(t *testing.T) {
	blogs := new(MockBlogService)
	router := setupTestRouter(t, blogs, new(MockSubscriptionService))

	blogs.On("Create", mock.Anything, mock.MatchedBy(func(in blog.CreateInput) bool {
		return in.Title == "" &&
			in.Description == "First post" &&
			in.Author == "Alex" &&
			in.Image == nil
	})).Return(nil, types.NewValidationError("title", "title is required"))

	form := url.Values{"description": {"First post"}, "category": {"Technology"}, "author": {"Alex"}}
	req := httptest.NewRequest(http.MethodPost, "/api/blog", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title is required", decodeResponse(t, w).Msg)
	blogs.AssertExpectations(t)
}

func TestCreateBlog_MissingImagePassesNil(t *testing.T) {
	blogs := new(MockBlogService)
	router := setupTestRouter(t, blogs, new(MockSubscriptionService))

	blogs.On("Create", mock.Anything, mock.MatchedBy(func(in blog.CreateInput) bool {
		return in.Image == nil
	})).Return(nil, types.NewValidationError("image", "image required"))

	body, contentType := multipartBody(t, validFields(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/blog", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "image required", resp.Msg)
}

func TestCreateBlog_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        types.NewValidationError("title", "title is required"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "title is required",
		},
		{
			name:       "unsupported media type",
			err:        types.ErrUnsupportedMediaType,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "unsupported media type",
		},
		{
			name:       "too large",
			err:        types.ErrPayloadTooLarge,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "payload too large",
		},
		{
			name:       "store unavailable hides details",
			err:        fmt.Errorf("%w: cloudinary said invalid signature", types.ErrStoreUnavailable),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
		{
			name:       "repository failure",
			err:        fmt.Errorf("%w: connection refused", types.ErrRepository),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blogs := new(MockBlogService)
			router := setupTestRouter(t, blogs, new(MockSubscriptionService))
			blogs.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err)

			body, contentType := multipartBody(t, validFields(), &formFile{"image", "a.png", "image/png", []byte("x")})
			req := httptest.NewRequest(http.MethodPost, "/api/blog", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMsg, resp.Msg)
			assert.NotContains(t, w.Body.String(), "connection refused")
			assert.NotContains(t, w.Body.String(), "invalid signature")
		})
	}
}

func TestCreateBlog_BodyTooLarge(t *testing.T) {
	blogs := new(MockBlogService)
	router := setupTestRouter(t, blogs, new(MockSubscriptionService))

	body, contentType := multipartBody(t, validFields(), &formFile{"image", "big.png", "image/png", make([]byte, 7<<20)})
	req := httptest.NewRequest(http.MethodPost, "/api/blog", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payload too large", decodeResponse(t, w).Msg)
	blogs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetBlogs(t *testing.T) {
	blogs := new(MockBlogService)
	router := setupTestRouter(t, blogs, new(MockSubscriptionService))

	posts := []*types.BlogPost{{ID: "1", Title: "a", Category: "Technology"}}
	blogs.On("List", mock.Anything, types.BlogFilter{}).Return(posts, nil)
	blogs.On("List", mock.Anything, types.BlogFilter{Category: "Startup"}).Return([]*types.BlogPost{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blog", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list types.BlogListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Blogs, 1)
	assert.Equal(t, "a", list.Blogs[0].Title)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blog?category=Startup", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"blogs":[]}`, w.Body.String())
}

func TestGetBlogByID(t *testing.T) {
	blogs := new(MockBlogService)
	router := setupTestRouter(t, blogs, new(MockSubscriptionService))

	blogs.On("Get", mock.Anything, "blog-1").Return(&types.BlogPost{ID: "blog-1", Title: "Hello"}, nil)
	blogs.On("Get", mock.Anything, "missing").Return(nil, types.ErrNotFound)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blog?id=blog-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var post types.BlogPost
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, "Hello", post.Title)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blog?id=missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "Blog not found", resp.Msg)
}

func TestDeleteBlog(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "deleted", query: "?id=blog-1", wantStatus: http.StatusOK, wantMsg: "Blog Deleted"},
		{name: "missing id", query: "", wantStatus: http.StatusBadRequest, wantMsg: "id is required"},
		{name: "unknown id", query: "?id=blog-1", err: types.ErrNotFound, wantStatus: http.StatusNotFound, wantMsg: "Blog not found"},
		{name: "strict cleanup failure", query: "?id=blog-1", err: fmt.Errorf("wrap: %w", types.ErrStoreUnavailable), wantStatus: http.StatusInternalServerError, wantMsg: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blogs := new(MockBlogService)
			router := setupTestRouter(t, blogs, new(MockSubscriptionService))
			blogs.On("Delete", mock.Anything, "blog-1").Return(tt.err)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/blog"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantStatus == http.StatusOK, resp.Success)
			assert.Equal(t, tt.wantMsg, resp.Msg)
		})
	}
}

func TestEmailRoutes(t *testing.T) {
	subs := new(MockSubscriptionService)
	router := setupTestRouter(t, new(MockBlogService), subs)

	subs.On("Subscribe", mock.Anything, "reader@example.com").Return(&types.EmailSubscription{ID: "e1", Email: "reader@example.com"}, nil)
	subs.On("List", mock.Anything).Return([]*types.EmailSubscription{{ID: "e1", Email: "reader@example.com"}}, nil)
	subs.On("Delete", mock.Anything, "e1").Return(nil)
	subs.On("Delete", mock.Anything, "e2").Return(types.ErrNotFound)

	post := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/email", strings.NewReader("email="+email))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := post("reader@example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email Subscribed", decodeResponse(t, w).Msg)

	w = post("nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email is invalid", decodeResponse(t, w).Msg)

	w = post("")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email is required", decodeResponse(t, w).Msg)
	subs.AssertNumberOfCalls(t, "Subscribe", 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/email", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var list types.EmailListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Emails, 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/email?id=e1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email Deleted", decodeResponse(t, w).Msg)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/email?id=e2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Email not found", decodeResponse(t, w).Msg)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/email", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id is required", decodeResponse(t, w).Msg)
}

func TestPages(t *testing.T) {
	blogs := new(MockBlogService)
	subs := new(MockSubscriptionService)
	router := setupTestRouter(t, blogs, subs)

	post := &types.BlogPost{ID: "blog-1", Title: "Hello world", Description: "Body", Category: "Technology", Image: "/uploads/1_a.png", ImageSize: 2048}
	blogs.On("List", mock.Anything, types.BlogFilter{}).Return([]*types.BlogPost{post}, nil)
	blogs.On("List", mock.Anything, types.BlogFilter{Category: "Lifestyle"}).Return([]*types.BlogPost{}, nil)
	blogs.On("Get", mock.Anything, "blog-1").Return(post, nil)
	blogs.On("Get", mock.Anything, "missing").Return(nil, types.ErrNotFound)
	subs.On("List", mock.Anything).Return(nil, errors.New("db down"))

	tests := []struct {
		path       string
		wantStatus int
		contains   string
	}{
		{"/", http.StatusOK, "Hello world"},
		{"/?category=Lifestyle", http.StatusOK, "No blogs yet."},
		{"/blogs/blog-1", http.StatusOK, `src="/uploads/1_a.png"`},
		{"/blogs/missing", http.StatusNotFound, "Blog not found"},
		{"/admin", http.StatusOK, "2.0 KB"},
		{"/admin/add", http.StatusOK, `accept="image/jpeg,image/png,image/webp"`},
		{"/admin/subscriptions", http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", wantStatus: http.StatusOK, wantBody: `"status":"healthy"`},
		{name: "unhealthy", err: errors.New("mongo down"), wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"unhealthy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			HealthRoutes(router, pingFunc(func(ctx context.Context) error { return tt.err }))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Contains(t, w.Body.String(), `"service":"blog-server"`)
		})
	}
}
