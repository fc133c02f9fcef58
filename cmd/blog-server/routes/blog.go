package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lgulliver/blogshelf/internal/blog"
	"github.com/lgulliver/blogshelf/internal/storage"
	"github.com/lgulliver/blogshelf/pkg/types"
)

const (
	blogNotFoundMsg = "Blog not found"
	// multipart parts beyond this are spooled to temporary files
	multipartMemory = 8 << 20
)

// BlogRoutes sets up the blog API routes
func BlogRoutes(r *gin.RouterGroup, blogService BlogServiceInterface) {
	blogs := r.Group("/blog")
	{
		blogs.GET("", getBlogs(blogService))
		blogs.POST("", createBlog(blogService))
		blogs.DELETE("", deleteBlog(blogService))
	}
}

// getBlogs returns one post when ?id= is given, otherwise the listing
func getBlogs(blogService BlogServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := c.GetQuery("id"); ok {
			post, err := blogService.Get(c.Request.Context(), id)
			if err != nil {
				respondError(c, err, blogNotFoundMsg)
				return
			}
			c.JSON(http.StatusOK, post)
			return
		}

		var filter types.BlogFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			respondError(c, fmt.Errorf("%w: %v", types.ErrValidation, err), blogNotFoundMsg)
			return
		}

		posts, err := blogService.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err, blogNotFoundMsg)
			return
		}
		c.JSON(http.StatusOK, types.BlogListResponse{Blogs: posts})
	}
}

// createBlog accepts a multipart form with the post fields and an image
func createBlog(blogService BlogServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			respondError(c, fmt.Errorf("%w: %w", types.ErrValidation, err), blogNotFoundMsg)
			return
		}

		image, err := readImage(c)
		if err != nil {
			respondError(c, err, blogNotFoundMsg)
			return
		}

		var form types.CreateBlogForm
		if err := c.ShouldBind(&form); err != nil {
			respondError(c, fmt.Errorf("%w: %w", types.ErrValidation, err), blogNotFoundMsg)
			return
		}

		post, err := blogService.Create(c.Request.Context(), blog.CreateInput{
			Title:       form.Title,
			Description: form.Description,
			Category:    form.Category,
			Author:      form.Author,
			AuthorImg:   form.AuthorImg,
			Image:       image,
		})
		if err != nil {
			respondError(c, err, blogNotFoundMsg)
			return
		}

		c.JSON(http.StatusOK, types.APIResponse{
			Success: true,
			Msg:     "Blog Added",
			Blog:    post,
		})
	}
}

// readImage returns nil when no image part was sent so the service can
// report it in its usual field order
func readImage(c *gin.Context) (*blog.ImageUpload, error) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer file.Close()

	// one byte past the limit is enough to report the upload as too large
	content, err := io.ReadAll(io.LimitReader(file, storage.MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}

	return &blog.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// deleteBlog removes a post and its image
func deleteBlog(blogService BlogServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("id")
		if id == "" {
			respondError(c, types.NewValidationError("id", "id is required"), blogNotFoundMsg)
			return
		}

		if err := blogService.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err, blogNotFoundMsg)
			return
		}

		c.JSON(http.StatusOK, types.APIResponse{Success: true, Msg: "Blog Deleted"})
	}
}
