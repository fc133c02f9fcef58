package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/internal/storage"
	"github.com/lgulliver/blogshelf/pkg/types"
)

// pageData is the view model shared by every HTML template
type pageData struct {
	Title          string
	Admin          bool
	Message        string
	Categories     []string
	Active         string
	Posts          []*types.BlogPost
	Post           *types.BlogPost
	Subscriptions  []*types.EmailSubscription
	AcceptedTypes  []string
	MaxUploadBytes int64
}

// PageRoutes sets up the public site and the admin pages. The router must
// have its HTML templates loaded.
func PageRoutes(router *gin.Engine, blogService BlogServiceInterface, subscriptionService SubscriptionServiceInterface, maxUploadBytes int64) {
	router.GET("/", homePage(blogService))
	router.GET("/blogs/:id", postPage(blogService))

	admin := router.Group("/admin")
	{
		admin.GET("", adminListPage(blogService))
		admin.GET("/add", adminAddPage(blogService, maxUploadBytes))
		admin.GET("/subscriptions", subscriptionsPage(subscriptionService))
	}
}

func homePage(blogService BlogServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Query("category")
		posts, err := blogService.List(c.Request.Context(), types.BlogFilter{Category: category})
		if err != nil {
			renderError(c, err)
			return
		}

		c.HTML(http.StatusOK, "index.html", pageData{
			Title:      "Home",
			Categories: blogService.Categories(),
			Active:     category,
			Posts:      posts,
		})
	}
}

func postPage(blogService BlogServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := blogService.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}

		c.HTML(http.StatusOK, "post.html", pageData{Title: post.Title, Post: post})
	}
}

func adminListPage(blogService BlogServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := blogService.List(c.Request.Context(), types.BlogFilter{})
		if err != nil {
			renderError(c, err)
			return
		}

		c.HTML(http.StatusOK, "admin_list.html", pageData{Title: "All blogs", Admin: true, Posts: posts})
	}
}

func adminAddPage(blogService BlogServiceInterface, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin_add.html", pageData{
			Title:          "Add blog",
			Admin:          true,
			Categories:     blogService.Categories(),
			AcceptedTypes:  storage.AcceptedContentTypes(),
			MaxUploadBytes: maxUploadBytes,
		})
	}
}

func subscriptionsPage(subscriptionService SubscriptionServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := subscriptionService.List(c.Request.Context())
		if err != nil {
			renderError(c, err)
			return
		}

		c.HTML(http.StatusOK, "subscriptions.html", pageData{Title: "Subscriptions", Admin: true, Subscriptions: subs})
	}
}

func renderError(c *gin.Context, err error) {
	if errors.Is(err, types.ErrNotFound) {
		c.HTML(http.StatusNotFound, "not_found.html", pageData{Title: "Not found", Message: blogNotFoundMsg})
		return
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("failed to render page")
	c.HTML(http.StatusInternalServerError, "error.html", pageData{Title: "Error", Message: internalErrorMsg})
}
