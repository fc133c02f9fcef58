package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lgulliver/blogshelf/pkg/types"
)

const emailNotFoundMsg = "Email not found"

// EmailRoutes sets up the newsletter subscription routes
func EmailRoutes(r *gin.RouterGroup, subscriptionService SubscriptionServiceInterface) {
	emails := r.Group("/email")
	{
		emails.GET("", listEmails(subscriptionService))
		emails.POST("", subscribe(subscriptionService))
		emails.DELETE("", deleteEmail(subscriptionService))
	}
}

func listEmails(subscriptionService SubscriptionServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := subscriptionService.List(c.Request.Context())
		if err != nil {
			respondError(c, err, emailNotFoundMsg)
			return
		}
		c.JSON(http.StatusOK, types.EmailListResponse{Emails: subs})
	}
}

func subscribe(subscriptionService SubscriptionServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form types.SubscribeForm
		if err := c.ShouldBind(&form); err != nil {
			msg := "email is invalid"
			if strings.TrimSpace(form.Email) == "" {
				msg = "email is required"
			}
			respondError(c, types.NewValidationError("email", msg), emailNotFoundMsg)
			return
		}

		if _, err := subscriptionService.Subscribe(c.Request.Context(), form.Email); err != nil {
			respondError(c, err, emailNotFoundMsg)
			return
		}
		c.JSON(http.StatusOK, types.APIResponse{Success: true, Msg: "Email Subscribed"})
	}
}

func deleteEmail(subscriptionService SubscriptionServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("id")
		if id == "" {
			respondError(c, types.NewValidationError("id", "id is required"), emailNotFoundMsg)
			return
		}

		if err := subscriptionService.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err, emailNotFoundMsg)
			return
		}
		c.JSON(http.StatusOK, types.APIResponse{Success: true, Msg: "Email Deleted"})
	}
}
