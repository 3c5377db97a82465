package router

import (
	"deal-agent-backend/controller"
	"deal-agent-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/user")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/conversation", controller.CreateConversation)
			protected.GET("/conversations", controller.GetConversations)
			protected.DELETE("/conversation/:id", controller.DeleteConversation)
			protected.GET("/conversation/:id/messages", controller.GetConversationMessages)
			protected.PUT("/conversation/:id/title", controller.UpdateConversationTitle)

			protected.POST("/chat", middleware.ChatRateLimit(), controller.Chat)

			protected.GET("/deal/:deal_id/documents", controller.GetDealDocuments)
			protected.GET("/deal/:deal_id/documents/policy-token", controller.GeneratePolicyToken)
			protected.POST("/deal/documents", controller.UploadDealDocument)
			protected.DELETE("/deal/:deal_id/documents/:file_name", controller.DeleteDealDocument)
			protected.GET("/deal/:deal_id/documents/:file_name/download-link", controller.GetPresignedURL)
		}
	}

	return r
}
