package controller

import (
	"deal-agent-backend/dao"
	"deal-agent-backend/model"
	"deal-agent-backend/request"
	"deal-agent-backend/response"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// checkConversationOwnership 校验会话存在且归属当前用户。
// 不存在返回404，归属他人返回403，二者均已写响应并返回 false
func checkConversationOwnership(c *gin.Context, email, conversationID string) (*model.Conversation, bool) {
	conversation, err := dao.GetConversationByID(conversationID)
	if err != nil {
		slog.Error(ErrGetConversations.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetConversations.Error(),
		})
		return nil, false
	}
	if conversation == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrConversationNotFound.Error(),
		})
		return nil, false
	}
	if conversation.UserEmail != email {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Response{
			Msg: ErrConversationForbidden.Error(),
		})
		return nil, false
	}
	return conversation, true
}

func CreateConversation(c *gin.Context) {
	email := c.GetString("email")
	conversation, err := dao.CreateConversation(email)
	if err != nil {
		slog.Error(ErrCreateConversation.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateConversation.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.ConversationResponse{
			ConversationID: conversation.ConversationID,
			Title:          conversation.Title,
		},
	})
}

func GetConversations(c *gin.Context) {
	email := c.GetString("email")
	conversations, err := dao.GetConversationsByEmail(email)
	if err != nil {
		slog.Error(ErrGetConversations.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetConversations.Error(),
		})
		return
	}

	var resp response.GetConversationsResponse
	for _, conversation := range conversations {
		resp.Conversations = append(resp.Conversations, response.ConversationResponse{
			ConversationID: conversation.ConversationID,
			Title:          conversation.Title,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func DeleteConversation(c *gin.Context) {
	email := c.GetString("email")
	conversationID := c.Param("id")
	if _, ok := checkConversationOwnership(c, email, conversationID); !ok {
		return
	}

	if err := dao.DeleteConversation(email, conversationID); err != nil {
		slog.Error(ErrDeleteConversation.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteConversation.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetConversationMessages(c *gin.Context) {
	email := c.GetString("email")
	conversationID := c.Param("id")
	if _, ok := checkConversationOwnership(c, email, conversationID); !ok {
		return
	}

	messages, err := dao.GetMessagesByConversationID(conversationID)
	if err != nil {
		slog.Error(ErrGetConversationMessages.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetConversationMessages.Error(),
		})
		return
	}

	var resp response.GetConversationMessagesResponse
	for _, m := range messages {
		resp.Messages = append(resp.Messages, response.MessageResponse{
			CreatedAt:       m.CreatedAt,
			Role:            m.Role,
			Content:         m.Content,
			ToolCallResults: m.ToolCallResults,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func UpdateConversationTitle(c *gin.Context) {
	var req request.UpdateConversationTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	conversationID := c.Param("id")
	if _, ok := checkConversationOwnership(c, email, conversationID); !ok {
		return
	}

	if err := dao.UpdateConversationTitle(email, conversationID, req.Title); err != nil {
		slog.Error(ErrUpdateConversationTitle.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateConversationTitle.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}
