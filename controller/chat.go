package controller

import (
	"context"
	"deal-agent-backend/dao"
	"deal-agent-backend/request"
	"deal-agent-backend/response"
	"deal-agent-backend/service/chat"
	"deal-agent-backend/service/mq"
	"deal-agent-backend/service/snapshot"
	"deal-agent-backend/service/summarization"
	"deal-agent-backend/service/tool"
	"deal-agent-backend/utils"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var chatToolRegistry = tool.NewRegistry(
	tool.NewDealQueryTool(dao.FindDeals),
)

// Chat 处理一轮对话。普通轮走SSE流式响应，
// 确认轮不调用模型，按执行结果返回JSON或纯文本
func Chat(c *gin.Context) {
	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")

	// 归属校验必须在写入任何流式响应头之前完成
	if req.ConversationID != "" {
		if _, ok := checkConversationOwnership(c, email, req.ConversationID); !ok {
			return
		}
	}

	if req.HumanConfirmation != nil {
		resolveConfirmation(c, email, req)
		return
	}

	streamChatTurn(c, email, req)
}

// resolveConfirmation 处理确认轮。executed路径返回结构化JSON，
// 拒绝和执行异常路径返回纯文本，客户端按Content-Type区分
func resolveConfirmation(c *gin.Context, email string, req request.ChatRequest) {
	resolver := &chat.ConfirmationResolver{
		Registry: chatToolRegistry,
		History:  chat.NewMySQLConversationHistory(),
	}

	outcome, err := resolver.Resolve(c.Request.Context(), email, req.ConversationID, req.Message, *req.HumanConfirmation)
	if err != nil {
		slog.Error(ErrResolveConfirmation.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrResolveConfirmation.Error(),
		})
		return
	}

	if outcome.Persisted {
		notifyTurnPersisted(outcome.Conversation.ConversationID, outcome.AssistantMessageID)
	}

	if !outcome.Executed {
		c.String(http.StatusOK, outcome.Text)
		return
	}

	c.JSON(http.StatusOK, response.ChatToolResponse{
		Text: outcome.Text,
		ToolResults: []response.ToolResult{
			{Result: response.ToolResultPayload{Deals: outcome.Deals}},
		},
	})
}

// streamChatTurn 处理普通轮。流一旦开始就运行到模型输出结束，
// 客户端断开不中止本轮，保证落库内容与模型实际产出一致
func streamChatTurn(c *gin.Context, email string, req request.ChatRequest) {
	turn, err := chat.NewTurn(chat.NewMySQLConversationHistory())
	if err != nil {
		slog.Error(ErrCreateChatTurn.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateChatTurn.Error(),
		})
		return
	}

	utils.SetSSEHeaders(c)

	ctx := context.WithoutCancel(c.Request.Context())
	result, err := turn.Run(ctx, email, req.ConversationID, req.Message, chat.TurnCallbacks{
		OnAnswer: func(chunk string) {
			utils.SendSSEMessage(c, utils.EventAnswer, chunk)
		},
		OnToolRequest: func(toolReq chat.ToolRequest) {
			utils.SendSSEMessage(c, utils.EventToolRequest, toolReq)
		},
	})
	if err != nil {
		slog.Error(ErrChatTurn.Error(),
			"conversation_id", req.ConversationID,
			"err", err,
		)
		utils.SendSSEMessage(c, utils.EventError, ErrChatTurn.Error())
		return
	}

	done := gin.H{}
	if result.Persisted {
		done["conversation_id"] = result.Conversation.ConversationID
		notifyTurnPersisted(result.Conversation.ConversationID, result.AssistantMessageID)
	}
	utils.SendSSEMessage(c, utils.EventDone, done)
}

// notifyTurnPersisted 一轮消息提交后触发快照任务和摘要任务，失败不影响本轮响应
func notifyTurnPersisted(conversationID string, assistantMessageID uint) {
	err := mq.SendMessage(context.Background(), &mq.Message{
		Topic: mq.TopicConversation,
		Tag:   mq.TagSnapshot,
		Payload: snapshot.SnapshotMessage{
			ConversationID: conversationID,
		},
	})
	if err != nil {
		slog.Error("failed to enqueue conversation snapshot",
			"conversation_id", conversationID,
			"err", err,
		)
	}

	summarization.SummarizerInstance.RegisterSummaryTask(summarization.SummaryTask{
		MessageIDs: []uint{assistantMessageID},
	})
}
