package snapshot

import (
	"context"
	"deal-agent-backend/dao"
	"encoding/json"
	"fmt"

	"github.com/apache/rocketmq-client-go/v2/primitive"
)

// SnapshotMessage 会话快照任务载荷，在每轮对话落库提交后由调用方显式入队
type SnapshotMessage struct {
	ConversationID string `json:"conversation_id"`
}

// HandleSnapshotMessage 消费快照任务：读取会话全量消息，写入一条带版本号的快照
func HandleSnapshotMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var snapshotMessage SnapshotMessage
	if err := json.Unmarshal(msg.Body, &snapshotMessage); err != nil {
		return fmt.Errorf("failed to unmarshal message body: %v", err)
	}

	if snapshotMessage.ConversationID == "" {
		return fmt.Errorf("snapshot message missing conversation id")
	}

	messages, err := dao.GetMessagesByConversationID(snapshotMessage.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation messages: %v", err)
	}

	body, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation messages: %v", err)
	}

	if err := dao.CreateConversationSnapshot(ctx, snapshotMessage.ConversationID, body); err != nil {
		return fmt.Errorf("failed to create conversation snapshot: %v", err)
	}

	return nil
}
