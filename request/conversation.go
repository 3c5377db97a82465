package request

type UpdateConversationTitleRequest struct {
	Title string `json:"title" binding:"required,max=30"`
}
