package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister = errors.New("failed to register user")
	ErrUserLogin    = errors.New("failed to login")

	ErrCreateConversation      = errors.New("failed to create a conversation")
	ErrGetConversations        = errors.New("failed to get conversations")
	ErrDeleteConversation      = errors.New("failed to delete a conversation")
	ErrGetConversationMessages = errors.New("failed to get conversation messages")
	ErrUpdateConversationTitle = errors.New("failed to update conversation title")
	ErrConversationNotFound    = errors.New("conversation not found")
	ErrConversationForbidden   = errors.New("conversation belongs to another user")

	ErrCreateChatTurn      = errors.New("failed to create a chat turn")
	ErrChatTurn            = errors.New("error while processing chat turn")
	ErrResolveConfirmation = errors.New("failed to resolve tool confirmation")

	ErrGeneratePolicyToken = errors.New("failed to generate policy token")
	ErrGetDealDocuments    = errors.New("failed to get deal documents")
	ErrUploadDealDocument  = errors.New("failed to upload deal document metadata")
	ErrDeleteDealDocument  = errors.New("failed to delete deal document")
	ErrGetPresignedURL     = errors.New("failed to get presigned url")
)
