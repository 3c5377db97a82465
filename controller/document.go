package controller

import (
	"deal-agent-backend/dao"
	"deal-agent-backend/request"
	"deal-agent-backend/response"
	"deal-agent-backend/service/document"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func GeneratePolicyToken(c *gin.Context) {
	dealID := c.Param("deal_id")
	token, err := document.GeneratePolicyToken(dealID)
	if err != nil {
		slog.Error(ErrGeneratePolicyToken.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGeneratePolicyToken.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: token,
	})
}

func GetDealDocuments(c *gin.Context) {
	dealID := c.Param("deal_id")
	docs, err := dao.GetDealDocumentsByDealID(dealID)
	if err != nil {
		slog.Error(ErrGetDealDocuments.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetDealDocuments.Error(),
		})
		return
	}

	var resp response.GetDealDocumentsResponse
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, response.DealDocumentResponse{
			FileName: doc.FileName,
			FileType: string(doc.FileType),
			FileSize: doc.FileSize,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func UploadDealDocument(c *gin.Context) {
	var req request.UploadDealDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	if err := document.SaveDealDocument(req, email); err != nil {
		slog.Error(ErrUploadDealDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadDealDocument.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{})
}

func DeleteDealDocument(c *gin.Context) {
	dealID := c.Param("deal_id")
	fileName := c.Param("file_name")
	if err := document.DeleteDealDocument(c.Request.Context(), dealID, fileName); err != nil {
		slog.Error(ErrDeleteDealDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteDealDocument.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetPresignedURL(c *gin.Context) {
	dealID := c.Param("deal_id")
	fileName := c.Param("file_name")
	url, err := document.GeneratePresignedURL(c.Request.Context(), document.ObjectName(dealID, fileName))
	if err != nil {
		slog.Error(ErrGetPresignedURL.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPresignedURL.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.GetPresignedURLResponse{
			URL: url,
		},
	})
}
