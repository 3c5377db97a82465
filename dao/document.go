package dao

import (
	"deal-agent-backend/model"
	"errors"

	"gorm.io/gorm"
)

func SaveDealDocument(doc *model.DealDocument) error {
	return DB.Create(doc).Error
}

func GetDealDocumentsByDealID(dealID string) ([]model.DealDocument, error) {
	var docs []model.DealDocument
	if err := DB.Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func GetDealDocumentByDealIDAndFileName(dealID, fileName string) (*model.DealDocument, error) {
	var doc model.DealDocument
	if err := DB.Where("deal_id = ? AND file_name = ?", dealID, fileName).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func DeleteDealDocument(dealID, fileName string) error {
	return DB.Where("deal_id = ? AND file_name = ?", dealID, fileName).
		Delete(&model.DealDocument{}).Error
}
