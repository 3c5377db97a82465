package dao

import (
	"deal-agent-backend/config"
	"deal-agent-backend/model"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DB 全局数据库连接
var DB *gorm.DB

// Init 建立 MySQL 连接并迁移表结构
func Init() error {
	db, err := gorm.Open(mysql.Open(config.Cfg.DB.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.ConversationSnapshot{},
		&model.Deal{},
		&model.DealDocument{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	DB = db
	return nil
}
