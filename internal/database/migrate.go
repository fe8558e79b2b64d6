package database

import (
	"fmt"

	"gorm.io/gorm"

	"portfolioParadise/internal/portfolio"
)

// Models 按依赖顺序列出全部持久化实体。
func Models() []any {
	return []any{
		&portfolio.Student{},
		&portfolio.Teacher{},
		&portfolio.PersonalGoal{},
		&portfolio.Dream{},
		&portfolio.Category{},
		&portfolio.PageTemplate{},
		&portfolio.PortfolioPage{},
		&portfolio.PageFile{},
		&portfolio.CalendarEntry{},
		&portfolio.SharedLink{},
		&portfolio.ShareRequest{},
		&portfolio.Message{},
	}
}

// Migrate 创建或更新全部表结构。
// 外键不在数据库层声明，级联与置空由 portfolio 的删除路径负责。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
