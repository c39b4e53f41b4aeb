package data

import (
	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// Data 数据访问层资源
type Data struct {
	db *gorm.DB
}

// NewData 创建数据访问层
func NewData(db *gorm.DB, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	cleanup := func() {
		helper.Info("closing database resources")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	return &Data{db: db}, cleanup, nil
}
