package data

import (
	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// Data 数据层资源持有者
type Data struct {
	db *gorm.DB
}

// NewData 创建数据层
func NewData(db *gorm.DB, logger log.Logger) (*Data, func(), error) {
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
	return &Data{db: db}, cleanup, nil
}
