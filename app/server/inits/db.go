package inits

import (
	"blog-backend/app/server/config"
	"blog-backend/app/server/models"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func DB(cfg *config.Config) (db *gorm.DB, err error) {
	// 打开连接，开启方言错误翻译以便识别唯一索引冲突
	if db, err = gorm.Open(postgres.Open(cfg.System.DBConnectionString), &gorm.Config{
		TranslateError: true,
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 迁移
	if err = mig(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 初始化启动数据
	if err = initData(db, cfg); err != nil {
		return nil, fmt.Errorf("failed to init data into database: %w", err)
	}

	// 返回
	return db, nil
}

func mig(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Post{},
	)
}

func initData(db *gorm.DB, cfg *config.Config) (err error) {
	// 查询现有记录数量
	var counter int64

	// 初始化用户
	if err = db.Model(&models.User{}).Count(&counter).Error; err != nil {
		return fmt.Errorf("failed to get user count: %w", err)
	} else if counter == 0 { // 没有任何用户，添加初始超级管理员
		// 创建密码
		var password string
		if password, err = argon2id.CreateHash(cfg.Seed.AdminPassword, argon2id.DefaultParams); err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}

		// 插入记录
		if err = db.Create(&models.User{
			Email:      strings.ToLower(cfg.Seed.AdminEmail),
			Username:   "admin",
			FullName:   "Administrator",
			Role:       models.RoleSuperAdmin,
			IsActive:   true,
			IsVerified: true,
			Password:   password,
		}).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
	}

	// 已有数据或全部导入成功
	return nil
}
