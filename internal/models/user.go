package models

import (
	"time"

	"gorm.io/gorm"
)

// User 买家用户表。注册非必需，匿名订单仅凭手机号查询。
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`              // 主键
	Phone        string         `gorm:"uniqueIndex;not null" json:"phone"` // 手机号
	PasswordHash string         `gorm:"not null" json:"-"`                 // 密码哈希
	LastLoginAt  *time.Time     `json:"last_login_at"`                     // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                        // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
