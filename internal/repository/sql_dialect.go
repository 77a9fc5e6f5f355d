package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// lockForUpdate 在支持行锁的方言上追加 SELECT ... FOR UPDATE。
// sqlite 单写入连接下无行锁，一致性由条件更新的 RowsAffected 兜底。
func lockForUpdate(query *gorm.DB) *gorm.DB {
	if query == nil {
		return query
	}
	switch dbDialectName(query) {
	case "postgres", "postgresql":
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return query
	}
}

// likeOperator 返回当前方言的模糊匹配操作符。
func likeOperator(db *gorm.DB) string {
	switch dbDialectName(db) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}
