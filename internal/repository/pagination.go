package repository

import "gorm.io/gorm"

// applyPagination 统一分页：页码从 1 起，pageSize 不大于 0 时视为不分页。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}
