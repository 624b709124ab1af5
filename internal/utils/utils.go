package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"per_page"`
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Scope applies LIMIT/OFFSET to a gorm query
func (p Pagination) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PageSize)
	}
}

type Meta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

// Page is the list envelope returned by paginated endpoints
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

func NewPage[T any](data []T, total int64, p Pagination) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data: data,
		Meta: Meta{
			Total:       total,
			CurrentPage: p.Page,
			PerPage:     p.PageSize,
			TotalPage:   int((total + int64(p.PageSize) - 1) / int64(p.PageSize)),
		},
	}
}

func GetPaginationParams(c *gin.Context) Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	return Pagination{Page: page, PageSize: pageSize}
}

// ParseID reads a positive numeric path parameter
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// QueryBool reads "true"/"1" style query flags
func QueryBool(c *gin.Context, name string, def bool) bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
