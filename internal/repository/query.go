package repository

import (
	"fmt"
	"strings"
)

// DefaultPageSize is the fixed page size of every back office listing.
const DefaultPageSize = 10

const maxPageSize = 100

// searchCondition ORs a case-insensitive match of placeholder $n over columns.
func searchCondition(n int, columns ...string) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", column, n)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// likePattern escapes LIKE wildcards in term and wraps it in %...%.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}

func pageWindow(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = DefaultPageSize
	}
	return size, (page - 1) * size
}
