/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// QueryFilter describes a WHERE clause and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes pagination, an optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "id ASC", "name DESC"
}

// NewPageRequest creates a page request; page is 1-based.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders ...string) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, filter: filter, orders: orders}
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		return defaultPage
	}
	return p.page
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		return defaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter { return p.filter }

func (p *PageRequest) GetOrders() []string { return p.orders }

// Pagination holds one page of items along with paging metadata.
type Pagination[T any] struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Items    []T `json:"items"`
}

// NewPagination constructs an empty page for req.
func NewPagination[T any](req *PageRequest) *Pagination[T] {
	return &Pagination[T]{Page: req.GetPage(), PageSize: req.GetPageSize(), Items: make([]T, 0)}
}

// Pages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
