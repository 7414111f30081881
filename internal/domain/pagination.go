package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Pagination bounds / Bornes de pagination
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is a 1-based page request / Requête de page (base 1)
type Page struct {
	Number  int
	PerPage int
}

// Normalize clamps the page into valid bounds / Ramène la page dans des bornes valides
func (p Page) Normalize(defaultPerPage, maxPerPage int) Page {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	if maxPerPage <= 0 {
		maxPerPage = MaxPerPage
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

// Offset returns the SQL offset / Retourne l'offset SQL
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

// PageMeta describes a returned page on the wire / Décrit une page retournée
type PageMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageMeta builds metadata from a page and a total count / Construit les métadonnées
func NewPageMeta(p Page, total int) PageMeta {
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return PageMeta{
		Page:       p.Number,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: pages,
	}
}

// ListQuery holds paging, search, sort and id filters / Contient pagination, recherche, tri et filtres
type ListQuery struct {
	Page    Page
	Q       string
	Sort    string
	Filters map[string]int64
}

// WithFilter returns a copy with one more filter / Retourne une copie avec un filtre supplémentaire
func (q ListQuery) WithFilter(key string, value int64) ListQuery {
	filters := make(map[string]int64, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	filters[key] = value
	q.Filters = filters
	return q
}

// CacheKey is a stable representation of the query / Représentation stable de la requête
func (q ListQuery) CacheKey() string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "p=%d;n=%d;q=%s;s=%s", q.Page.Number, q.Page.PerPage, strings.ToLower(q.Q), q.Sort)
	for _, k := range keys {
		fmt.Fprintf(&b, ";%s=%d", k, q.Filters[k])
	}
	return b.String()
}
