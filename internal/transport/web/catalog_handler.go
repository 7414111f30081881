package web

import (
	"context"
	"net/http"

	"github.com/orientamada/orientamada/internal/service"
)

// catalogRoutes serves one reference entity / Sert un référentiel
type catalogRoutes[T any, P service.Entity[T]] struct {
	catalog *service.Catalog[T, P]
}

func routesFor[T any, P service.Entity[T]](c *service.Catalog[T, P]) catalogRoutes[T, P] {
	return catalogRoutes[T, P]{catalog: c}
}

func (c catalogRoutes[T, P]) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, meta, err := c.catalog.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items, meta)
}

func (c catalogRoutes[T, P]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := c.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

// nested lists children of the {id} parent; an unknown parent is a 404 / Liste les enfants du parent {id}
func (c catalogRoutes[T, P]) nested(filter string, parent func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := parent(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := parseListQuery(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		items, meta, err := c.catalog.List(r.Context(), q.WithFilter(filter, id))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeList(w, items, meta)
	}
}

func (c catalogRoutes[T, P]) create(w http.ResponseWriter, r *http.Request) {
	entity := new(T)
	if err := readJSON(w, r, entity); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := c.catalog.Create(r.Context(), actorID(r), entity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (c catalogRoutes[T, P]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity := new(T)
	if err := readJSON(w, r, entity); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := c.catalog.Update(r.Context(), actorID(r), id, entity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

func (c catalogRoutes[T, P]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exists adapts a catalog Get into a parent check / Adapte Get en vérification d'existence
func exists[T any, P service.Entity[T]](c *service.Catalog[T, P]) func(ctx context.Context, id int64) error {
	return func(ctx context.Context, id int64) error {
		_, err := c.Get(ctx, id)
		return err
	}
}
