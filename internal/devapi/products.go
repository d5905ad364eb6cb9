package devapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/validate"
)

func productView(p product) map[string]any {
	m := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       json.Number(p.Price.String()),
		"category":    p.Category,
		"quantity":    p.Quantity,
		"created_at":  p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.ImageURL != nil {
		m["image_url"] = *p.ImageURL
	}
	return m
}

type productBody struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
	Category    *string          `json:"category"`
	Quantity    *int             `json:"quantity"`
}

func (b productBody) patch() model.ProductPatch {
	return model.ProductPatch{
		Name: b.Name, Description: b.Description, Price: b.Price,
		ImageURL: b.ImageURL, Category: b.Category, Quantity: b.Quantity,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (b productBody) create() model.NewProduct {
	return model.NewProduct{
		Name:        deref(b.Name),
		Description: deref(b.Description),
		Price:       deref(b.Price),
		ImageURL:    b.ImageURL,
		Category:    deref(b.Category),
		Quantity:    deref(b.Quantity),
	}
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	ps := s.store.listProducts()
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, productView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.product(chi.URLParam(r, "id"))
	if err != nil {
		notFound(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productView(p))
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if !readJSON(w, r, &body) {
		return
	}
	np := body.create()
	if err := validate.AddProduct(np); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.addProduct(product{
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		ImageURL:    np.ImageURL,
		Category:    np.Category,
		Quantity:    np.Quantity,
	}, s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusCreated, productView(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if !readJSON(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	patch := body.patch()
	if err := validate.UpdateProduct(id, patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.updateProduct(id, patch, s.now())
	if err != nil {
		notFound(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productView(p))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.deleteProduct(chi.URLParam(r, "id")); err != nil {
		notFound(w, err)
		return
	}
	writeMessage(w, "Product deleted successfully")
}

func notFound(w http.ResponseWriter, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal")
}
