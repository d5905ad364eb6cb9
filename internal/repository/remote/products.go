package remote

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/api"
	"github.com/and161185/grocery-keeper/internal/convert"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/repository"
)

var _ repository.ProductRepository = (*Products)(nil)

// Products implements repository.ProductRepository.
type Products struct {
	api Caller
	log *zap.Logger
}

// NewProducts constructs the product repository.
func NewProducts(c Caller, log *zap.Logger) *Products {
	return &Products{api: c, log: orNop(log)}
}

// List returns every product; an empty catalog is an empty, non-nil slice.
func (r *Products) List(ctx context.Context) ([]model.Product, error) {
	v, err := r.api.Call(ctx, http.MethodGet, api.PathProducts, nil)
	if err != nil {
		return nil, fail(r.log, "list_products", err)
	}
	ps, err := convert.ProductsResponse(v)
	if err != nil {
		return nil, fail(r.log, "list_products", err)
	}
	return ps, nil
}

// Get returns one product.
func (r *Products) Get(ctx context.Context, id string) (model.Product, error) {
	return r.one(ctx, "get_product", http.MethodGet, api.ProductPath(id), nil)
}

// Add creates a product.
func (r *Products) Add(ctx context.Context, p model.NewProduct) (model.Product, error) {
	return r.one(ctx, "add_product", http.MethodPost, api.PathAddProduct, convert.NewProductBody(p))
}

// Update changes the set fields of a product.
func (r *Products) Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	return r.one(ctx, "update_product", http.MethodPut, api.ProductPath(id), convert.ProductPatchBody(patch))
}

// Delete removes a product; the response body is ignored.
func (r *Products) Delete(ctx context.Context, id string) error {
	if _, err := r.api.Call(ctx, http.MethodDelete, api.ProductPath(id), nil); err != nil {
		return fail(r.log, "delete_product", err)
	}
	return nil
}

func (r *Products) one(ctx context.Context, op, method, path string, body any) (model.Product, error) {
	v, err := r.api.Call(ctx, method, path, body)
	if err != nil {
		return model.Product{}, fail(r.log, op, err)
	}
	p, err := convert.ProductResponse(v)
	if err != nil {
		return model.Product{}, fail(r.log, op, err)
	}
	return p, nil
}
