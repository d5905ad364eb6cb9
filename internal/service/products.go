package service

import (
	"context"

	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/repository"
	"github.com/and161185/grocery-keeper/internal/validate"
)

// FeaturedCount is how many products the catalog features.
const FeaturedCount = 5

// ProductService defines catalog use cases.
type ProductService interface {
	// List returns all products.
	List(ctx context.Context) ([]model.Product, error)
	// Get returns one product by id.
	Get(ctx context.Context, id string) (model.Product, error)
	// Add validates and creates a product.
	Add(ctx context.Context, p model.NewProduct) (model.Product, error)
	// Update validates the present fields and updates a product.
	Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error)
	// Delete removes a product.
	Delete(ctx context.Context, id string) error
	// Catalog builds the home screen summary from one list call.
	Catalog(ctx context.Context) (model.Catalog, error)
}

type ProductServiceImpl struct {
	repo repository.ProductRepository
}

var _ ProductService = (*ProductServiceImpl)(nil)

// NewProductService constructs ProductService.
func NewProductService(repo repository.ProductRepository) *ProductServiceImpl {
	return &ProductServiceImpl{repo: repo}
}

// List delegates to the repository.
func (s *ProductServiceImpl) List(ctx context.Context) ([]model.Product, error) {
	return s.repo.List(ctx)
}

// Get rejects a blank id.
func (s *ProductServiceImpl) Get(ctx context.Context, id string) (model.Product, error) {
	if err := validate.ProductID(id); err != nil {
		return model.Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Add checks every required field, price > 0 and quantity >= 0.
func (s *ProductServiceImpl) Add(ctx context.Context, p model.NewProduct) (model.Product, error) {
	if err := validate.AddProduct(p); err != nil {
		return model.Product{}, err
	}
	return s.repo.Add(ctx, p)
}

// Update checks the id and the fields that are present.
func (s *ProductServiceImpl) Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	if err := validate.UpdateProduct(id, patch); err != nil {
		return model.Product{}, err
	}
	return s.repo.Update(ctx, id, patch)
}

// Delete rejects a blank id.
func (s *ProductServiceImpl) Delete(ctx context.Context, id string) error {
	if err := validate.ProductID(id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Catalog returns the first FeaturedCount products as featured, the
// categories in first-seen order and the products grouped by category.
func (s *ProductServiceImpl) Catalog(ctx context.Context) (model.Catalog, error) {
	ps, err := s.repo.List(ctx)
	if err != nil {
		return model.Catalog{}, err
	}
	return BuildCatalog(ps), nil
}

// BuildCatalog groups ps without reordering them.
func BuildCatalog(ps []model.Product) model.Catalog {
	c := model.Catalog{
		Featured:   make([]model.Product, 0, min(len(ps), FeaturedCount)),
		Categories: []string{},
		ByCategory: make(map[string][]model.Product),
	}
	c.Featured = append(c.Featured, ps[:min(len(ps), FeaturedCount)]...)
	for _, p := range ps {
		if _, seen := c.ByCategory[p.Category]; !seen {
			c.Categories = append(c.Categories, p.Category)
		}
		c.ByCategory[p.Category] = append(c.ByCategory[p.Category], p)
	}
	return c
}
