package service

import (
	"context"
	"strings"

	"shopbot/internal/domain"
	"shopbot/internal/repository"
)

// CatalogService categories, products and variant pricing
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("category name is empty")
	}
	c := domain.Category{Name: name, Active: true}
	if err := s.repo.CreateCategory(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, activeOnly)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// ToggleCategory flips the active flag; categories are never hard deleted.
func (s *CatalogService) ToggleCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Active = !c.Active
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, name, description, photoRef string) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("product name is empty")
	}
	p := domain.Product{
		Name:        name,
		Description: strings.TrimSpace(description),
		PhotoRef:    strings.TrimSpace(photoRef),
		Active:      true,
	}
	if err := s.repo.CreateProduct(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.Validationf("invalid product id %d", id)
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *CatalogService) ToggleProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Active = !p.Active
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns every product, active or not, for operator pickers.
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, repository.ProductFilter{})
}

func (s *CatalogService) ListCategoryProducts(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, repository.ProductFilter{CategoryID: categoryID, ActiveOnly: true})
}

func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Validationf("search query is empty")
	}
	return s.repo.ListProducts(ctx, repository.ProductFilter{NameSubstring: query, ActiveOnly: true})
}

// AttachProduct links a product to a category; repeated calls are no-ops.
func (s *CatalogService) AttachProduct(ctx context.Context, productID, categoryID int64) error {
	return s.repo.AttachProduct(ctx, productID, categoryID)
}

// UpsertVariant prices a product for one unit of sale, overwriting any
// previous pricing for that unit.
func (s *CatalogService) UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertVariant(ctx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *CatalogService) GetVariant(ctx context.Context, productID int64, unit domain.Unit) (*domain.Variant, error) {
	return s.repo.GetVariant(ctx, productID, unit)
}

func (s *CatalogService) ListVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	return s.repo.ListVariants(ctx, productID)
}
