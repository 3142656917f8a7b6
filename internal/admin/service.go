package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// API is the admin surface of the storefront API.
type API interface {
	CreateProduct(ctx context.Context, product types.Product) (*types.Product, error)
	UpdateProduct(ctx context.Context, id string, product types.Product) (*types.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	BulkUpdateOrderStatus(ctx context.Context, req apiclient.BulkOrderStatus) error
	BulkTogglePincodes(ctx context.Context, req apiclient.BulkPincodeToggle) error
}

// Invalidator drops cached catalog data after a product changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

type ServiceParams struct {
	API     API
	Catalog Invalidator
	Logger  *logger.Logger
}

// Service runs back-office actions. Product edits invalidate the catalog
// cache; bulk actions are sent only after explicit confirmation.
type Service struct {
	api     API
	catalog Invalidator
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("admin api is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog invalidator is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: params.API, catalog: params.Catalog, logg: logg}, nil
}

func (s *Service) CreateProduct(ctx context.Context, product types.Product) (*types.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	created, err := s.api.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, product types.Product) (*types.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	updated, err := s.api.UpdateProduct(ctx, id, product)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// BulkUpdateOrderStatus moves many orders to one status after confirmation.
func (s *Service) BulkUpdateOrderStatus(ctx context.Context, req apiclient.BulkOrderStatus, confirm Confirmer) error {
	if len(req.OrderIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one order is required")
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}
	prompt := fmt.Sprintf("Set %d order(s) to %q?", len(req.OrderIDs), req.Status)
	if err := s.confirm(ctx, confirm, prompt); err != nil {
		return err
	}
	return s.api.BulkUpdateOrderStatus(ctx, req)
}

// BulkTogglePincodes enables or disables delivery for many pincodes after
// confirmation.
func (s *Service) BulkTogglePincodes(ctx context.Context, req apiclient.BulkPincodeToggle, confirm Confirmer) error {
	if len(req.Pincodes) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one pincode is required")
	}
	for _, code := range req.Pincodes {
		if !types.ValidPincode(code) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid pincode").WithDetails(map[string]string{"pincode": code})
		}
	}
	verb := "Disable"
	if req.Active {
		verb = "Enable"
	}
	prompt := fmt.Sprintf("%s delivery for %d pincode(s)?", verb, len(req.Pincodes))
	if err := s.confirm(ctx, confirm, prompt); err != nil {
		return err
	}
	return s.api.BulkTogglePincodes(ctx, req)
}

func (s *Service) confirm(ctx context.Context, confirm Confirmer, prompt string) error {
	if confirm == nil {
		return pkgerrors.New(pkgerrors.CodeConfirmationRequired, prompt)
	}
	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeConfirmationRequired, err, prompt)
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConfirmationRequired, prompt)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logg.WarnErr(s.logg.WithComponent(ctx, "admin"), "failed to invalidate catalog cache", err)
	}
}

func validateProduct(p types.Product) error {
	details := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		details["name"] = "is required"
	}
	if !p.Price.IsPositive() {
		details["price"] = "must be greater than zero"
	}
	if p.Stock < 0 {
		details["stock"] = "must not be negative"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}
