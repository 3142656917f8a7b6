package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	PaymentCOD    = "cod"
	PaymentOnline = "online"
)

// API is the order surface of the storefront API.
type API interface {
	Orders(ctx context.Context) ([]types.Order, error)
	Order(ctx context.Context, id string) (*types.Order, error)
	PlaceOrder(ctx context.Context, req apiclient.OrderRequest) (*types.Order, error)
	CheckPincode(ctx context.Context, code string) (*types.PincodeStatus, error)
	ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*types.CouponResult, error)
}

type userSource interface {
	User(ctx context.Context) (*types.User, error)
}

type cartStore interface {
	Current(ctx context.Context) (cart.Cart, error)
	Reset(ctx context.Context) error
}

// CheckoutInput is what the user supplies at checkout.
type CheckoutInput struct {
	Address       types.Address `json:"shippingAddress"`
	PaymentMethod string        `json:"paymentMethod"`
	CouponCode    string        `json:"couponCode,omitempty"`
}

// CheckoutResult is the placed order plus the coupon verdict, if any.
type CheckoutResult struct {
	Order  *types.Order        `json:"order"`
	Coupon *types.CouponResult `json:"coupon,omitempty"`
}

type ServiceParams struct {
	API    API
	Users  userSource
	Carts  cartStore
	Logger *logger.Logger
}

// Service tracks orders and hands the cart off to the server at checkout.
// Pricing, stock and payment are decided server-side.
type Service struct {
	api   API
	users userSource
	carts cartStore
	logg  *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("orders api is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: params.API, users: params.Users, carts: params.Carts, logg: logg}, nil
}

func (s *Service) List(ctx context.Context) ([]types.Order, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	orders, err := s.api.Orders(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []types.Order{}
	}
	return orders, nil
}

// Track returns one order by id.
func (s *Service) Track(ctx context.Context, id string) (*types.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	return s.api.Order(ctx, id)
}

// CheckPincode reports whether deliveries reach code.
func (s *Service) CheckPincode(ctx context.Context, code string) (*types.PincodeStatus, error) {
	code = strings.TrimSpace(code)
	if !types.ValidPincode(code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be six digits")
	}
	return s.api.CheckPincode(ctx, code)
}

// Checkout places an order for the current cart. The address must be
// serviceable and the coupon, when given, valid. On success the local cart is
// emptied; the server clears its own copy when it accepts the order.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	current, err := s.carts.Current(ctx)
	if err != nil {
		return nil, err
	}
	if current.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := in.Address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = PaymentCOD
	}
	if method != PaymentCOD && method != PaymentOnline {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]string{"paymentMethod": method})
	}

	status, err := s.api.CheckPincode(ctx, strings.TrimSpace(in.Address.Pincode))
	if err != nil {
		return nil, err
	}
	if !status.Serviceable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery is not available for this pincode").
			WithDetails(map[string]string{"pincode": status.Pincode})
	}

	out := &CheckoutResult{}
	code := strings.ToUpper(strings.TrimSpace(in.CouponCode))
	if code != "" {
		coupon, err := s.api.ValidateCoupon(ctx, code, current.Subtotal())
		if err != nil {
			return nil, err
		}
		if !coupon.Valid {
			msg := coupon.Message
			if msg == "" {
				msg = "coupon is not valid"
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, msg)
		}
		out.Coupon = coupon
	}

	order, err := s.api.PlaceOrder(ctx, apiclient.OrderRequest{
		Items:           current.Lines(),
		ShippingAddress: in.Address,
		PaymentMethod:   method,
		CouponCode:      code,
	})
	if err != nil {
		return nil, err
	}
	out.Order = order

	if err := s.carts.Reset(ctx); err != nil {
		s.logg.Error(ctx, "order placed but local cart could not be cleared", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", string(order.ID)), "order placed")
	return out, nil
}

func (s *Service) requireUser(ctx context.Context) error {
	user, err := s.users.User(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to continue")
	}
	return nil
}
