package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

const (
	invalidCredentialsMessage = "invalid email or password"
	rateLimitedMessage        = "Too many attempts. Please try again later."
)

// API is the auth surface of the storefront API.
type API interface {
	Login(ctx context.Context, creds apiclient.Credentials) (*apiclient.AuthResult, error)
	Register(ctx context.Context, reg apiclient.Registration) (*apiclient.AuthResult, error)
	Cart(ctx context.Context) ([]types.CartLine, error)
}

type sessionStore interface {
	Save(ctx context.Context, token string, user *types.User) error
	ClearAuth(ctx context.Context) error
}

type cartStore interface {
	Replace(ctx context.Context, c cart.Cart) (cart.Cart, error)
	Reset(ctx context.Context) error
}

type wishlistStore interface {
	Refresh(ctx context.Context) ([]string, error)
	Clear()
}

type csrfResetter interface {
	ResetCSRF()
}

// Service defines the sign-in behavior used by the CLI and the shell.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*Result, error)
	Register(ctx context.Context, req RegisterRequest) (*Result, error)
	Logout(ctx context.Context) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	API      API
	Sessions sessionStore
	Carts    cartStore
	Wishlist wishlistStore
	CSRF     csrfResetter
	Logger   *logger.Logger
}

type service struct {
	api      API
	sessions sessionStore
	carts    cartStore
	wishlist wishlistStore
	csrf     csrfResetter
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("auth api is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		api:      params.API,
		sessions: params.Sessions,
		carts:    params.Carts,
		wishlist: params.Wishlist,
		csrf:     params.CSRF,
		logg:     logg,
		validate: newValidator(),
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.check(req); err != nil {
		return nil, err
	}
	res, err := s.api.Login(ctx, req)
	if err != nil {
		return nil, loginError(err)
	}
	return s.establish(ctx, res)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return nil, err
	}
	res, err := s.api.Register(ctx, req)
	if err != nil {
		if pkgerrors.IsRateLimited(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, rateLimitedMessage)
		}
		return nil, err
	}
	return s.establish(ctx, res)
}

// Logout forgets the session, the local cart and the wishlist.
func (s *service) Logout(ctx context.Context) error {
	err := multierr.Append(s.sessions.ClearAuth(ctx), s.carts.Reset(ctx))
	if s.wishlist != nil {
		s.wishlist.Clear()
	}
	if s.csrf != nil {
		s.csrf.ResetCSRF()
	}
	s.logg.Info(s.logg.WithComponent(ctx, "auth"), "signed out")
	return err
}

// establish persists the new session and pulls the server cart and wishlist.
// The server cart replaces the local one wholesale.
func (s *service) establish(ctx context.Context, res *apiclient.AuthResult) (*Result, error) {
	if s.csrf != nil {
		s.csrf.ResetCSRF()
	}
	if err := s.sessions.Save(ctx, res.Token, res.User); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist session")
	}
	ctx = s.logg.WithUserID(s.logg.WithComponent(ctx, "auth"), string(res.User.ID))
	s.logg.Info(ctx, "signed in")

	out := &Result{User: res.User}
	lines, err := s.api.Cart(ctx)
	if err != nil {
		out.CartErr = err
		s.logg.WarnErr(ctx, "server cart fetch after sign-in failed; keeping local cart", err)
	} else if replaced, err := s.carts.Replace(ctx, cart.New(lines)); err != nil {
		out.CartErr = err
		s.logg.Error(ctx, "failed to persist server cart", err)
	} else {
		out.Cart = replaced
	}

	if s.wishlist != nil {
		if _, err := s.wishlist.Refresh(ctx); err != nil {
			out.WishlistErr = err
		}
	}
	return out, nil
}

func (s *service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := map[string]string{}
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	return nil
}

// loginError keeps rate limiting distinct from bad credentials.
func loginError(err error) error {
	typed := pkgerrors.As(err)
	switch {
	case typed == nil:
		return err
	case typed.Code() == pkgerrors.CodeRateLimit:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, rateLimitedMessage)
	case typed.Status() == http.StatusUnauthorized, typed.Status() == http.StatusBadRequest, typed.Status() == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidCredentialsMessage)
	default:
		return err
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}
