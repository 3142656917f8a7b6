package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
)

const usage = `usage: storefront <command> [args]

  whoami                               show the signed-in user
  products [query]                     list or search the catalog
  cart show                            show the local cart
  cart add [-size S] [-color C] <id> [qty]
  cart set [-size S] [-color C] <id> <qty>
  cart remove [-size S] [-color C] <id>
  cart clear
  wishlist [toggle <id>]
  login <email>                        password is read from stdin
  register <name> <email> [phone]      password is read from stdin
  logout
  orders [id]
  pincode <code>
  checkout -name N -phone P -line1 L -city C -state S -pincode Z [-payment cod|online] [-coupon X]
  admin delete-product <id>
  admin bulk-status <status> <order-id>...
  admin pincodes enable|disable <pincode>...
`

// settleTimeout bounds how long the CLI waits for background reconciliation.
const settleTimeout = 30 * time.Second

var errUsage = errors.New("usage")

type cli struct {
	app *storefront.App
	in  *bufio.Reader
	out io.Writer
}

// run executes one command and returns the process exit code. Commands that
// only read local state run before reconciliation settles; everything else
// waits for it so server state cannot overwrite the command's effect.
func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return 2
	}

	if _, err := c.app.Start(ctx); err != nil {
		fmt.Fprintf(c.out, "warning: %s\n", describe(err))
	}

	local := args[0] == "whoami" || (args[0] == "cart" && (len(args) == 1 || args[1] == "show"))
	if !local {
		c.settle(ctx)
	}

	err := c.dispatch(ctx, args)
	if local {
		c.settle(ctx)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(c.out, usage)
		return 2
	default:
		fmt.Fprintf(c.out, "error: %s\n", describe(err))
		return 1
	}
}

func (c *cli) settle(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	out, err := c.app.Settle(waitCtx)
	if err != nil {
		fmt.Fprintf(c.out, "warning: %s\n", describe(err))
		return
	}
	if out.AuthCleared {
		fmt.Fprintln(c.out, "Your session has expired. Please sign in again.")
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "whoami":
		return c.whoami(ctx)
	case "products":
		return c.products(ctx, strings.Join(rest, " "))
	case "cart":
		return c.cart(ctx, rest)
	case "wishlist":
		return c.wishlist(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "register":
		return c.register(ctx, rest)
	case "logout":
		if err := c.app.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Signed out.")
		return nil
	case "orders":
		return c.orders(ctx, rest)
	case "pincode":
		return c.pincode(ctx, rest)
	case "checkout":
		return c.checkout(ctx, rest)
	case "admin":
		return c.admin(ctx, rest)
	default:
		return errUsage
	}
}

func (c *cli) whoami(ctx context.Context) error {
	snap, err := c.app.Sessions.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !snap.Authenticated() {
		fmt.Fprintf(c.out, "Not signed in (%s)\n", c.app.Bootstrap.State())
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s> role=%s (%s)\n", snap.User.Name, snap.User.Email, snap.User.Role, c.app.Bootstrap.State())
	return nil
}

func (c *cli) products(ctx context.Context, query string) error {
	res := c.app.Catalog.Search(ctx, query, "")
	if res.Err != nil {
		return res.Err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range res.Products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d product(s) from %s\n", len(res.Products), res.Source)
	return nil
}

func variantFlags(name string, args []string) (*cart.Variant, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	size := fs.String("size", "", "variant size")
	color := fs.String("color", "", "variant color")
	if err := fs.Parse(args); err != nil {
		return nil, nil, errUsage
	}
	if *size == "" && *color == "" {
		return nil, fs.Args(), nil
	}
	return &cart.Variant{Size: *size, Color: *color}, fs.Args(), nil
}

func (c *cli) cart(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		current, err := c.app.Carts.Current(ctx)
		if err != nil {
			return err
		}
		c.printCart(current, "")
		return nil
	}

	sub, rest := args[0], args[1:]
	if sub == "clear" {
		mut, err := c.app.Carts.Clear(ctx)
		if err != nil {
			return err
		}
		c.printCart(mut.Cart, mut.Sync.Outcome)
		return nil
	}

	variant, pos, err := variantFlags("cart "+sub, rest)
	if err != nil {
		return err
	}

	var mut cart.Mutation
	switch {
	case sub == "add" && (len(pos) == 1 || len(pos) == 2):
		qty := 1
		if len(pos) == 2 {
			if qty, err = strconv.Atoi(pos[1]); err != nil {
				return errUsage
			}
		}
		product, err := c.app.Catalog.Product(ctx, pos[0])
		if err != nil {
			return err
		}
		if !product.InStock() {
			return pkgerrors.New(pkgerrors.CodeConflict, "This product is out of stock")
		}
		mut, err = c.app.Carts.Add(ctx, *product, qty, variant)
		if err != nil {
			return err
		}
	case sub == "set" && len(pos) == 2:
		qty, convErr := strconv.Atoi(pos[1])
		if convErr != nil {
			return errUsage
		}
		if mut, err = c.app.Carts.UpdateQuantity(ctx, pos[0], variant, qty); err != nil {
			return err
		}
	case sub == "remove" && len(pos) == 1:
		if mut, err = c.app.Carts.Remove(ctx, pos[0], variant); err != nil {
			return err
		}
	default:
		return errUsage
	}
	c.printCart(mut.Cart, mut.Sync.Outcome)
	return nil
}

func (c *cli) printCart(current cart.Cart, sync cart.Outcome) {
	if current.Empty() {
		fmt.Fprintln(c.out, "Cart is empty.")
	} else {
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVARIANT\tQTY\tTOTAL")
		for _, line := range current.Lines() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", line.ID, line.Name, line.SelectedVariant.Key(), line.Quantity, line.LineTotal().StringFixed(2))
		}
		_ = tw.Flush()
		fmt.Fprintf(c.out, "%d item(s), subtotal %s\n", current.TotalQuantity(), current.Subtotal().StringFixed(2))
	}
	switch sync {
	case cart.OutcomeFailed:
		fmt.Fprintln(c.out, "Saved locally; the server copy could not be updated.")
	case cart.OutcomeSkippedAnonymous:
		fmt.Fprintln(c.out, "Saved locally. Sign in to keep your cart across devices.")
	}
}

func (c *cli) wishlist(ctx context.Context, args []string) error {
	if !c.signedIn(ctx) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to use the wishlist")
	}
	switch {
	case len(args) == 0:
		for _, id := range c.app.Wishlist.IDs() {
			fmt.Fprintln(c.out, id)
		}
		return nil
	case len(args) == 2 && args[0] == "toggle":
		saved, err := c.app.Wishlist.Toggle(ctx, args[1])
		if err != nil {
			return err
		}
		if saved {
			fmt.Fprintln(c.out, "Added to wishlist.")
		} else {
			fmt.Fprintln(c.out, "Removed from wishlist.")
		}
		return nil
	default:
		return errUsage
	}
}

func (c *cli) signedIn(ctx context.Context) bool {
	snap, err := c.app.Sessions.Snapshot(ctx)
	return err == nil && snap.Authenticated()
}

func (c *cli) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	password, err := c.readLine("Password: ")
	if err != nil {
		return err
	}
	res, err := c.app.Auth.Login(ctx, auth.LoginRequest{Email: args[0], Password: password})
	if err != nil {
		return err
	}
	c.printAuth(res, "Welcome back")
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}
	password, err := c.readLine("Password: ")
	if err != nil {
		return err
	}
	req := auth.RegisterRequest{Name: args[0], Email: args[1], Password: password}
	if len(args) == 3 {
		req.Phone = args[2]
	}
	res, err := c.app.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	c.printAuth(res, "Welcome")
	return nil
}

func (c *cli) printAuth(res *auth.Result, greeting string) {
	fmt.Fprintf(c.out, "%s, %s!\n", greeting, res.User.Name)
	if res.CartErr != nil {
		fmt.Fprintln(c.out, "Your saved cart could not be loaded; keeping the local one.")
	}
	fmt.Fprintf(c.out, "Cart has %d item(s).\n", res.Cart.TotalQuantity())
}

func (c *cli) orders(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		list, err := c.app.Orders.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tTOTAL\tPLACED")
		for _, o := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Status, o.Total.StringFixed(2), formatTime(o.CreatedAt))
		}
		return tw.Flush()
	case 1:
		order, err := c.app.Orders.Track(ctx, args[0])
		if err != nil {
			return err
		}
		c.printOrder(order)
		return nil
	default:
		return errUsage
	}
}

func (c *cli) printOrder(o *types.Order) {
	fmt.Fprintf(c.out, "Order %s: %s, total %s\n", o.ID, o.Status, o.Total.StringFixed(2))
	for _, line := range o.Items {
		fmt.Fprintf(c.out, "  %d x %s\n", line.Quantity, line.Name)
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func (c *cli) pincode(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	status, err := c.app.Orders.CheckPincode(ctx, args[0])
	if err != nil {
		return err
	}
	if !status.Serviceable {
		fmt.Fprintf(c.out, "We do not deliver to %s yet.\n", status.Pincode)
		return nil
	}
	fmt.Fprintf(c.out, "Delivery to %s in about %d day(s).\n", status.Pincode, status.DeliveryDays)
	return nil
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var addr types.Address
	var line2 string
	fs.StringVar(&addr.Name, "name", "", "recipient name")
	fs.StringVar(&addr.Phone, "phone", "", "recipient phone")
	fs.StringVar(&addr.Line1, "line1", "", "address line 1")
	fs.StringVar(&line2, "line2", "", "address line 2")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.State, "state", "", "state")
	fs.StringVar(&addr.Pincode, "pincode", "", "pincode")
	payment := fs.String("payment", orders.PaymentCOD, "cod or online")
	coupon := fs.String("coupon", "", "coupon code")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}
	if line2 != "" {
		addr.Line2 = &line2
	}

	res, err := c.app.Orders.Checkout(ctx, orders.CheckoutInput{Address: addr, PaymentMethod: *payment, CouponCode: *coupon})
	if err != nil {
		return err
	}
	if res.Coupon != nil {
		fmt.Fprintf(c.out, "Coupon %s applied: -%s\n", res.Coupon.Code, res.Coupon.Discount.StringFixed(2))
	}
	fmt.Fprintln(c.out, "Order placed.")
	c.printOrder(res.Order)
	return nil
}

// confirm asks on stdin; anything but y/yes declines.
func (c *cli) confirm(_ context.Context, prompt string) (bool, error) {
	answer, err := c.readLine(prompt + " [y/N] ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func (c *cli) admin(ctx context.Context, args []string) error {
	snap, err := c.app.Sessions.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !snap.User.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if len(args) < 2 {
		return errUsage
	}

	confirm := admin.ConfirmFunc(c.confirm)
	switch args[0] {
	case "delete-product":
		if len(args) != 2 {
			return errUsage
		}
		ok, err := c.confirm(ctx, fmt.Sprintf("Delete product %s?", args[1]))
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConfirmationRequired, "not confirmed")
		}
		if err := c.app.Admin.DeleteProduct(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Product deleted.")
	case "bulk-status":
		if len(args) < 3 {
			return errUsage
		}
		req := apiclient.BulkOrderStatus{Status: args[1], OrderIDs: args[2:]}
		if err := c.app.Admin.BulkUpdateOrderStatus(ctx, req, confirm); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Updated %d order(s).\n", len(req.OrderIDs))
	case "pincodes":
		if len(args) < 3 || (args[1] != "enable" && args[1] != "disable") {
			return errUsage
		}
		req := apiclient.BulkPincodeToggle{Active: args[1] == "enable", Pincodes: args[2:]}
		if err := c.app.Admin.BulkTogglePincodes(ctx, req, confirm); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Updated %d pincode(s).\n", len(req.Pincodes))
	default:
		return errUsage
	}
	return nil
}

// describe renders err the way the user should read it.
func describe(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err.Error()
	}
	if msg := typed.Message(); msg != "" {
		return msg
	}
	return pkgerrors.MetadataFor(typed.Code()).PublicMessage
}
