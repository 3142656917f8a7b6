package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/localstore"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/internal/storefront/storefronttest"
	"github.com/angelmondragon/storefront/pkg/config"
)

func newCLI(t *testing.T, stdin string) (*cli, *bytes.Buffer, *storefronttest.Backend) {
	t.Helper()
	backend := storefronttest.NewBackend(
		storefronttest.Product("p1", "Classic Tee", "499", 5),
		storefronttest.Product("p2", "Hoodie", "1299", 0),
	)
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		API:     config.APIConfig{BaseURL: backend.URL, RequestTimeout: 2 * time.Second},
		State:   config.StateConfig{Driver: config.StateDriverMemory},
		Catalog: config.CatalogConfig{TTL: time.Minute},
	}
	app, err := storefront.New(context.Background(), cfg, nil, storefront.Options{Store: localstore.NewMemory()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	out := &bytes.Buffer{}
	return &cli{app: app, in: bufio.NewReader(strings.NewReader(stdin)), out: out}, out, backend
}

func expectRun(t *testing.T, c *cli, out *bytes.Buffer, want int, args ...string) {
	t.Helper()
	out.Reset()
	if got := c.run(context.Background(), args); got != want {
		t.Fatalf("%v: exit %d, want %d\n%s", args, got, want, out.String())
	}
}

func expectOutput(t *testing.T, out *bytes.Buffer, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out.String(), w) {
			t.Fatalf("expected %q in output:\n%s", w, out.String())
		}
	}
}

func TestRunWithoutArgsPrintsUsage(t *testing.T) {
	c, out, _ := newCLI(t, "")
	expectRun(t, c, out, 2)
	expectOutput(t, out, "usage: storefront")
}

func TestRunUnknownCommand(t *testing.T) {
	c, out, _ := newCLI(t, "")
	expectRun(t, c, out, 2, "frobnicate")
	expectOutput(t, out, "usage: storefront")
}

func TestProductsCommand(t *testing.T) {
	c, out, _ := newCLI(t, "")
	expectRun(t, c, out, 0, "products", "classic")
	expectOutput(t, out, "Classic Tee", "1 product(s) from network")
	if strings.Contains(out.String(), "Hoodie") {
		t.Fatalf("search should filter out Hoodie:\n%s", out.String())
	}
}

func TestAnonymousCartStaysLocal(t *testing.T) {
	c, out, backend := newCLI(t, "")

	expectRun(t, c, out, 0, "cart", "add", "-size", "M", "p1", "2")
	expectOutput(t, out, "2 item(s), subtotal 998.00", "Sign in to keep your cart")
	if backend.CartSaves() != 0 {
		t.Fatalf("anonymous cart must not be pushed")
	}

	expectRun(t, c, out, 1, "cart", "add", "p2")
	expectOutput(t, out, "out of stock")

	expectRun(t, c, out, 0, "cart", "set", "-size", "M", "p1", "0")
	expectOutput(t, out, "Cart is empty.")
}

func TestLoginThenCartSyncs(t *testing.T) {
	c, out, backend := newCLI(t, storefronttest.Password+"\n")

	expectRun(t, c, out, 0, "login", "asha@example.com")
	expectOutput(t, out, "Welcome back, Asha!")

	expectRun(t, c, out, 0, "cart", "add", "p1")
	if strings.Contains(out.String(), "Saved locally") {
		t.Fatalf("signed-in add should sync:\n%s", out.String())
	}
	if backend.CartSaves() != 1 {
		t.Fatalf("expected one cart push, got %d", backend.CartSaves())
	}

	expectRun(t, c, out, 0, "whoami")
	expectOutput(t, out, "Asha <asha@example.com>")

	expectRun(t, c, out, 1, "admin", "bulk-status", "shipped", "o1")
	expectOutput(t, out, "admin role required")
}

func TestBadLoginReportsCredentials(t *testing.T) {
	c, out, _ := newCLI(t, "wrong-password\n")
	expectRun(t, c, out, 1, "login", "asha@example.com")
	expectOutput(t, out, "invalid email or password")
}

func TestWishlistRequiresSignIn(t *testing.T) {
	c, out, _ := newCLI(t, "")
	expectRun(t, c, out, 1, "wishlist")
	expectOutput(t, out, "sign in to use the wishlist")
}

func TestConfirmReadsAnswer(t *testing.T) {
	c, _, _ := newCLI(t, "yes\nn\n")
	if ok, err := c.confirm(context.Background(), "Proceed?"); err != nil || !ok {
		t.Fatalf("first answer: ok=%v err=%v", ok, err)
	}
	if ok, err := c.confirm(context.Background(), "Proceed?"); err != nil || ok {
		t.Fatalf("second answer: ok=%v err=%v", ok, err)
	}
}
