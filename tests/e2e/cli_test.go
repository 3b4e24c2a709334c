// Package e2e_test contains end-to-end tests that exercise the full shop CLI
// by importing the root command and running it in-process against a fake
// storefront API and a temporary shop home.
// Output is captured via cobra's SetOut/SetErr so tests do not touch
// os.Stdout or os.Stderr.
package e2e_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/shopspring/decimal"

	rootcmd "github.com/go-ports/storefront/cmd/shop/root"
	"github.com/go-ports/storefront/internal/fakeapi"
	"github.com/go-ports/storefront/internal/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type env struct {
	t      *testing.T
	home   string
	fake   *fakeapi.Server
	mug    models.Product
	teapot models.Product
}

// newEnv starts a fake API with two accounts and two products and writes a
// config.yaml pointing at it into a fresh shop home.
func newEnv(t *testing.T) *env {
	t.Helper()

	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	fake.AddUser("ada@example.com", "hunter22", false)
	fake.AddUser("root@example.com", "hunter22", true)
	e := &env{
		t:      t,
		home:   t.TempDir(),
		fake:   fake,
		mug:    fake.AddProduct(models.ProductInput{SKU: "MUG", Name: "Mug", Price: decimal.RequireFromString("10.00"), Stock: 10}),
		teapot: fake.AddProduct(models.ProductInput{SKU: "POT", Name: "Teapot", Price: decimal.RequireFromString("19.99"), Stock: 2}),
	}

	cfg := "api:\n  base_url: " + srv.URL + fakeapi.Prefix + "\n  requests_per_second: 0\n"
	if err := os.WriteFile(filepath.Join(e.home, "config.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return e
}

// run executes the root command against e.home and returns the captured
// stdout and stderr along with any execution error.
func (e *env) run(args ...string) (stdout, stderr string, err error) {
	return e.runWithInput("", args...)
}

func (e *env) runWithInput(stdin string, args ...string) (stdout, stderr string, err error) {
	e.t.Helper()

	var out, errOut bytes.Buffer
	root := rootcmd.New()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--home", e.home}, args...))
	err = root.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}

func (e *env) login(c *qt.C, email string) {
	_, _, err := e.run("login", "--email", email, "--password", "hunter22")
	c.Assert(err, qt.IsNil)
}

var orderNumber = regexp.MustCompile(`Order #(\d+)`)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// ---------------------------------------------------------------------------
// Help
// ---------------------------------------------------------------------------

func TestHelp_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	out, _, err := e.run("--help")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "shop")
	c.Assert(out, qt.Contains, "checkout")
}

// ---------------------------------------------------------------------------
// Login / whoami / logout
// ---------------------------------------------------------------------------

func TestLogin_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("password flag", func(c *qt.C) {
		e := newEnv(t)
		out, _, err := e.run("login", "--email", "ada@example.com", "--password", "hunter22")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "Login successful!")
		c.Assert(out, qt.Contains, "Logged in as ada@example.com")

		out, _, err = e.run("whoami")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "<ada@example.com> (customer)")
		c.Assert(out, qt.Contains, "Token: ")
		c.Assert(out, qt.Contains, "Expires: ")
	})

	c.Run("password from stdin", func(c *qt.C) {
		e := newEnv(t)
		out, _, err := e.runWithInput("hunter22\n", "login", "--email", "root@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "Logged in as root@example.com")

		out, _, err = e.run("whoami", "--offline")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "(admin)")
	})
}

func TestLogin_FailurePath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	c.Run("wrong password", func(c *qt.C) {
		_, stderr, err := e.run("login", "--email", "ada@example.com", "--password", "nope")
		c.Assert(err, qt.ErrorMatches, "login failed")
		c.Assert(stderr, qt.Contains, "Error: Incorrect email or password")

		out, _, err := e.run("whoami")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "Not logged in.")
	})

	c.Run("missing email flag", func(c *qt.C) {
		_, _, err := e.run("login", "--password", "hunter22")
		c.Assert(err, qt.IsNotNil)
	})

	c.Run("empty stdin", func(c *qt.C) {
		_, _, err := e.runWithInput("", "login", "--email", "ada@example.com")
		c.Assert(err, qt.ErrorMatches, "password is required")
	})
}

func TestRegister_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	out, _, err := e.run("register", "--email", "new@example.com", "--password", "longenough", "--name", "New Person")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Registration successful! Please login.")

	_, stderr, err := e.run("register", "--email", "new@example.com", "--password", "longenough")
	c.Assert(err, qt.ErrorMatches, "registration failed")
	c.Assert(stderr, qt.Contains, "Email already registered")
}

func TestLogout_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.login(c, "ada@example.com")

	out, _, err := e.run("logout")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Logged out successfully")

	out, _, err = e.run("whoami")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Not logged in.")
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func TestProducts_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	out, _, err := e.run("products")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Mug")
	c.Assert(out, qt.Contains, "$10.00")
	c.Assert(out, qt.Contains, "Teapot")

	out, _, err = e.run("products", "--max-price", "15")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Mug")
	c.Assert(out, qt.Not(qt.Contains), "Teapot")

	out, _, err = e.run("products", "--search", "nothing-matches")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "No products found.")
}

func TestProducts_FailurePath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	_, _, err := e.run("products", "show", "abc")
	c.Assert(err, qt.ErrorMatches, `invalid product id "abc"`)

	_, _, err = e.run("products", "--min-price", "cheap")
	c.Assert(err, qt.ErrorMatches, `invalid --min-price "cheap"`)

	_, _, err = e.run("products", "show", "999")
	c.Assert(err, qt.ErrorMatches, ".*Product not found with id: 999")
}

// ---------------------------------------------------------------------------
// Cart, checkout and orders
// ---------------------------------------------------------------------------

func TestCart_RequiresLogin(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	for _, args := range [][]string{{"cart"}, {"cart", "clear"}, {"checkout"}, {"orders"}} {
		_, _, err := e.run(args...)
		c.Assert(err, qt.ErrorMatches, "not logged in: run `shop login` first", qt.Commentf("args: %v", args))
	}
}

func TestShoppingFlow_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.login(c, "ada@example.com")

	out, _, err := e.run("cart")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Your cart is empty.")

	out, _, err = e.run("cart", "add", itoa(e.mug.ID), "-q", "2")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Added to cart!")
	c.Assert(out, qt.Contains, "Total: $20.00")

	out, _, err = e.run("cart", "add", itoa(e.teapot.ID))
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Items: 2  Total: $39.99")

	out, errOut, err := e.run("-v", "cart", "remove", itoa(e.teapot.ID))
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Removed from cart")
	c.Assert(out, qt.Contains, "Total: $20.00")
	c.Assert(errOut, qt.Contains, `msg="cart changed"`)
	c.Assert(errOut, qt.Contains, "lines=1")

	out, _, err = e.run("checkout", "--yes")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Order created successfully!")
	c.Assert(out, qt.Contains, "Order created! Payment intent ready.")
	c.Assert(out, qt.Contains, "Payment intent: pi_")
	m := orderNumber.FindStringSubmatch(out)
	c.Assert(m, qt.HasLen, 2)

	out, _, err = e.run("cart")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Your cart is empty.")

	out, _, err = e.run("orders")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "#"+m[1])
	c.Assert(out, qt.Contains, "pending")

	out, _, err = e.run("orders", "show", m[1], "--save")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "### Order #"+m[1])
	c.Assert(out, qt.Contains, "| Mug | 2 | $10.00 | $20.00 |")
	c.Assert(out, qt.Contains, "Saved receipt to "+filepath.Join(e.home, "receipts"))
}

func TestCart_FailurePath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.login(c, "ada@example.com")

	c.Run("more than the stock", func(c *qt.C) {
		_, stderr, err := e.run("cart", "add", itoa(e.teapot.ID), "-q", "3")
		c.Assert(err, qt.IsNotNil)
		c.Assert(stderr, qt.Contains, "Error: Insufficient stock")

		out, _, err := e.run("cart")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "Your cart is empty.")
	})

	c.Run("zero quantity", func(c *qt.C) {
		_, stderr, err := e.run("cart", "add", itoa(e.mug.ID), "-q", "0")
		c.Assert(err, qt.IsNotNil)
		c.Assert(stderr, qt.Contains, "Error: Quantity must be greater than 0")
	})

	c.Run("checkout with an empty cart", func(c *qt.C) {
		_, stderr, err := e.run("checkout", "-y")
		c.Assert(err, qt.IsNotNil)
		c.Assert(stderr, qt.Contains, "Error: Cart is empty")
	})
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func TestAdmin_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.login(c, "root@example.com")

	out, _, err := e.run("admin", "dashboard")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Products:   2")
	c.Assert(out, qt.Contains, "Teapot: 2 left")

	out, _, err = e.run("admin", "category", "create", "Kitchen")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Category created")

	out, _, err = e.run("admin", "product", "create", "--sku", "SPN", "--name", "Spoon", "--price", "3.50", "--stock", "40")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Product created")

	out, _, err = e.run("admin", "product", "update", itoa(e.teapot.ID), "--stock", "25")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Product updated")
	c.Assert(out, qt.Contains, "25 in stock")

	out, _, err = e.run("admin", "product", "delete", itoa(e.mug.ID))
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Product deleted")

	out, _, err = e.run("admin", "dashboard")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Products:   2")
	c.Assert(out, qt.Contains, "Categories: 1")
	c.Assert(out, qt.Not(qt.Contains), "Low stock")
}

func TestAdmin_FailurePath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	_, _, err := e.run("admin", "dashboard")
	c.Assert(err, qt.ErrorMatches, "not logged in: run `shop login` first")

	e.login(c, "ada@example.com")
	_, _, err = e.run("admin", "dashboard")
	c.Assert(err, qt.ErrorMatches, "admin access required")

	_, _, err = e.run("admin", "product", "create", "--sku", "X", "--name", "X", "--price", "lots")
	c.Assert(err, qt.ErrorMatches, `invalid --price "lots"`)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfig_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	out, _, err := e.run("config")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "base_url: http://127.0.0.1")
	c.Assert(out, qt.Contains, "shop_home_source: flag")
	c.Assert(out, qt.Contains, "backend: memory")

	home := t.TempDir()
	out, _, err = (&env{t: t, home: home}).run("config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created "+filepath.Join(home, "config.yaml"))

	out, _, err = (&env{t: t, home: home}).run("config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Config already exists")
}
