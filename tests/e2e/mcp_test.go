// Package e2e_test, MCP server end-to-end tests.
//
// The session is created with the CLI and the MCP server is then started
// in-process on the same shop home, so the persisted device storage is what
// carries the login across. The full stack (CLI → device storage → service →
// mcp handler → mcp-go server → in-process client) is exercised within a
// single test process.
package e2e_test

import (
	"context"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	internalmcp "github.com/go-ports/storefront/internal/mcp"
	"github.com/go-ports/storefront/internal/storefront"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newMCPClient creates an in-process MCP client backed by a service rooted at
// e.home. The client is started and initialized before it is returned;
// cleanup is registered on c automatically.
func newMCPClient(c *qt.C, e *env) *mcpclient.Client {
	c.TB.Helper()

	svc, err := storefront.New(context.Background(), e.home, storefront.Options{Notifier: &storefront.Recorder{}})
	c.Assert(err, qt.IsNil)
	c.TB.Cleanup(func() { _ = svc.Close() })

	cl, err := mcpclient.NewInProcessClient(internalmcp.NewServer(svc))
	c.Assert(err, qt.IsNil)
	c.TB.Cleanup(func() { _ = cl.Close() })

	c.Assert(cl.Start(context.Background()), qt.IsNil)

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "e2e-test", Version: "0.0.1"}
	_, err = cl.Initialize(context.Background(), initReq)
	c.Assert(err, qt.IsNil)

	return cl
}

// callTool invokes the named MCP tool and decodes the JSON text of the first
// content item into v. It returns the IsError flag and the raw text.
func callTool(c *qt.C, cl *mcpclient.Client, name string, args map[string]any, v any) (bool, string) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := cl.CallTool(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Content, qt.HasLen, 1)

	tc, ok := mcp.AsTextContent(result.Content[0])
	c.Assert(ok, qt.IsTrue)
	if !result.IsError && v != nil {
		c.Assert(json.Unmarshal([]byte(tc.Text), v), qt.IsNil)
	}
	return result.IsError, tc.Text
}

// ---------------------------------------------------------------------------
// Session handoff
// ---------------------------------------------------------------------------

func TestMCPUsesCLISession_HappyPath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.login(c, "ada@example.com")

	_, _, err := e.run("cart", "add", itoa(e.mug.ID), "-q", "3")
	c.Assert(err, qt.IsNil)

	cl := newMCPClient(c, e)

	var who map[string]any
	isErr, _ := callTool(c, cl, "shop_whoami", nil, &who)
	c.Assert(isErr, qt.IsFalse)
	c.Assert(who["authenticated"], qt.Equals, true)
	c.Assert(who["email"], qt.Equals, "ada@example.com")

	var cart map[string]any
	isErr, _ = callTool(c, cl, "shop_cart", nil, &cart)
	c.Assert(isErr, qt.IsFalse)
	c.Assert(cart["total"], qt.Equals, "$30.00")

	var checkout map[string]any
	isErr, _ = callTool(c, cl, "shop_checkout", nil, &checkout)
	c.Assert(isErr, qt.IsFalse)
	c.Assert(checkout["payment_intent_id"], qt.Matches, "pi_.*")

	out, _, err := e.run("orders")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "$30.00")
}

func TestMCPAfterLogout_FailurePath(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.login(c, "ada@example.com")
	_, _, err := e.run("logout")
	c.Assert(err, qt.IsNil)

	cl := newMCPClient(c, e)

	isErr, text := callTool(c, cl, "shop_cart", nil, nil)
	c.Assert(isErr, qt.IsTrue)
	c.Assert(text, qt.Matches, "Not logged in.*")

	var products []map[string]any
	isErr, _ = callTool(c, cl, "shop_products", nil, &products)
	c.Assert(isErr, qt.IsFalse)
	c.Assert(products, qt.HasLen, 2)
}
