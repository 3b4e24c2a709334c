// Package guard decides whether a session may enter a route.
package guard

import (
	"fmt"
	"strings"

	"github.com/go-ports/storefront/internal/session"
)

// Access levels.
type Access int

const (
	Public Access = iota
	Authenticated
	Admin
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Redirect targets.
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Route is one entry of the route table. Segments starting with ':' match
// any single path segment.
type Route struct {
	Pattern string
	Access  Access
}

// Routes is the storefront route table.
var Routes = []Route{
	{"/", Public},
	{"/login", Public},
	{"/register", Public},
	{"/products", Public},
	{"/products/:id", Public},
	{"/cart", Authenticated},
	{"/checkout", Authenticated},
	{"/orders", Authenticated},
	{"/orders/:id", Authenticated},
	{"/admin/dashboard", Admin},
	{"/admin/products", Admin},
	{"/admin/categories", Admin},
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed  bool
	Redirect string // set when Allowed is false
}

// RedirectError reports a denied route.
type RedirectError struct {
	Route string
	To    string
}

func (e *RedirectError) Error() string {
	if e.To == LoginPath {
		return fmt.Sprintf("guard: %s requires login (redirect to %s)", e.Route, e.To)
	}
	return fmt.Sprintf("guard: %s requires admin access (redirect to %s)", e.Route, e.To)
}

// Lookup returns the access level of path. Unknown paths are public.
func Lookup(path string) Access {
	for _, r := range Routes {
		if match(r.Pattern, path) {
			return r.Access
		}
	}
	return Public
}

// Check decides whether state may enter path. Unauthenticated sessions are
// sent to /login; authenticated non-admins on admin routes are sent to /.
func Check(state session.State, path string) Decision {
	switch Lookup(path) {
	case Authenticated:
		if !state.IsAuthenticated {
			return Decision{Redirect: LoginPath}
		}
	case Admin:
		if !state.IsAuthenticated {
			return Decision{Redirect: LoginPath}
		}
		if !state.IsAdmin() {
			return Decision{Redirect: HomePath}
		}
	}
	return Decision{Allowed: true}
}

// Require returns a *RedirectError when state may not enter path.
func Require(state session.State, path string) error {
	d := Check(state, path)
	if d.Allowed {
		return nil
	}
	return &RedirectError{Route: path, To: d.Redirect}
}

func match(pattern, path string) bool {
	ps := split(pattern)
	xs := split(path)
	if len(ps) != len(xs) {
		return false
	}
	for i, seg := range ps {
		if strings.HasPrefix(seg, ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if seg != xs[i] {
			return false
		}
	}
	return true
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
