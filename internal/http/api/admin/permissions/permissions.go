package permissions

import (
	"sort"
	"strings"

	"github.com/elostora/shop/internal/access"
)

// Definition describes an admin route and the minimum tier allowed to call it.
type Definition struct {
	Key     string      `json:"key"`
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Label   string      `json:"label"`
	Module  string      `json:"module"`
	MinTier access.Tier `json:"-"`
	Tier    string      `json:"tier"`
}

// Key builds a permission key from method and path.
func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// NormalizePermissions trims, de-duplicates, and sorts permission keys.
func NormalizePermissions(perms []string) []string {
	if len(perms) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, perm := range perms {
		trimmed := strings.TrimSpace(perm)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	sort.Strings(normalized)
	return normalized
}

// Allowed reports whether tier may call the route identified by key.
// Unknown keys are denied.
func Allowed(tier access.Tier, key string) bool {
	def, ok := definitionMap[key]
	if !ok {
		return false
	}
	return tier.AtLeast(def.MinTier)
}

// KeysFor returns the sorted keys tier may call.
func KeysFor(tier access.Tier) []string {
	keys := make([]string, 0, len(definitions))
	for _, def := range definitions {
		if tier.AtLeast(def.MinTier) {
			keys = append(keys, def.Key)
		}
	}
	return NormalizePermissions(keys)
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap returns a copy of the permission definition map.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitionMap))
	for key, value := range definitionMap {
		out[key] = value
	}
	return out
}

// newDefinition builds a Definition with a normalized key.
func newDefinition(method, path, label, module string, minTier access.Tier) Definition {
	upperMethod := strings.ToUpper(method)
	return Definition{
		Key:     Key(upperMethod, path),
		Method:  upperMethod,
		Path:    path,
		Label:   label,
		Module:  module,
		MinTier: minTier,
		Tier:    minTier.String(),
	}
}

const (
	manager = access.TierManager
	admin   = access.TierAdmin
)

// definitions is the ordered list of permission definitions.
var definitions = []Definition{
	newDefinition("GET", "/v0/admin/permissions", "List Permissions", "Permissions", manager),

	newDefinition("GET", "/v0/admin/accounts", "List Accounts", "Accounts", manager),
	newDefinition("POST", "/v0/admin/accounts", "Create Account", "Accounts", manager),
	newDefinition("GET", "/v0/admin/accounts/:id", "Get Account", "Accounts", manager),
	newDefinition("PUT", "/v0/admin/accounts/:id", "Update Account", "Accounts", manager),
	newDefinition("DELETE", "/v0/admin/accounts/:id", "Delete Account", "Accounts", manager),
	newDefinition("PUT", "/v0/admin/accounts/:id/password", "Change Account Password", "Accounts", manager),
	newDefinition("POST", "/v0/admin/accounts/:id/promote", "Promote To Manager", "Accounts", admin),
	newDefinition("POST", "/v0/admin/accounts/:id/demote", "Demote From Manager", "Accounts", admin),

	newDefinition("GET", "/v0/admin/role-groups", "List Role Groups", "Role Groups", manager),

	newDefinition("POST", "/v0/admin/categories", "Create Category", "Catalog", manager),
	newDefinition("GET", "/v0/admin/categories", "List Categories", "Catalog", manager),
	newDefinition("PUT", "/v0/admin/categories/:id", "Update Category", "Catalog", manager),
	newDefinition("DELETE", "/v0/admin/categories/:id", "Delete Category", "Catalog", manager),
	newDefinition("POST", "/v0/admin/categories/:id/subcategories", "Create Subcategory", "Catalog", manager),
	newDefinition("DELETE", "/v0/admin/subcategories/:id", "Delete Subcategory", "Catalog", manager),
	newDefinition("POST", "/v0/admin/products", "Create Product", "Catalog", manager),
	newDefinition("GET", "/v0/admin/products", "List Products", "Catalog", manager),
	newDefinition("GET", "/v0/admin/products/:id", "Get Product", "Catalog", manager),
	newDefinition("PUT", "/v0/admin/products/:id", "Update Product", "Catalog", manager),
	newDefinition("DELETE", "/v0/admin/products/:id", "Delete Product", "Catalog", manager),
	newDefinition("PUT", "/v0/admin/products/:id/sizes", "Set Product Sizes", "Catalog", manager),

	newDefinition("POST", "/v0/admin/events", "Create Event", "Events", admin),
	newDefinition("GET", "/v0/admin/events", "List Events", "Events", manager),
	newDefinition("GET", "/v0/admin/events/:id", "Get Event", "Events", manager),
	newDefinition("PUT", "/v0/admin/events/:id", "Update Event", "Events", admin),
	newDefinition("DELETE", "/v0/admin/events/:id", "Delete Event", "Events", admin),

	newDefinition("GET", "/v0/admin/orders", "List Orders", "Orders", manager),
	newDefinition("GET", "/v0/admin/orders/:id", "Get Order", "Orders", manager),
	newDefinition("POST", "/v0/admin/orders/:id/status", "Change Order Status", "Orders", manager),
	newDefinition("POST", "/v0/admin/orders/:id/cancel", "Cancel Order", "Orders", manager),

	newDefinition("POST", "/v0/admin/coupons", "Create Coupon", "Coupons", admin),
	newDefinition("GET", "/v0/admin/coupons", "List Coupons", "Coupons", admin),
	newDefinition("PUT", "/v0/admin/coupons/:id", "Update Coupon", "Coupons", admin),
	newDefinition("DELETE", "/v0/admin/coupons/:id", "Delete Coupon", "Coupons", admin),

	newDefinition("POST", "/v0/admin/gifts", "Create Gift", "Gifts", manager),
	newDefinition("GET", "/v0/admin/gifts", "List Gifts", "Gifts", manager),
	newDefinition("PUT", "/v0/admin/gifts/:id", "Update Gift", "Gifts", manager),
	newDefinition("DELETE", "/v0/admin/gifts/:id", "Delete Gift", "Gifts", manager),
	newDefinition("GET", "/v0/admin/redemptions", "List Redemptions", "Gifts", manager),
	newDefinition("POST", "/v0/admin/redemptions/:id/ship", "Ship Redemption", "Gifts", manager),

	newDefinition("POST", "/v0/admin/posts", "Create Post", "Blog", manager),
	newDefinition("GET", "/v0/admin/posts", "List Posts", "Blog", manager),
	newDefinition("PUT", "/v0/admin/posts/:id", "Update Post", "Blog", manager),
	newDefinition("DELETE", "/v0/admin/posts/:id", "Delete Post", "Blog", manager),
	newDefinition("GET", "/v0/admin/blog-categories", "List Blog Categories", "Blog", manager),
	newDefinition("POST", "/v0/admin/blog-categories", "Create Blog Category", "Blog", manager),

	newDefinition("POST", "/v0/admin/settings", "Create Setting", "Settings", admin),
	newDefinition("GET", "/v0/admin/settings", "List Settings", "Settings", admin),
	newDefinition("GET", "/v0/admin/settings/:key", "Get Setting", "Settings", admin),
	newDefinition("PUT", "/v0/admin/settings/:key", "Update Setting", "Settings", admin),
	newDefinition("DELETE", "/v0/admin/settings/:key", "Delete Setting", "Settings", admin),
}

// definitionMap provides fast lookup for permission definitions.
var definitionMap = func() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}()
