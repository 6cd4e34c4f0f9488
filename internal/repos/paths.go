// Package repos maps typed domain records onto docstore collections. All data
// is scoped under the tenant that owns it; collection paths never cross
// tenants.
package repos

// Collection paths mirror the hosted store's hierarchy: everything hangs off
// the tenant document.
func productsCol(tenant string) string  { return "users/" + tenant + "/products" }
func salesCol(tenant string) string     { return "users/" + tenant + "/sales" }
func typesCol(tenant string) string     { return "users/" + tenant + "/product_types" }
func typeNamesCol(tenant string) string { return "users/" + tenant + "/product_type_names" }
func settingsCol(tenant string) string  { return "users/" + tenant + "/settings" }

// settingsKey is the single settings document per tenant.
const settingsKey = "store"
