package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Entity ID prefixes. IDs are lowercase ULIDs so they sort by creation time.
const (
	UUIDPrefixProduct           = "prod"
	UUIDPrefixPrice             = "price"
	UUIDPrefixOrder             = "ord"
	UUIDPrefixOrderLineItem     = "oli"
	UUIDPrefixSubscription      = "sub"
	UUIDPrefixEntitlement       = "ent"
	UUIDPrefixInventoryMovement = "invm"
	UUIDPrefixWebhookEvent      = "evt"
	UUIDPrefixRequest           = "req"
	UUIDPrefixCustomer          = "cust"
)

// GenerateUUID returns a lowercase ULID.
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a prefixed lowercase ULID, e.g. "ord_01hx...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
