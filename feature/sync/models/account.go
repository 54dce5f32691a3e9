package models

import "strconv"

// Account kinds. Only primary accounts exist today; the column is kept so a
// future read-only or delegated kind does not need a migration.
const AccountKindPrimary = "primary"

// Metadata keys for derived fields discovered during a run.
const (
	MetaCustomerID = "customer_id"
	MetaIsAdmin    = "is_admin"
	MetaIDSocio    = "id_socio"
)

// Account is a locally registered login. DNI doubles as the account name and
// the join key between the catalog customer and the ledger socio. Derived
// fields live in Metadata and are filled in the first time a run discovers
// them.
type Account struct {
	DNI       string            `gorm:"primaryKey" json:"dni"`
	Kind      string            `json:"kind"`
	AuthToken string            `gorm:"column:auth_token" json:"-"`
	Metadata  map[string]string `gorm:"serializer:json" json:"metadata"`
}

func (Account) TableName() string { return "accounts" }

// Meta returns the metadata value for key, or "" when unset.
func (a *Account) Meta(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}

// SetMeta stores a metadata value, allocating the map on first use.
func (a *Account) SetMeta(key, value string) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]string)
	}
	a.Metadata[key] = value
}

// CustomerID returns the discovered catalog customer id, or 0 when the
// account has not been matched against a customer yet.
func (a *Account) CustomerID() int64 {
	v, _ := strconv.ParseInt(a.Meta(MetaCustomerID), 10, 64)
	return v
}

// IsAdmin reports whether the matched customer carried the administrator role.
func (a *Account) IsAdmin() bool {
	return a.Meta(MetaIsAdmin) == "true"
}
