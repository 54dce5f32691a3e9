package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entity is the capability shared by every mirrored record: a stable numeric
// id unique within its type. The generic reconciler is written once against it.
type Entity interface {
	GetID() int64
}

// WooTime wraps time.Time to decode the catalog's timestamp format, which
// omits the timezone ("2017-03-21T16:09:28").
type WooTime struct {
	time.Time
}

const wooLayout = "2006-01-02T15:04:05"

func (t *WooTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(wooLayout, s)
	if err != nil {
		return fmt.Errorf("invalid catalog timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

func (t WooTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Time.Format(wooLayout) + `"`), nil
}

// Value implements driver.Valuer so GORM stores the wrapped time directly.
func (t WooTime) Value() (driver.Value, error) {
	return t.Time, nil
}

// Scan implements sql.Scanner.
func (t *WooTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into WooTime", src)
	}
}

func (t *WooTime) scanString(s string) error {
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	// SQLite stores time.Time as RFC3339 text.
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		parsed, err = time.Parse(wooLayout, s)
		if err != nil {
			return fmt.Errorf("invalid stored timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed
	return nil
}

// Money decodes the catalog's quoted decimal amounts ("12.50") into a float.
type Money float64

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid catalog amount %q: %w", s, err)
	}
	*m = Money(v)
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(m), 'f', -1, 64)), nil
}

// Customer mirrors a catalog customer record.
// Username carries the member's DNI, the join key against the ledger.
type Customer struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email     string `json:"email"`
	FirstName string `gorm:"column:first_name" json:"first_name"`
	LastName  string `gorm:"column:last_name" json:"last_name"`
	Username  string `gorm:"index" json:"username"`
	Role      string `json:"role"`
}

func (c Customer) GetID() int64 { return c.ID }

// RoleAdministrator is the catalog role granting full-ledger visibility.
const RoleAdministrator = "administrator"

// IsAdmin reports whether the customer carries the administrator role.
func (c Customer) IsAdmin() bool { return c.Role == RoleAdministrator }

// OrderItem is one line of a catalog order.
type OrderItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Total     Money  `json:"total"`
}

// Order mirrors a catalog order record.
type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerID  int64       `gorm:"column:customer_id;index" json:"customer_id"`
	Status      string      `json:"status"`
	Total       Money       `json:"total"`
	DateCreated WooTime     `gorm:"column:date_created" json:"date_created"`
	Items       []OrderItem `gorm:"serializer:json" json:"line_items"`
}

func (o Order) GetID() int64 { return o.ID }

// EventVariation is a purchasable variant of an event (seat class, menu...).
// Variations require a secondary catalog request per event, which is what the
// cache-aware fetch avoids when the event has not been modified.
type EventVariation struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Price       Money  `json:"price"`
	StockStatus string `json:"stock_status"`
}

// Event mirrors a catalog event (product) record. DateModified is the sole
// freshness signal for the cache-aware fetch.
type Event struct {
	ID               int64            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name             string           `json:"name"`
	Status           string           `json:"status"`
	ShortDescription string           `gorm:"column:short_description" json:"short_description"`
	Price            Money            `json:"price"`
	StockStatus      string           `gorm:"column:stock_status" json:"stock_status"`
	DateModified     WooTime          `gorm:"column:date_modified" json:"date_modified"`
	Variations       []EventVariation `gorm:"serializer:json" json:"-"`
}

func (e Event) GetID() int64 { return e.ID }

// AvailablePayment mirrors a catalog payment package (membership fee,
// locker rental...) a member can purchase.
type AvailablePayment struct {
	ID    int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

func (p AvailablePayment) GetID() int64 { return p.ID }
