package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWooTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"Catalog layout", `"2017-03-21T16:09:28"`, time.Date(2017, 3, 21, 16, 9, 28, 0, time.UTC), false},
		{"RFC3339", `"2017-03-21T16:09:28Z"`, time.Date(2017, 3, 21, 16, 9, 28, 0, time.UTC), false},
		{"Empty string", `""`, time.Time{}, false},
		{"Null", `null`, time.Time{}, false},
		{"Garbage", `"21/03/2017"`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wt WooTime
			err := json.Unmarshal([]byte(tt.input), &wt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(wt.Time), "got %v", wt.Time)
		})
	}
}

func TestWooTime_Scan(t *testing.T) {
	var wt WooTime
	require.NoError(t, wt.Scan(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2024, wt.Year())

	require.NoError(t, wt.Scan("2024-05-01T10:00:00Z"))
	assert.Equal(t, time.May, wt.Month())

	require.NoError(t, wt.Scan(nil))
	assert.True(t, wt.IsZero())

	assert.Error(t, wt.Scan(42))
}

func TestMoney_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{"Quoted decimal", `"12.50"`, 12.50, false},
		{"Bare number", `25`, 25, false},
		{"Empty string", `""`, 0, false},
		{"Null", `null`, 0, false},
		{"Garbage", `"12,50"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			err := json.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestCustomer_IsAdmin(t *testing.T) {
	assert.True(t, Customer{Role: RoleAdministrator}.IsAdmin())
	assert.False(t, Customer{Role: "subscriber"}.IsAdmin())
	assert.False(t, Customer{}.IsAdmin())
}

func TestSocio_MatchesDNI(t *testing.T) {
	s := Socio{DNI: " 12345678Z "}
	assert.True(t, s.MatchesDNI("12345678z"))
	assert.True(t, s.MatchesDNI("12345678Z"))
	assert.False(t, s.MatchesDNI("87654321X"))
}

func TestAccount_Metadata(t *testing.T) {
	a := &Account{DNI: "111A"}
	assert.Empty(t, a.Meta(MetaCustomerID))
	assert.Zero(t, a.CustomerID())
	assert.False(t, a.IsAdmin())

	a.SetMeta(MetaCustomerID, "42")
	a.SetMeta(MetaIsAdmin, "true")
	assert.Equal(t, int64(42), a.CustomerID())
	assert.True(t, a.IsAdmin())
}

func TestOrder_DecodesCatalogPayload(t *testing.T) {
	payload := `{
		"id": 500,
		"customer_id": 12,
		"status": "completed",
		"total": "25.50",
		"date_created": "2024-04-02T19:30:00",
		"line_items": [
			{"id": 1, "name": "Cena de gala", "product_id": 7, "quantity": 2, "total": "25.50"}
		]
	}`

	var order Order
	require.NoError(t, json.Unmarshal([]byte(payload), &order))
	assert.Equal(t, int64(500), order.GetID())
	assert.Equal(t, Money(25.50), order.Total)
	assert.Equal(t, 2024, order.DateCreated.Year())
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(7), order.Items[0].ProductID)
}

func TestLedgerTransaction_RemoteColumns(t *testing.T) {
	cols := LedgerTransaction{}.RemoteColumns()
	assert.NotContains(t, cols, "notified")
	assert.Contains(t, cols, "id_socio")
	assert.Contains(t, cols, "concepto")
}
