package models

import (
	"strings"
	"time"
)

// Socio is a registered member record in the legacy ledger, keyed by id_socio.
// PrincipalID links an associated member (family/secondary) to its primary
// socio; it is zero for primary members.
type Socio struct {
	IDSocio     int64  `gorm:"primaryKey;autoIncrement:false;column:id_socio" json:"id_socio"`
	DNI         string `gorm:"column:dni;index" json:"dni"`
	Name        string `gorm:"column:nombre" json:"nombre"`
	Surname     string `gorm:"column:apellidos" json:"apellidos"`
	Email       string `gorm:"column:email" json:"email"`
	PrincipalID int64  `gorm:"column:id_socio_principal" json:"id_socio_principal"`
}

func (s Socio) GetID() int64 { return s.IDSocio }

// TableName matches the legacy schema so the same model reads the remote
// table and the local mirror.
func (Socio) TableName() string { return "socios" }

// MatchesDNI compares the socio's DNI against another using the
// case-normalized equality the ledger join relies on.
func (s Socio) MatchesDNI(dni string) bool {
	return strings.EqualFold(strings.TrimSpace(s.DNI), strings.TrimSpace(dni))
}

// LedgerTransaction is one financial movement of a socio.
//
// The id is unique per owner, not globally, so the mirror keys rows by
// (owner, id). Notified is local-only state: it is flipped exactly once by the
// transaction notifier and never touched elsewhere.
type LedgerTransaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	OwnerID   int64     `gorm:"primaryKey;autoIncrement:false;column:id_socio" json:"id_socio"`
	Date      time.Time `gorm:"column:fecha" json:"fecha"`
	Concept   string    `gorm:"column:concepto" json:"concepto"`
	Units     float64   `gorm:"column:unidades" json:"unidades"`
	UnitPrice float64   `gorm:"column:precio_unidad" json:"precio_unidad"`
	Price     float64   `gorm:"column:precio" json:"precio"`
	Income    bool      `gorm:"column:ingreso" json:"ingreso"`
	Notified  bool      `gorm:"column:notified" json:"-"`
}

func (t LedgerTransaction) GetID() int64 { return t.ID }

// TableName matches the legacy schema.
func (LedgerTransaction) TableName() string { return "movimientos" }

// RemoteColumns lists the columns present in the legacy table. The local-only
// notified flag is excluded so remote reads never reference it.
func (LedgerTransaction) RemoteColumns() []string {
	return []string{"id", "id_socio", "fecha", "concepto", "unidades", "precio_unidad", "precio", "ingreso"}
}
