package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// Wallet holds spendable funds for a tenant, or for a single user when the
// tenant is an individual workspace. At most one row per (tenant, user) pair;
// tenant-scoped wallets carry a NULL user id.
type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_wallets_tenant_user"`
	UserID    *uuid.UUID      `gorm:"column:user_id;type:uuid;uniqueIndex:idx_wallets_tenant_user"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	Currency  enums.Currency  `gorm:"column:currency;not null;default:'KES'"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
