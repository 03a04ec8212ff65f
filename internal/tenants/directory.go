package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sautihq/sauti-backend/pkg/config"
)

// Directory answers tenant-shape questions owned by the accounts system.
// The wallet layer only needs to know whether a tenant is the shared
// individual workspace, which decides wallet scoping.
type Directory interface {
	IsIndividualTenant(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

type configDirectory struct {
	individualTenantID uuid.UUID
}

// NewConfigDirectory builds a directory backed by the configured individual
// tenant id. An empty id means every tenant is treated as an enterprise.
func NewConfigDirectory(cfg config.WalletConfig) (Directory, error) {
	raw := strings.TrimSpace(cfg.IndividualTenantID)
	if raw == "" {
		return &configDirectory{}, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing individual tenant id: %w", err)
	}
	return &configDirectory{individualTenantID: id}, nil
}

func (d *configDirectory) IsIndividualTenant(_ context.Context, tenantID uuid.UUID) (bool, error) {
	if d.individualTenantID == uuid.Nil {
		return false, nil
	}
	return tenantID == d.individualTenantID, nil
}
