package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sautihq/sauti-backend/api/middleware"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

// callerIdentity resolves the authenticated tenant and user from the request
// context seeded by the auth middleware.
func callerIdentity(r *http.Request) (tenantID, userID uuid.UUID, err error) {
	tenantID, err = uuid.Parse(middleware.TenantIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err = uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return tenantID, userID, nil
}

func requireAdmin(r *http.Request) error {
	if middleware.RoleFromContext(r.Context()) != "admin" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
