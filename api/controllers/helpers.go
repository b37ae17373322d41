package controllers

import (
	"net/http"

	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/internal/policy"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

func callerFrom(r *http.Request) policy.Caller {
	return middleware.CallerFromContext(r.Context())
}

// unavailable writes DEPENDENCY_ERROR when a handler was mounted without its
// service and reports whether it did.
func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, ok bool, name string) bool {
	if ok {
		return false
	}
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, name+" service unavailable"))
	return true
}
