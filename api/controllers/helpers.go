package controllers

import (
	"net/http"

	"github.com/angelmondragon/partyhub-backend/api/middleware"
	"github.com/angelmondragon/partyhub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
)

const (
	paramPartyID       = "partyId"
	paramRecruitmentID = "recruitmentId"
	paramApplicationID = "applicationId"
	paramPartyUserID   = "partyUserId"

	maxTitleFilterLength = 100
)

var errServiceUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable")

// actorID returns the authenticated caller or writes 401.
func actorID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
		return 0, false
	}
	return userID, true
}
