package handler

import (
	"context"

	"github.com/dataacquisition/das/internal/acquisition"
	"github.com/dataacquisition/das/internal/api/middleware"
)

// callerFrom builds the acquisition caller from the authenticated request context.
func callerFrom(ctx context.Context) acquisition.Caller {
	return acquisition.Caller{
		UserID: middleware.GetUserID(ctx),
		Token:  middleware.GetToken(ctx),
	}
}
