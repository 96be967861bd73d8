package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/mycelium-backend/internal/domain/aggregates"
	"github.com/yungbote/mycelium-backend/internal/platform/ctxutil"
)

var ErrUnauthenticated = errors.New("unauthenticated")

func deckNotFound(op string, deckID uuid.UUID) error {
	return domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonDeckNotFound, op,
		fmt.Sprintf("deck %s not found", deckID), nil)
}

func invalidInput(op, reason, msg string) error {
	return domainagg.NewReasonError(domainagg.CodeValidation, reason, op, msg, nil)
}

// callerID returns the authenticated user for ctx.
func callerID(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return rd.UserID, nil
}
