package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Notifier is the single on-screen notification slot.
type Notifier interface {
	Show(kind notifications.Kind, message string) notifications.Notification
	Current() (notifications.Notification, bool)
	Dismiss()
}

const genericFailure = "Something went wrong. Please try again."

// fail writes err and surfaces it as an error notification.
func fail(ctx context.Context, logg *logger.Logger, notes Notifier, w http.ResponseWriter, err error) {
	if notes != nil {
		notes.Show(notifications.KindError, userMessage(err))
	}
	responses.WriteError(ctx, logg, w, err)
}

// succeed writes data with an optional success notification.
func succeed(w http.ResponseWriter, notes Notifier, status int, data any, message string) {
	if notes == nil {
		responses.WriteSuccessStatus(w, status, data)
		return
	}
	if message != "" {
		notes.Show(notifications.KindSuccess, message)
	}
	responses.WriteSuccessNotice(w, status, data, currentNotice(notes))
}

func currentNotice(notes Notifier) *types.Notice {
	note, ok := notes.Current()
	if !ok {
		return nil
	}
	return &types.Notice{Kind: string(note.Kind), Message: note.Message}
}

func userMessage(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() == pkgerrors.CodeInternal {
		return genericFailure
	}
	if msg := typed.Message(); msg != "" {
		return msg
	}
	if msg := pkgerrors.MetadataFor(typed.Code()).PublicMessage; msg != "" {
		return msg
	}
	return genericFailure
}
