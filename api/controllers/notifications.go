package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
)

// NotificationCurrent returns the visible notification or null.
func NotificationCurrent(notes Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if note, ok := notes.Current(); ok {
			responses.WriteSuccess(w, note)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func NotificationDismiss(notes Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notes.Dismiss()
		w.WriteHeader(http.StatusNoContent)
	}
}
