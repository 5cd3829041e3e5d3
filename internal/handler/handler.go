// Package handler provides the Telegram command handlers of the admin
// console. Handlers parse moderator input, call into the services and render
// replies; errors bubble up to the bot's error reply middleware.
package handler

import (
	"strconv"
	"strings"
	"time"

	"onepiece-admin/internal/service"
)

// datetimeLayout is the format moderators type dates in, local time.
const datetimeLayout = "2006-01-02 15:04"

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, service.Validationf("%s must be a positive number, got %q", what, arg)
	}
	return id, nil
}

func parseDateTime(arg string) (time.Time, error) {
	t, err := time.ParseInLocation(datetimeLayout, arg, time.Local)
	if err != nil {
		return time.Time{}, service.Validationf("date must look like %q, got %q", datetimeLayout, arg)
	}
	return t, nil
}

// splitFields splits a command payload on "|" and trims each field. Fields
// may contain spaces, which is why the arguments are not space-separated.
func splitFields(payload string) []string {
	parts := strings.Split(payload, "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}
	return fields
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(datetimeLayout)
}
