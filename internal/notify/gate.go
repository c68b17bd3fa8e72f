package notify

import (
	"context"

	"github.com/dukerupert/classdesk/internal/model"
)

type SettingsReader interface {
	Get(ctx context.Context, userID string) (model.Settings, error)
}

// SettingsGate derives the permission from user settings. Turning
// notifications off in settings behaves like a denied permission.
type SettingsGate struct {
	Settings SettingsReader
}

func (g SettingsGate) Permission(ctx context.Context, userID string) (Permission, error) {
	st, err := g.Settings.Get(ctx, userID)
	if err != nil {
		return PermissionDefault, err
	}
	if !st.NotificationsEnabled {
		return PermissionDenied, nil
	}
	p, ok := ParsePermission(st.NotificationPermission)
	if !ok {
		return PermissionDefault, nil
	}
	return p, nil
}
