package model

// Setting keys stored per user.
const (
	SettingTheme                  = "theme"
	SettingNotificationsEnabled   = "notifications_enabled"
	SettingOnboardingSeen         = "onboarding_seen"
	SettingNotificationPermission = "notification_permission"
)

// Settings is the typed view of a user's key-value settings.
type Settings struct {
	Theme                  string `json:"theme"`
	NotificationsEnabled   bool   `json:"notificationsEnabled"`
	OnboardingSeen         bool   `json:"onboardingSeen"`
	NotificationPermission string `json:"notificationPermission"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:                  "system",
		NotificationsEnabled:   true,
		NotificationPermission: "default",
	}
}
