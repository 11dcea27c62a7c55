package models

import "time"

// Device roles
const (
	RoleVoter = "voter"
	RoleAdmin = "admin"
)

// Platforms
const (
	PlatformIOS     = "ios"
	PlatformMacOS   = "macos"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

type RegisterDeviceRequest struct {
	Platform string `json:"platform" validate:"required,oneof=ios macos android web"`
}

type RegisterDeviceResponse struct {
	DeviceID string `json:"device_id"`
	IsNew    bool   `json:"is_new"`
}

type DeviceInfo struct {
	ID         string    `json:"device_id"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type DeviceElectionSummary struct {
	ElectionID  string    `json:"election_id"`
	Title       string    `json:"title"`
	Month       string    `json:"month"`
	Status      string    `json:"status"`
	ShareSlug   string    `json:"share_slug"`
	Role        string    `json:"role"`
	Username    *string   `json:"username,omitempty"`
	LinkedAt    time.Time `json:"linked_at"`
	BallotCount int       `json:"ballot_count"`
}

type GetMyElectionsResponse struct {
	Elections []DeviceElectionSummary `json:"elections"`
}
