package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the member record this service owns: just enough to install
// an avatar reference. Everything else about members lives elsewhere.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarCID   *string   `json:"avatar_ipfs_hash,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasAvatar reports whether an avatar has been installed.
func (p *Profile) HasAvatar() bool {
	return p.AvatarCID != nil && *p.AvatarCID != ""
}
