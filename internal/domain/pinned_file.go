package domain

import (
	"time"

	"github.com/google/uuid"
)

// PinKind says what a pinned file is used for. Values match the "type" tag
// written to the pinning service.
type PinKind string

const (
	PinKindAvatar         PinKind = "avatar"
	PinKindDealDocument   PinKind = "deal-document"
	PinKindChatAttachment PinKind = "chat-attachment"
	PinKindNFTMetadata    PinKind = "nft-metadata"
)

// Valid reports whether k is a known kind.
func (k PinKind) Valid() bool {
	switch k {
	case PinKindAvatar, PinKindDealDocument, PinKindChatAttachment, PinKindNFTMetadata:
		return true
	}
	return false
}

// Scoped reports whether files of this kind belong to a deal or channel.
func (k PinKind) Scoped() bool {
	return k == PinKindDealDocument || k == PinKindChatAttachment
}

// PinnedFile is the catalog record written after a successful pin.
type PinnedFile struct {
	ID        uuid.UUID `json:"id"`
	CID       string    `json:"cid"`
	Kind      PinKind   `json:"kind"`
	OwnerID   uuid.UUID `json:"owner_id"`
	ScopeID   string    `json:"scope_id,omitempty"` // deal or channel id
	Filename  string    `json:"filename,omitempty"`
	MimeType  string    `json:"mime_type,omitempty"`
	SizeBytes int64     `json:"size_bytes"`
	URL       string    `json:"url"`
	Duplicate bool      `json:"duplicate,omitempty"`
	Mirrored  bool      `json:"mirrored"`
	PinnedAt  time.Time `json:"pinned_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PinEvent is broadcast to rooms after a file is pinned and cataloged.
type PinEvent struct {
	FileID   uuid.UUID `json:"file_id"`
	CID      string    `json:"cid"`
	Kind     PinKind   `json:"kind"`
	ScopeID  string    `json:"scope_id,omitempty"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Filename string    `json:"filename,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Size     int64     `json:"size"`
	URL      string    `json:"url"`
	PinnedAt time.Time `json:"pinned_at"`
}

// Event returns the broadcast payload for f.
func (f *PinnedFile) Event() PinEvent {
	return PinEvent{
		FileID:   f.ID,
		CID:      f.CID,
		Kind:     f.Kind,
		ScopeID:  f.ScopeID,
		OwnerID:  f.OwnerID,
		Filename: f.Filename,
		MimeType: f.MimeType,
		Size:     f.SizeBytes,
		URL:      f.URL,
		PinnedAt: f.PinnedAt,
	}
}

// ResolveResponse answers "where does this CID live".
type ResolveResponse struct {
	CID  string      `json:"cid"`
	URL  string      `json:"url"`
	File *PinnedFile `json:"file,omitempty"`
}

// NFTMetadataResponse is returned after pinning token metadata.
type NFTMetadataResponse struct {
	CID string `json:"cid"`
	URL string `json:"url"`
	// TokenURI is the ipfs:// form wallets expect in on-chain metadata.
	TokenURI string `json:"token_uri"`
}

// MirrorURLResponse contains a presigned download URL for the mirrored copy.
type MirrorURLResponse struct {
	CID       string    `json:"cid"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
