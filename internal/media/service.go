// Package media turns gateway uploads into installed content: each pin is
// recorded in the catalog, optionally mirrored to object storage, and
// announced to the rooms that care about it.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/goldmafia/clubhouse/internal/domain"
	"github.com/goldmafia/clubhouse/internal/pinning"
)

// DefaultListLimit caps catalog listings
const DefaultListLimit = 50

const maxScopeIDLength = 128

// Uploader is the content gateway
type Uploader interface {
	UploadAvatar(ctx context.Context, userID string, file pinning.File) (*pinning.UploadResult, error)
	UploadDealDocument(ctx context.Context, dealID, uploadedBy string, file pinning.File) (*pinning.UploadResult, error)
	UploadChatAttachment(ctx context.Context, channelID, uploadedBy string, file pinning.File) (*pinning.UploadResult, error)
	UploadNFTMetadata(ctx context.Context, meta pinning.NFTMetadata) (string, error)
	GatewayURL(cid string) string
}

// Catalog records what was pinned
type Catalog interface {
	Create(ctx context.Context, f *domain.PinnedFile) error
	GetByCID(ctx context.Context, cid string) (*domain.PinnedFile, error)
	ListByScope(ctx context.Context, kind domain.PinKind, scopeID string, limit int) ([]*domain.PinnedFile, error)
	MarkMirrored(ctx context.Context, id uuid.UUID) error
}

// ProfileStore holds the avatar reference of each member
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	SetAvatar(ctx context.Context, id uuid.UUID, displayName, cid string) error
}

// Mirror keeps a copy of pinned bytes in object storage
type Mirror interface {
	Put(ctx context.Context, cid, contentType string, data []byte) error
	PresignedGetURL(ctx context.Context, cid string) (string, time.Time, error)
}

// Publisher announces pinned files
type Publisher interface {
	BroadcastPinned(ctx context.Context, f *domain.PinnedFile) error
}

// CatalogError reports content that was pinned but could not be recorded.
// The CID is valid; recording can be retried without uploading again.
type CatalogError struct {
	CID string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("content pinned as %s but not recorded: %v", e.CID, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Service composes the gateway with the catalog and its side effects
type Service struct {
	uploader  Uploader
	catalog   Catalog
	profiles  ProfileStore
	mirror    Mirror
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithMirror copies uploaded bytes to object storage after each pin
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		s.mirror = m
	}
}

// WithPublisher announces each pin
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a media service
func NewService(uploader Uploader, catalog Catalog, profiles ProfileStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uploader: uploader,
		catalog:  catalog,
		profiles: profiles,
		logger:   logger.With("component", "media"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MirrorEnabled reports whether pinned bytes are copied to object storage
func (s *Service) MirrorEnabled() bool {
	return s.mirror != nil
}

// =============================================================================
// Uploads
// =============================================================================

// UploadAvatar pins an image and installs it as the member's avatar
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, displayName string, file pinning.File) (*domain.PinnedFile, error) {
	res, err := s.uploader.UploadAvatar(ctx, userID.String(), file)
	if err != nil {
		return nil, err
	}

	f, err := s.record(ctx, domain.PinKindAvatar, userID, "", res)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.SetAvatar(ctx, userID, displayName, f.CID); err != nil {
		return nil, &CatalogError{CID: f.CID, Err: err}
	}

	s.afterPin(ctx, f, file)
	return f, nil
}

// UploadDealDocument pins a document into a deal room
func (s *Service) UploadDealDocument(ctx context.Context, dealID string, uploadedBy uuid.UUID, file pinning.File) (*domain.PinnedFile, error) {
	if err := validScope(dealID); err != nil {
		return nil, err
	}
	res, err := s.uploader.UploadDealDocument(ctx, dealID, uploadedBy.String(), file)
	if err != nil {
		return nil, err
	}

	f, err := s.record(ctx, domain.PinKindDealDocument, uploadedBy, dealID, res)
	if err != nil {
		return nil, err
	}

	s.afterPin(ctx, f, file)
	return f, nil
}

// UploadChatAttachment pins an attachment into a chat channel
func (s *Service) UploadChatAttachment(ctx context.Context, channelID string, uploadedBy uuid.UUID, file pinning.File) (*domain.PinnedFile, error) {
	if err := validScope(channelID); err != nil {
		return nil, err
	}
	res, err := s.uploader.UploadChatAttachment(ctx, channelID, uploadedBy.String(), file)
	if err != nil {
		return nil, err
	}

	f, err := s.record(ctx, domain.PinKindChatAttachment, uploadedBy, channelID, res)
	if err != nil {
		return nil, err
	}

	s.afterPin(ctx, f, file)
	return f, nil
}

// PinNFTMetadata pins token metadata and returns its locations
func (s *Service) PinNFTMetadata(ctx context.Context, owner uuid.UUID, meta pinning.NFTMetadata) (*domain.NFTMetadataResponse, error) {
	cid, err := s.uploader.UploadNFTMetadata(ctx, meta)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	f := &domain.PinnedFile{
		ID:        uuid.New(),
		CID:       cid,
		Kind:      domain.PinKindNFTMetadata,
		OwnerID:   owner,
		Filename:  meta.Name,
		MimeType:  "application/json",
		URL:       s.uploader.GatewayURL(cid),
		PinnedAt:  now,
		CreatedAt: now,
	}
	if err := s.catalog.Create(ctx, f); err != nil {
		return nil, &CatalogError{CID: cid, Err: err}
	}

	s.logger.Info("nft metadata pinned", "cid", cid, "owner_id", owner, "name", meta.Name)
	return &domain.NFTMetadataResponse{
		CID:      cid,
		URL:      f.URL,
		TokenURI: "ipfs://" + cid,
	}, nil
}

func (s *Service) record(ctx context.Context, kind domain.PinKind, owner uuid.UUID, scopeID string, res *pinning.UploadResult) (*domain.PinnedFile, error) {
	f := &domain.PinnedFile{
		ID:        uuid.New(),
		CID:       res.CID,
		Kind:      kind,
		OwnerID:   owner,
		ScopeID:   scopeID,
		Filename:  res.Filename,
		MimeType:  res.MimeType,
		SizeBytes: res.Size,
		URL:       res.URL,
		Duplicate: res.Duplicate,
		PinnedAt:  res.Timestamp,
		CreatedAt: s.now().UTC(),
	}
	if err := s.catalog.Create(ctx, f); err != nil {
		s.logger.Error("catalog write failed after pin", "cid", res.CID, "kind", kind, "error", err)
		return nil, &CatalogError{CID: res.CID, Err: err}
	}

	s.logger.Info("file pinned",
		"cid", f.CID,
		"kind", kind,
		"owner_id", owner,
		"scope_id", scopeID,
		"size", f.SizeBytes,
		"duplicate", f.Duplicate,
	)
	return f, nil
}

// afterPin runs the best-effort steps. Their failures are logged and do not
// undo the pin.
func (s *Service) afterPin(ctx context.Context, f *domain.PinnedFile, file pinning.File) {
	if s.mirror != nil {
		if err := s.mirror.Put(ctx, f.CID, f.MimeType, file.Data); err != nil {
			s.logger.Warn("mirror failed", "cid", f.CID, "error", err)
		} else if err := s.catalog.MarkMirrored(ctx, f.ID); err != nil {
			s.logger.Warn("mark mirrored failed", "cid", f.CID, "error", err)
		} else {
			f.Mirrored = true
		}
	}

	if s.publisher != nil {
		if err := s.publisher.BroadcastPinned(ctx, f); err != nil {
			s.logger.Warn("broadcast failed", "cid", f.CID, "kind", f.Kind, "error", err)
		}
	}
}

func validScope(id string) error {
	if id == "" || len(id) > maxScopeIDLength {
		return domain.ErrInvalidScope
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// ListDealDocuments lists a deal's documents, newest first
func (s *Service) ListDealDocuments(ctx context.Context, dealID string, limit int) ([]*domain.PinnedFile, error) {
	return s.list(ctx, domain.PinKindDealDocument, dealID, limit)
}

// ListChatAttachments lists a channel's attachments, newest first
func (s *Service) ListChatAttachments(ctx context.Context, channelID string, limit int) ([]*domain.PinnedFile, error) {
	return s.list(ctx, domain.PinKindChatAttachment, channelID, limit)
}

func (s *Service) list(ctx context.Context, kind domain.PinKind, scopeID string, limit int) ([]*domain.PinnedFile, error) {
	if err := validScope(scopeID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return s.catalog.ListByScope(ctx, kind, scopeID, limit)
}

// ResolveURL returns the gateway URL for cid without any lookup
func (s *Service) ResolveURL(cid string) string {
	return s.uploader.GatewayURL(cid)
}

// Resolve returns the gateway URL for cid and its catalog record when one
// exists. Content pinned elsewhere still resolves.
func (s *Service) Resolve(ctx context.Context, cid string) (*domain.ResolveResponse, error) {
	resp := &domain.ResolveResponse{CID: cid, URL: s.uploader.GatewayURL(cid)}

	f, err := s.catalog.GetByCID(ctx, cid)
	switch {
	case errors.Is(err, domain.ErrPinnedFileNotFound):
	case err != nil:
		return nil, err
	default:
		resp.File = f
	}
	return resp, nil
}

// MirrorURL returns a presigned download link for the mirrored copy of cid
func (s *Service) MirrorURL(ctx context.Context, cid string) (*domain.MirrorURLResponse, error) {
	if s.mirror == nil {
		return nil, domain.ErrMirrorDisabled
	}

	f, err := s.catalog.GetByCID(ctx, cid)
	if err != nil {
		return nil, err
	}
	if !f.Mirrored {
		return nil, domain.ErrNotMirrored
	}

	url, expiresAt, err := s.mirror.PresignedGetURL(ctx, cid)
	if err != nil {
		return nil, err
	}
	return &domain.MirrorURLResponse{CID: cid, URL: url, ExpiresAt: expiresAt}, nil
}

// GetProfile returns a member's profile with the avatar URL filled in.
// Members who never uploaded an avatar get an empty profile.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return &domain.Profile{ID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.HasAvatar() {
		p.AvatarURL = s.uploader.GatewayURL(*p.AvatarCID)
	}
	return p, nil
}
