package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/goldmafia/clubhouse/internal/auth"
	"github.com/goldmafia/clubhouse/internal/domain"
	"github.com/goldmafia/clubhouse/internal/pinning"
)

// multipart parts beyond this are spooled to disk
const multipartMemory = 8 << 20

// MediaService is what the handlers need from the media layer
type MediaService interface {
	UploadAvatar(ctx context.Context, userID uuid.UUID, displayName string, file pinning.File) (*domain.PinnedFile, error)
	UploadDealDocument(ctx context.Context, dealID string, uploadedBy uuid.UUID, file pinning.File) (*domain.PinnedFile, error)
	UploadChatAttachment(ctx context.Context, channelID string, uploadedBy uuid.UUID, file pinning.File) (*domain.PinnedFile, error)
	PinNFTMetadata(ctx context.Context, owner uuid.UUID, meta pinning.NFTMetadata) (*domain.NFTMetadataResponse, error)
	ListDealDocuments(ctx context.Context, dealID string, limit int) ([]*domain.PinnedFile, error)
	ListChatAttachments(ctx context.Context, channelID string, limit int) ([]*domain.PinnedFile, error)
	ResolveURL(cid string) string
	Resolve(ctx context.Context, cid string) (*domain.ResolveResponse, error)
	MirrorURL(ctx context.Context, cid string) (*domain.MirrorURLResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
}

// AvatarResponse is returned after installing a new avatar
type AvatarResponse struct {
	Profile *domain.Profile    `json:"profile"`
	File    *domain.PinnedFile `json:"file"`
}

// ListResponse wraps catalog listings
type ListResponse struct {
	Files []*domain.PinnedFile `json:"files"`
}

type MediaHandler struct {
	media           MediaService
	maxRequestBytes int64
	logger          *slog.Logger
}

func NewMediaHandler(media MediaService, maxRequestBytes int64, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:           media,
		maxRequestBytes: maxRequestBytes,
		logger:          logger.With("component", "api"),
	}
}

// =============================================================================
// Uploads
// =============================================================================

// UploadAvatar godoc
//
//	@Summary		Upload avatar
//	@Description	Pin an image (max 5 MiB) and install it as the caller's avatar
//	@Tags			profiles
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	AvatarResponse
//	@Failure		400		{object}	ErrorResponse	"Not an image or too large"
//	@Failure		401		{object}	ErrorResponse	"Unauthorized"
//	@Failure		413		{object}	ErrorResponse	"Request body too large"
//	@Failure		502		{object}	ErrorResponse	"Pinning service rejected the upload"
//	@Router			/profiles/me/avatar [post]
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	username, _ := auth.GetUsername(ctx)

	file, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	pinned, err := h.media.UploadAvatar(ctx, userID, username, file)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	profile, err := h.media.GetProfile(ctx, userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, AvatarResponse{Profile: profile, File: pinned})
}

// UploadDealDocument godoc
//
//	@Summary		Upload deal document
//	@Description	Pin a document (max 20 MiB) into a deal room
//	@Tags			deals
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			dealId	path		string	true	"Deal ID"
//	@Param			file	formData	file	true	"Document"
//	@Success		201		{object}	domain.PinnedFile
//	@Failure		400		{object}	ErrorResponse	"Too large or invalid deal"
//	@Failure		401		{object}	ErrorResponse	"Unauthorized"
//	@Failure		502		{object}	ErrorResponse	"Pinning service rejected the upload"
//	@Router			/deals/{dealId}/documents [post]
func (h *MediaHandler) UploadDealDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	pinned, err := h.media.UploadDealDocument(r.Context(), r.PathValue("dealId"), userID, file)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pinned)
}

// UploadChatAttachment godoc
//
//	@Summary		Upload chat attachment
//	@Description	Pin an attachment (max 10 MiB) into a chat channel
//	@Tags			channels
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			channelId	path		string	true	"Channel ID"
//	@Param			file		formData	file	true	"Attachment"
//	@Success		201			{object}	domain.PinnedFile
//	@Failure		400			{object}	ErrorResponse	"Too large or invalid channel"
//	@Failure		401			{object}	ErrorResponse	"Unauthorized"
//	@Failure		502			{object}	ErrorResponse	"Pinning service rejected the upload"
//	@Router			/channels/{channelId}/attachments [post]
func (h *MediaHandler) UploadChatAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	pinned, err := h.media.UploadChatAttachment(r.Context(), r.PathValue("channelId"), userID, file)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pinned)
}

// PinNFTMetadata godoc
//
//	@Summary		Pin NFT metadata
//	@Description	Pin an ERC-721 style metadata document and return its token URI
//	@Tags			nft
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		pinning.NFTMetadata	true	"Token metadata"
//	@Success		201		{object}	domain.NFTMetadataResponse
//	@Failure		400		{object}	ErrorResponse	"Invalid metadata"
//	@Failure		401		{object}	ErrorResponse	"Unauthorized"
//	@Router			/nft/metadata [post]
func (h *MediaHandler) PinNFTMetadata(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	var meta pinning.NFTMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeServiceError(w, h.logger, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.media.PinNFTMetadata(r.Context(), userID, meta)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// readUpload extracts the "file" part of a multipart request. On failure the
// response has been written.
func (h *MediaHandler) readUpload(w http.ResponseWriter, r *http.Request) (pinning.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeServiceError(w, h.logger, err)
		} else {
			writeError(w, http.StatusBadRequest, "expected multipart form with a file part")
		}
		return pinning.File{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return pinning.File{}, false
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file part")
		return pinning.File{}, false
	}

	return pinning.File{
		Name:        header.Filename,
		ContentType: contentType(header.Header.Get("Content-Type"), data),
		Data:        data,
	}, true
}

// contentType trusts the declared type unless it is missing or generic, in
// which case the bytes are sniffed
func contentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

// =============================================================================
// Queries
// =============================================================================

// GetMyProfile godoc
//
//	@Summary		Get own profile
//	@Description	Profile of the caller with the avatar gateway URL
//	@Tags			profiles
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.Profile
//	@Failure		401	{object}	ErrorResponse	"Unauthorized"
//	@Router			/profiles/me [get]
func (h *MediaHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.media.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListDealDocuments godoc
//
//	@Summary		List deal documents
//	@Tags			deals
//	@Produce		json
//	@Security		BearerAuth
//	@Param			dealId	path		string	true	"Deal ID"
//	@Param			limit	query		int		false	"Max results (default 50)"
//	@Success		200		{object}	ListResponse
//	@Router			/deals/{dealId}/documents [get]
func (h *MediaHandler) ListDealDocuments(w http.ResponseWriter, r *http.Request) {
	files, err := h.media.ListDealDocuments(r.Context(), r.PathValue("dealId"), queryLimit(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Files: files})
}

// ListChatAttachments godoc
//
//	@Summary		List chat attachments
//	@Tags			channels
//	@Produce		json
//	@Security		BearerAuth
//	@Param			channelId	path		string	true	"Channel ID"
//	@Param			limit		query		int		false	"Max results (default 50)"
//	@Success		200			{object}	ListResponse
//	@Router			/channels/{channelId}/attachments [get]
func (h *MediaHandler) ListChatAttachments(w http.ResponseWriter, r *http.Request) {
	files, err := h.media.ListChatAttachments(r.Context(), r.PathValue("channelId"), queryLimit(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Files: files})
}

// ResolveURL godoc
//
//	@Summary		Resolve content URL
//	@Description	Gateway URL for a content identifier. No lookup is performed.
//	@Tags			ipfs
//	@Produce		json
//	@Param			cid	path		string	true	"Content identifier"
//	@Success		200	{object}	domain.ResolveResponse
//	@Router			/ipfs/{cid}/url [get]
func (h *MediaHandler) ResolveURL(w http.ResponseWriter, r *http.Request) {
	cid := r.PathValue("cid")
	writeJSON(w, http.StatusOK, domain.ResolveResponse{CID: cid, URL: h.media.ResolveURL(cid)})
}

// GetFile godoc
//
//	@Summary		Get pinned file
//	@Description	Gateway URL plus the catalog record when this service pinned the content
//	@Tags			ipfs
//	@Produce		json
//	@Param			cid	path		string	true	"Content identifier"
//	@Success		200	{object}	domain.ResolveResponse
//	@Router			/files/{cid} [get]
func (h *MediaHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	resp, err := h.media.Resolve(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMirrorURL godoc
//
//	@Summary		Get mirror download URL
//	@Description	Presigned link to the object storage copy of pinned content
//	@Tags			ipfs
//	@Produce		json
//	@Security		BearerAuth
//	@Param			cid	path		string	true	"Content identifier"
//	@Success		200	{object}	domain.MirrorURLResponse
//	@Failure		404	{object}	ErrorResponse	"Not mirrored or mirror disabled"
//	@Router			/files/{cid}/mirror [get]
func (h *MediaHandler) GetMirrorURL(w http.ResponseWriter, r *http.Request) {
	resp, err := h.media.MirrorURL(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
