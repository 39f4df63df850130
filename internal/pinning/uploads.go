package pinning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Per-kind payload limits.
const (
	MaxAvatarBytes         = 5 * 1024 * 1024
	MaxChatAttachmentBytes = 10 * 1024 * 1024
	MaxDealDocumentBytes   = 20 * 1024 * 1024
)

// Tag values written under the "type" key.
const (
	TypeAvatar         = "avatar"
	TypeDealDocument   = "deal-document"
	TypeChatAttachment = "chat-attachment"
	TypeNFTMetadata    = "nft-metadata"
)

// NFTAttribute is one trait of an NFT. Value must be a string or a number.
type NFTAttribute struct {
	TraitType string `json:"trait_type" validate:"required"`
	Value     any    `json:"value"`
}

// NFTMetadata follows the common token metadata layout. Attribute order is kept.
type NFTMetadata struct {
	Name        string         `json:"name" validate:"required,max=200"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Attributes  []NFTAttribute `json:"attributes" validate:"dive"`
}

// UploadAvatar pins a member avatar. The file must be an image of at most 5 MiB.
func (c *Client) UploadAvatar(ctx context.Context, userID string, file File) (*UploadResult, error) {
	const op = "upload avatar"
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, validationError(op, "file must be an image, got %q", file.ContentType)
	}
	if err := checkSize(op, "image", file, MaxAvatarBytes); err != nil {
		return nil, err
	}
	return c.uploadFile(ctx, TypeAvatar, file, &Metadata{
		Name: "avatar-" + userID,
		KeyValues: map[string]string{
			"type":   TypeAvatar,
			"userId": userID,
		},
	})
}

// UploadDealDocument pins a document attached to a deal, at most 20 MiB.
func (c *Client) UploadDealDocument(ctx context.Context, dealID, uploadedBy string, file File) (*UploadResult, error) {
	const op = "upload deal document"
	if err := checkSize(op, "document", file, MaxDealDocumentBytes); err != nil {
		return nil, err
	}
	return c.uploadFile(ctx, TypeDealDocument, file, &Metadata{
		Name: fmt.Sprintf("deal-%s-%s", dealID, file.Name),
		KeyValues: map[string]string{
			"type":       TypeDealDocument,
			"dealId":     dealID,
			"uploadedBy": uploadedBy,
		},
	})
}

// UploadChatAttachment pins a file shared in a chat channel, at most 10 MiB.
func (c *Client) UploadChatAttachment(ctx context.Context, channelID, uploadedBy string, file File) (*UploadResult, error) {
	const op = "upload chat attachment"
	if err := checkSize(op, "attachment", file, MaxChatAttachmentBytes); err != nil {
		return nil, err
	}
	return c.uploadFile(ctx, TypeChatAttachment, file, &Metadata{
		Name: fmt.Sprintf("chat-%s-%s", channelID, file.Name),
		KeyValues: map[string]string{
			"type":       TypeChatAttachment,
			"channelId":  channelID,
			"uploadedBy": uploadedBy,
		},
	})
}

// UploadNFTMetadata pins token metadata as JSON and returns its content identifier.
func (c *Client) UploadNFTMetadata(ctx context.Context, meta NFTMetadata) (string, error) {
	const op = "upload nft metadata"
	if err := c.ValidateNFTMetadata(meta); err != nil {
		return "", &Error{Kind: KindValidation, Op: op, Message: err.Error(), Err: err}
	}
	return c.uploadJSON(ctx, TypeNFTMetadata, meta, &Metadata{
		Name:      "nft-metadata-" + meta.Name,
		KeyValues: map[string]string{"type": TypeNFTMetadata},
	})
}

// ValidateNFTMetadata checks the structural rules without touching the network.
func (c *Client) ValidateNFTMetadata(meta NFTMetadata) error {
	if err := c.validate.Struct(meta); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q", fe.Namespace(), fe.Tag())
		}
		return err
	}
	for i, attr := range meta.Attributes {
		if !scalarValue(attr.Value) {
			return fmt.Errorf("attribute %d (%s): value must be a string or a number", i, attr.TraitType)
		}
	}
	return nil
}

func scalarValue(v any) bool {
	switch v.(type) {
	case string, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func checkSize(op, noun string, file File, limit int64) error {
	if file.Size() > limit {
		return validationError(op, "%s must be at most %d MiB (got %d bytes)", noun, limit/(1024*1024), file.Size())
	}
	return nil
}
