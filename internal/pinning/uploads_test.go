package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sized(n int, contentType string) File {
	return File{Name: "payload.bin", ContentType: contentType, Data: bytes.Repeat([]byte{'g'}, n)}
}

// =============================================================================
// Avatar
// =============================================================================

func TestUploadAvatar_RejectsNonImageBeforeIO(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	res, err := c.UploadAvatar(context.Background(), "u1", File{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("pdf")})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, fake.calls())
}

func TestUploadAvatar_RejectsEmptyMimeType(t *testing.T) {
	doer := &countingDoer{}
	c := NewClient(Config{JWT: "jwt"}, WithHTTPClient(doer))

	_, err := c.UploadAvatar(context.Background(), "u1", File{Name: "a", Data: []byte("a")})
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, doer.calls.Load())
}

func TestUploadAvatar_SizeBoundary(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")
	ctx := context.Background()

	_, err := c.UploadAvatar(ctx, "u1", sized(MaxAvatarBytes, "image/jpeg"))
	require.NoError(t, err, "exactly 5 MiB is accepted")
	assert.Equal(t, 1, fake.calls())

	_, err = c.UploadAvatar(ctx, "u1", sized(MaxAvatarBytes+1, "image/jpeg"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, 1, fake.calls(), "oversized avatar must not reach the network")
}

func TestUploadAvatar_ValidationPrecedesCredentialCheck(t *testing.T) {
	doer := &countingDoer{}
	c := NewClient(Config{}, WithHTTPClient(doer))

	_, err := c.UploadAvatar(context.Background(), "u1", sized(MaxAvatarBytes+1, "image/png"))
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, doer.calls.Load())
}

func TestUploadAvatar_Tags(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	res, err := c.UploadAvatar(context.Background(), "user-9", File{Name: "me.webp", ContentType: "image/webp", Data: []byte("webp")})
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.CID)

	form := parseMultipart(t, fake.last(t))
	require.NotNil(t, form.Metadata)
	assert.Equal(t, "avatar-user-9", form.Metadata.Name)
	assert.Equal(t, map[string]string{"type": "avatar", "userId": "user-9"}, form.Metadata.KeyValues)
}

// =============================================================================
// Deal documents and chat attachments
// =============================================================================

func TestUploadDealDocument_TagsExactly(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	res, err := c.UploadDealDocument(context.Background(), "D1", "U1", File{Name: "assay.pdf", ContentType: "application/pdf", Data: []byte("assay")})
	require.NoError(t, err)
	assert.Equal(t, "assay.pdf", res.Filename)

	form := parseMultipart(t, fake.last(t))
	require.NotNil(t, form.Metadata)
	assert.Equal(t, "deal-D1-assay.pdf", form.Metadata.Name)
	assert.Equal(t, map[string]string{
		"type":       "deal-document",
		"dealId":     "D1",
		"uploadedBy": "U1",
	}, form.Metadata.KeyValues)
}

func TestUploadChatAttachment_Tags(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	_, err := c.UploadChatAttachment(context.Background(), "lounge", "U7", File{Name: "map.jpg", ContentType: "image/jpeg", Data: []byte("jpg")})
	require.NoError(t, err)

	form := parseMultipart(t, fake.last(t))
	require.NotNil(t, form.Metadata)
	assert.Equal(t, "chat-lounge-map.jpg", form.Metadata.Name)
	assert.Equal(t, map[string]string{
		"type":       "chat-attachment",
		"channelId":  "lounge",
		"uploadedBy": "U7",
	}, form.Metadata.KeyValues)
}

func TestSizeBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		limit  int
		upload func(c *Client, f File) error
	}{
		{"chat", MaxChatAttachmentBytes, func(c *Client, f File) error {
			_, err := c.UploadChatAttachment(context.Background(), "C1", "U1", f)
			return err
		}},
		{"deal", MaxDealDocumentBytes, func(c *Client, f File) error {
			_, err := c.UploadDealDocument(context.Background(), "D1", "U1", f)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakePinata(t, http.StatusOK, okReceipt)
			c := fake.client("jwt")

			require.NoError(t, tc.upload(c, sized(tc.limit, "application/octet-stream")))
			assert.Equal(t, 1, fake.calls())

			err := tc.upload(c, sized(tc.limit+1, "application/octet-stream"))
			assert.True(t, IsKind(err, KindValidation), "got %v", err)
			assert.Equal(t, 1, fake.calls())
		})
	}
}

func TestDealDocument_AcceptsAnyMimeType(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	_, err := c.UploadDealDocument(context.Background(), "D1", "U1", File{Name: "x.zip", ContentType: "application/zip", Data: []byte("zip")})
	assert.NoError(t, err)
}

// =============================================================================
// NFT metadata
// =============================================================================

func TestUploadNFTMetadata_SendsDocumentAndTag(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	cid, err := c.UploadNFTMetadata(context.Background(), NFTMetadata{
		Name:        "Caporegime Badge",
		Description: "Membership badge",
		Image:       "ipfs://QmImage",
		Attributes: []NFTAttribute{
			{TraitType: "Tier", Value: "Caporegime"},
			{TraitType: "Respect", Value: 420},
			{TraitType: "Purity", Value: 99.9},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", cid)

	var body struct {
		Content  NFTMetadata     `json:"pinataContent"`
		Metadata *pinataMetadata `json:"pinataMetadata"`
	}
	require.NoError(t, json.Unmarshal(fake.last(t).Body, &body))
	assert.Equal(t, "Caporegime Badge", body.Content.Name)
	require.Len(t, body.Content.Attributes, 3)
	assert.Equal(t, "Tier", body.Content.Attributes[0].TraitType)
	assert.Equal(t, "Respect", body.Content.Attributes[1].TraitType)
	assert.Equal(t, "Purity", body.Content.Attributes[2].TraitType)
	assert.Equal(t, float64(420), body.Content.Attributes[1].Value)

	require.NotNil(t, body.Metadata)
	assert.Equal(t, "nft-metadata-Caporegime Badge", body.Metadata.Name)
	assert.Equal(t, map[string]string{"type": "nft-metadata"}, body.Metadata.KeyValues)
}

func TestUploadNFTMetadata_ValidationFailures(t *testing.T) {
	cases := map[string]NFTMetadata{
		"missing name":     {Description: "x"},
		"empty trait type": {Name: "Badge", Attributes: []NFTAttribute{{Value: "x"}}},
		"object value":     {Name: "Badge", Attributes: []NFTAttribute{{TraitType: "t", Value: map[string]int{"a": 1}}}},
		"nil value":        {Name: "Badge", Attributes: []NFTAttribute{{TraitType: "t"}}},
	}

	for name, meta := range cases {
		t.Run(name, func(t *testing.T) {
			fake := newFakePinata(t, http.StatusOK, okReceipt)
			c := fake.client("jwt")

			cid, err := c.UploadNFTMetadata(context.Background(), meta)
			assert.Empty(t, cid)
			assert.True(t, IsKind(err, KindValidation), "got %v", err)
			assert.Zero(t, fake.calls())
		})
	}
}

// =============================================================================
// Observer
// =============================================================================

type recordedUpload struct {
	operation string
	size      int64
	err       error
}

type fakeObserver struct {
	mu      sync.Mutex
	records []recordedUpload
}

func (o *fakeObserver) RecordUpload(operation string, _ time.Duration, size int64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, recordedUpload{operation, size, err})
}

func TestObserver_SeesSuccessAndFailure(t *testing.T) {
	ok := newFakePinata(t, http.StatusOK, okReceipt)
	obs := &fakeObserver{}
	c := ok.client("jwt", WithObserver(obs))

	_, err := c.UploadDealDocument(context.Background(), "D1", "U1", File{Name: "a", Data: []byte("a")})
	require.NoError(t, err)

	bad := newFakePinata(t, http.StatusInternalServerError, `{"error":"rate limited"}`)
	c2 := bad.client("jwt", WithObserver(obs))
	_, err = c2.UploadJSON(context.Background(), map[string]int{"a": 1}, nil)
	require.Error(t, err)

	require.Len(t, obs.records, 2)
	assert.Equal(t, recordedUpload{operation: TypeDealDocument, size: 42}, obs.records[0])
	assert.Equal(t, "json", obs.records[1].operation)
	assert.True(t, IsKind(obs.records[1].err, KindUpload))
}

func TestObserver_NotCalledForValidationFailures(t *testing.T) {
	obs := &fakeObserver{}
	c := NewClient(Config{JWT: "jwt"}, WithObserver(obs), WithHTTPClient(&countingDoer{}))

	_, _ = c.UploadAvatar(context.Background(), "u", File{ContentType: "text/plain"})
	assert.Empty(t, obs.records)
}

func TestPrometheusObserver_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	obs.RecordUpload("avatar", 10*time.Millisecond, 1024, nil)
	obs.RecordUpload("avatar", 5*time.Millisecond, 0, uploadError("upload avatar", 500, "boom"))

	assert.Equal(t, float64(1024), testutil.ToFloat64(obs.pinnedBytes.WithLabelValues("avatar")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.failures.WithLabelValues("avatar", "upload")))
}

func TestPrometheusObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("shared", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("shared", reg)
	require.NoError(t, err)

	second.RecordUpload("file", time.Millisecond, 7, nil)
	assert.Equal(t, float64(7), testutil.ToFloat64(first.pinnedBytes.WithLabelValues("file")))
}

func TestPrometheusObserver_NilIsSafe(t *testing.T) {
	var obs *PrometheusObserver
	assert.NotPanics(t, func() { obs.RecordUpload("file", time.Second, 1, nil) })
}
