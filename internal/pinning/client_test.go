package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test doubles
// =============================================================================

type capturedRequest struct {
	Method      string
	Path        string
	Auth        string
	ContentType string
	Body        []byte
}

// fakePinata records every request and answers with a fixed status and body.
type fakePinata struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
	srv      *httptest.Server
}

func newFakePinata(t *testing.T, status int, body string) *fakePinata {
	t.Helper()
	f := &fakePinata{status: status, body: body}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, capturedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        raw,
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePinata) client(jwt string, opts ...Option) *Client {
	return NewClient(Config{JWT: jwt, Gateway: "vault.example.com", APIURL: f.srv.URL}, opts...)
}

func (f *fakePinata) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakePinata) last(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "expected at least one request")
	return f.requests[len(f.requests)-1]
}

// countingDoer never reaches a network; it counts invocations.
type countingDoer struct {
	calls atomic.Int32
	err   error
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"IpfsHash":"bafy-test","PinSize":1}`)),
		Header:     make(http.Header),
	}, nil
}

type multipartForm struct {
	FileName        string
	FileContentType string
	FileData        []byte
	Metadata        *pinataMetadata
}

func parseMultipart(t *testing.T, req capturedRequest) multipartForm {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.ContentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	var form multipartForm
	reader := multipart.NewReader(bytes.NewReader(req.Body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)

		switch part.FormName() {
		case "file":
			form.FileName = part.FileName()
			form.FileContentType = part.Header.Get("Content-Type")
			form.FileData = data
		case "pinataMetadata":
			form.Metadata = &pinataMetadata{}
			require.NoError(t, json.Unmarshal(data, form.Metadata))
		}
	}
	return form
}

const okReceipt = `{"IpfsHash":"abc123","PinSize":42,"Timestamp":"2024-05-01T12:30:00.000Z"}`

// =============================================================================
// URL resolution
// =============================================================================

func TestResolveURL(t *testing.T) {
	cases := []struct {
		gateway, cid, want string
	}{
		{"gateway.pinata.cloud", "QmHash", "https://gateway.pinata.cloud/ipfs/QmHash"},
		{"vault.example.com", "bafybeigdyrzt", "https://vault.example.com/ipfs/bafybeigdyrzt"},
		{"localhost:8080", "abc123", "https://localhost:8080/ipfs/abc123"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveURL(tc.gateway, tc.cid))
		assert.Equal(t, "https://"+tc.gateway+"/ipfs/"+tc.cid, ResolveURL(tc.gateway, tc.cid))
	}
}

func TestClient_GatewayURL_UsesDefaultGateway(t *testing.T) {
	doer := &countingDoer{}
	c := NewClient(Config{}, WithHTTPClient(doer))

	assert.Equal(t, DefaultGateway, c.Gateway())
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmXyz", c.GatewayURL("QmXyz"))
	assert.Zero(t, doer.calls.Load(), "resolving a URL must not touch the network")
}

func TestClient_GatewayURL_NoCredentialNeeded(t *testing.T) {
	c := NewClient(Config{Gateway: "vault.example.com"})
	assert.Equal(t, "https://vault.example.com/ipfs/abc", c.GatewayURL("abc"))
}

// =============================================================================
// UploadFile
// =============================================================================

func TestUploadFile_RoundTripsReceipt(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("secret-jwt")

	res, err := c.UploadFile(context.Background(), File{
		Name:        "ledger.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7 gold"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "abc123", res.CID)
	assert.Equal(t, int64(42), res.Size)
	assert.Equal(t, "ledger.pdf", res.Filename)
	assert.Equal(t, "application/pdf", res.MimeType)
	assert.True(t, strings.HasSuffix(res.URL, "/ipfs/abc123"))
	assert.Equal(t, "https://vault.example.com/ipfs/abc123", res.URL)
	assert.True(t, res.Timestamp.Equal(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)))
}

func TestUploadFile_SendsMultipartWithBearer(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("secret-jwt")

	_, err := c.UploadFile(context.Background(), File{
		Name:        "nugget.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 'P', 'N', 'G'},
	}, &Metadata{Name: "display", KeyValues: map[string]string{"k": "v"}})
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/pinning/pinFileToIPFS", req.Path)
	assert.Equal(t, "Bearer secret-jwt", req.Auth)

	form := parseMultipart(t, req)
	assert.Equal(t, "nugget.png", form.FileName)
	assert.Equal(t, "image/png", form.FileContentType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, form.FileData)
	require.NotNil(t, form.Metadata)
	assert.Equal(t, "display", form.Metadata.Name)
	assert.Equal(t, map[string]string{"k": "v"}, form.Metadata.KeyValues)
}

func TestUploadFile_MetadataNameDefaultsToFilename(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	_, err := c.UploadFile(context.Background(), File{Name: "a.txt", ContentType: "text/plain", Data: []byte("a")}, &Metadata{})
	require.NoError(t, err)

	form := parseMultipart(t, fake.last(t))
	require.NotNil(t, form.Metadata)
	assert.Equal(t, "a.txt", form.Metadata.Name)
	assert.NotNil(t, form.Metadata.KeyValues)
	assert.Empty(t, form.Metadata.KeyValues)
}

func TestUploadFile_NoMetadataOmitsField(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	_, err := c.UploadFile(context.Background(), File{Name: "a.bin", Data: []byte("a")}, nil)
	require.NoError(t, err)

	form := parseMultipart(t, fake.last(t))
	assert.Nil(t, form.Metadata)
	assert.Equal(t, "application/octet-stream", form.FileContentType)
}

func TestUploadFile_FallsBackToClockForUnparseableTimestamp(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, `{"IpfsHash":"abc","PinSize":1,"Timestamp":"yesterday"}`)
	c := fake.client("jwt")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	res, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("x")}, nil)
	require.NoError(t, err)
	assert.Equal(t, fixed, res.Timestamp)
}

func TestUploadFile_ReportsDuplicateFlag(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, `{"IpfsHash":"abc","PinSize":3,"Timestamp":"2024-05-01T12:30:00Z","isDuplicate":true}`)
	c := fake.client("jwt")

	res, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("abc")}, nil)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
}

// =============================================================================
// Failure classification
// =============================================================================

func TestUploadFile_ServiceErrorTextIsPreserved(t *testing.T) {
	fake := newFakePinata(t, http.StatusInternalServerError, `{"error": "rate limited"}`)
	c := fake.client("jwt")

	res, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("x")}, nil)
	require.Error(t, err)
	assert.Nil(t, res, "failed uploads must not return a partial result")

	assert.True(t, IsKind(err, KindUpload))
	assert.Contains(t, err.Error(), "rate limited")

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
}

func TestUploadFile_StructuredServiceError(t *testing.T) {
	fake := newFakePinata(t, http.StatusUnauthorized, `{"error":{"reason":"INVALID_CREDENTIALS","details":"token revoked"}}`)
	c := fake.client("jwt")

	_, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("x")}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpload))
	assert.Contains(t, err.Error(), "INVALID_CREDENTIALS: token revoked")
}

func TestUploadFile_NonJSONErrorFallsBackToStatusText(t *testing.T) {
	fake := newFakePinata(t, http.StatusBadGateway, `<html>upstream down</html>`)
	c := fake.client("jwt")

	_, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("x")}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpload))
	assert.Contains(t, err.Error(), http.StatusText(http.StatusBadGateway))
}

func TestUploadFile_MissingHashIsUploadError(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, `{"PinSize":3}`)
	c := fake.client("jwt")

	res, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("x")}, nil)
	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindUpload))
}

func TestUploadFile_TransportErrorPassesThrough(t *testing.T) {
	cause := errors.New("connection reset by peer")
	doer := &countingDoer{err: cause}
	c := NewClient(Config{JWT: "jwt"}, WithHTTPClient(doer))

	res, err := c.UploadFile(context.Background(), File{Name: "x", Data: []byte("x")}, nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(1), doer.calls.Load(), "no retries")
}

func TestUploadFile_CanceledContextIsNetworkError(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.UploadFile(ctx, File{Name: "x", Data: []byte("x")}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// UploadJSON
// =============================================================================

func TestUploadJSON_SendsStructuredBody(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	cid, err := c.UploadJSON(context.Background(), map[string]any{"tier": "Don"}, &Metadata{
		Name:      "profile",
		KeyValues: map[string]string{"type": "profile"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", cid)

	req := fake.last(t)
	assert.Equal(t, "/pinning/pinJSONToIPFS", req.Path)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, "Bearer jwt", req.Auth)

	var body struct {
		Content  map[string]any  `json:"pinataContent"`
		Metadata *pinataMetadata `json:"pinataMetadata"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "Don", body.Content["tier"])
	require.NotNil(t, body.Metadata)
	assert.Equal(t, "profile", body.Metadata.Name)
	assert.Equal(t, map[string]string{"type": "profile"}, body.Metadata.KeyValues)
}

func TestUploadJSON_WithoutMetadata(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	_, err := c.UploadJSON(context.Background(), []int{1, 2, 3}, nil)
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(fake.last(t).Body, &body))
	assert.JSONEq(t, `[1,2,3]`, string(body["pinataContent"]))
	_, hasMeta := body["pinataMetadata"]
	assert.False(t, hasMeta)
}

func TestUploadJSON_UnserializableIsValidationError(t *testing.T) {
	fake := newFakePinata(t, http.StatusOK, okReceipt)
	c := fake.client("jwt")

	_, err := c.UploadJSON(context.Background(), map[string]any{"ch": make(chan int)}, nil)
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, fake.calls())
}

func TestUploadJSON_ServiceError(t *testing.T) {
	fake := newFakePinata(t, http.StatusInternalServerError, `{"error": "rate limited"}`)
	c := fake.client("jwt")

	cid, err := c.UploadJSON(context.Background(), map[string]string{"a": "b"}, nil)
	assert.Empty(t, cid)
	assert.True(t, IsKind(err, KindUpload))
	assert.Contains(t, err.Error(), "rate limited")
}

// =============================================================================
// Credential precondition
// =============================================================================

func TestMissingCredential_EveryUploadFailsWithoutIO(t *testing.T) {
	doer := &countingDoer{}
	c := NewClient(Config{Gateway: "vault.example.com"}, WithHTTPClient(doer))
	ctx := context.Background()
	img := File{Name: "a.png", ContentType: "image/png", Data: []byte("png")}

	ops := map[string]func() error{
		"file": func() error { _, err := c.UploadFile(ctx, img, nil); return err },
		"json": func() error { _, err := c.UploadJSON(ctx, map[string]int{"a": 1}, nil); return err },
		"avatar": func() error {
			_, err := c.UploadAvatar(ctx, "u1", img)
			return err
		},
		"deal": func() error {
			_, err := c.UploadDealDocument(ctx, "D1", "U1", img)
			return err
		},
		"chat": func() error {
			_, err := c.UploadChatAttachment(ctx, "C1", "U1", img)
			return err
		},
		"nft": func() error {
			_, err := c.UploadNFTMetadata(ctx, NFTMetadata{Name: "Badge"})
			return err
		},
	}

	for name, run := range ops {
		t.Run(name, func(t *testing.T) {
			err := run()
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConfiguration), "got %v", err)
			assert.ErrorIs(t, err, ErrMissingCredential)
		})
	}
	assert.Zero(t, doer.calls.Load())
}

// =============================================================================
// Error helpers
// =============================================================================

func TestGetKind_ForeignErrorIsUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, GetKind(errors.New("boom")))
	assert.Equal(t, KindUnknown, GetKind(nil))
}

func TestGetKind_SeesThroughWrapping(t *testing.T) {
	err := validationError("op", "bad")
	wrapped := errors.Join(errors.New("context"), err)
	assert.Equal(t, KindValidation, GetKind(wrapped))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "upload", KindUpload.String())
	assert.Equal(t, "network", KindNetwork.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
