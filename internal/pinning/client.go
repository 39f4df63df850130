package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Responses larger than this are not pin receipts.
const maxResponseBytes = 1 << 20

// HTTPDoer is the transport used for outbound requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// File is a binary payload with its declared name and MIME type.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Metadata is attached to a pin. KeyValues is free-form; no key is required.
type Metadata struct {
	Name      string
	KeyValues map[string]string
}

// UploadResult describes a successfully pinned file.
type UploadResult struct {
	CID       string    `json:"cid"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"uploaded_at"`
	Duplicate bool      `json:"duplicate,omitempty"`
	URL       string    `json:"url"`
}

type pinataMetadata struct {
	Name      string            `json:"name,omitempty"`
	KeyValues map[string]string `json:"keyvalues"`
}

type pinJSONRequest struct {
	Content  any             `json:"pinataContent"`
	Metadata *pinataMetadata `json:"pinataMetadata,omitempty"`
}

type pinResponse struct {
	IpfsHash    string `json:"IpfsHash"`
	PinSize     int64  `json:"PinSize"`
	Timestamp   string `json:"Timestamp"`
	IsDuplicate bool   `json:"isDuplicate"`
}

// Client talks to the pinning service. It is safe for concurrent use.
type Client struct {
	cfg      Config
	http     HTTPDoer
	observer Observer
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the outbound transport. Timeouts belong there.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithObserver reports upload telemetry to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for cfg. A missing JWT is allowed here;
// uploads then fail with KindConfiguration while URL resolution keeps working.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg.withDefaults(),
		http:     &http.Client{},
		observer: nopObserver{},
		logger:   slog.Default(),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "pinning")
	return c
}

// Gateway returns the configured gateway host.
func (c *Client) Gateway() string {
	return c.cfg.Gateway
}

// GatewayURL resolves a content identifier against the configured gateway.
func (c *Client) GatewayURL(cid string) string {
	return ResolveURL(c.cfg.Gateway, cid)
}

// UploadFile pins a binary payload. No size limit is applied here.
func (c *Client) UploadFile(ctx context.Context, file File, meta *Metadata) (*UploadResult, error) {
	return c.uploadFile(ctx, "file", file, meta)
}

// UploadJSON pins a JSON-serializable document and returns its content identifier.
func (c *Client) UploadJSON(ctx context.Context, doc any, meta *Metadata) (string, error) {
	return c.uploadJSON(ctx, "json", doc, meta)
}

func (c *Client) uploadFile(ctx context.Context, operation string, file File, meta *Metadata) (res *UploadResult, err error) {
	op := "upload " + operation
	if !c.cfg.HasCredential() {
		return nil, configurationError(op)
	}

	start := time.Now()
	defer func() {
		var size int64
		if res != nil {
			size = res.Size
		}
		c.observer.RecordUpload(operation, time.Since(start), size, err)
	}()

	body, contentType, err := encodeMultipart(file, meta)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "encode multipart body", Err: err}
	}

	pin, err := c.post(ctx, op, pinFilePath, contentType, body)
	if err != nil {
		return nil, err
	}

	res = &UploadResult{
		CID:       pin.IpfsHash,
		Filename:  file.Name,
		MimeType:  file.ContentType,
		Size:      pin.PinSize,
		Timestamp: c.pinTime(pin.Timestamp),
		Duplicate: pin.IsDuplicate,
		URL:       c.GatewayURL(pin.IpfsHash),
	}
	c.logger.Debug("file pinned", "operation", operation, "cid", res.CID, "size", res.Size, "duplicate", res.Duplicate)
	return res, nil
}

func (c *Client) uploadJSON(ctx context.Context, operation string, doc any, meta *Metadata) (cid string, err error) {
	op := "upload " + operation
	if !c.cfg.HasCredential() {
		return "", configurationError(op)
	}

	start := time.Now()
	var pinned int64
	defer func() {
		c.observer.RecordUpload(operation, time.Since(start), pinned, err)
	}()

	reqBody := pinJSONRequest{Content: doc}
	if meta != nil {
		reqBody.Metadata = &pinataMetadata{Name: meta.Name, KeyValues: keyValues(meta)}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: KindValidation, Op: op, Message: "document is not JSON-serializable", Err: err}
	}

	pin, err := c.post(ctx, op, pinJSONPath, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	pinned = pin.PinSize
	c.logger.Debug("json pinned", "operation", operation, "cid", pin.IpfsHash, "size", pin.PinSize)
	return pin.IpfsHash, nil
}

// post performs exactly one request and classifies the outcome.
func (c *Client) post(ctx context.Context, op, path, contentType string, body io.Reader) (*pinResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, uploadError(op, resp.StatusCode, serviceReason(raw, resp.StatusCode))
	}

	var pin pinResponse
	if err := json.Unmarshal(raw, &pin); err != nil {
		e := uploadError(op, resp.StatusCode, "malformed response body")
		e.Err = err
		return nil, e
	}
	if pin.IpfsHash == "" {
		return nil, uploadError(op, resp.StatusCode, "response carried no IpfsHash")
	}
	return &pin, nil
}

func (c *Client) pinTime(ts string) time.Time {
	if ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
	}
	return c.now().UTC()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(file File, meta *Metadata) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}

	if meta != nil {
		name := meta.Name
		if name == "" {
			name = file.Name
		}
		encoded, err := json.Marshal(pinataMetadata{Name: name, KeyValues: keyValues(meta)})
		if err != nil {
			return nil, "", err
		}
		if err := w.WriteField("pinataMetadata", string(encoded)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func keyValues(meta *Metadata) map[string]string {
	if meta == nil || meta.KeyValues == nil {
		return map[string]string{}
	}
	return meta.KeyValues
}

// serviceReason extracts the error text the service put in a failure body.
// Pinata uses both {"error": "..."} and {"error": {"reason": "...", "details": "..."}}.
func serviceReason(raw []byte, status int) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var text string
			if err := json.Unmarshal(envelope.Error, &text); err == nil && text != "" {
				return text
			}
			var detail struct {
				Reason  string `json:"reason"`
				Details string `json:"details"`
			}
			if err := json.Unmarshal(envelope.Error, &detail); err == nil {
				switch {
				case detail.Reason != "" && detail.Details != "":
					return detail.Reason + ": " + detail.Details
				case detail.Reason != "":
					return detail.Reason
				case detail.Details != "":
					return detail.Details
				}
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return http.StatusText(status)
}
