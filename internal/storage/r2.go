// Package storage mirrors pinned content into Cloudflare R2 so members can
// still fetch it when the public IPFS gateway is slow or unavailable.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignExpiry bounds how long a mirror download link stays valid
const DefaultPresignExpiry = 15 * time.Minute

// R2Mirror handles Cloudflare R2 operations using AWS SDK v2
type R2Mirror struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
	now       func() time.Time
}

// NewR2Mirror creates a mirror for the given account and bucket
func NewR2Mirror(accountID, accessKeyID, secretAccessKey, bucket string) (*R2Mirror, error) {
	if accountID == "" || accessKeyID == "" || secretAccessKey == "" || bucket == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	return newMirror(endpoint, accessKeyID, secretAccessKey, bucket, false), nil
}

func newMirror(endpoint, accessKeyID, secretAccessKey, bucket string, pathStyle bool) *R2Mirror {
	creds := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")

	client := s3.New(s3.Options{
		Region:       "auto",
		Credentials:  creds,
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: pathStyle,
	})

	return &R2Mirror{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		expiry:    DefaultPresignExpiry,
		now:       time.Now,
	}
}

// ObjectKey returns where the mirrored copy of cid is stored
func ObjectKey(cid string) string {
	return "ipfs/" + cid
}

// Put copies content into the bucket under the CID-derived key
func (r *R2Mirror) Put(ctx context.Context, cid, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(ObjectKey(cid)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to mirror %s: %w", cid, err)
	}
	return nil
}

// PresignedGetURL generates a time-limited download link for the mirrored copy
func (r *R2Mirror) PresignedGetURL(ctx context.Context, cid string) (string, time.Time, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(ObjectKey(cid)),
	}

	expiresAt := r.now().Add(r.expiry)
	request, err := r.presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = r.expiry
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate presigned GET URL: %w", err)
	}

	return request.URL, expiresAt, nil
}
