// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

const (
	defaultListMaxKeys = 50
	maxListMaxKeys     = 1000

	// emptyPayloadSHA256 is the SHA-256 of the empty string, required by
	// SigV4 for bodyless requests.
	emptyPayloadSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	s3SigningName = "s3"
)

// listBucketResult mirrors the fields of the ListObjectsV2 response we
// surface. Unknown elements are ignored by the decoder.
type listBucketResult struct {
	XMLName               xml.Name        `xml:"ListBucketResult"`
	Name                  string          `xml:"Name"`
	Prefix                string          `xml:"Prefix"`
	KeyCount              int             `xml:"KeyCount"`
	MaxKeys               int             `xml:"MaxKeys"`
	IsTruncated           bool            `xml:"IsTruncated"`
	NextContinuationToken string          `xml:"NextContinuationToken"`
	Contents              []listedObject  `xml:"Contents"`
	CommonPrefixes        []commonPrefix  `xml:"CommonPrefixes"`
}

type listedObject struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	LastModified string `xml:"LastModified"`
	StorageClass string `xml:"StorageClass"`
	ETag         string `xml:"ETag"`
}

type commonPrefix struct {
	Prefix string `xml:"Prefix"`
}

var s3ErrorCode = regexp.MustCompile(`<Code>(.*?)</Code>`)
var s3ErrorMessage = regexp.MustCompile(`<Message>(.*?)</Message>`)

// listObjectsURL builds the ListObjectsV2 URL for the configured bucket.
// Path-style addressing is the default so MinIO and other S3-compatible
// stores work out of the box.
func listObjectsURL(cfg *config.S3Config, prefix string, maxKeys int) (string, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid S3 endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid S3 endpoint %q", endpoint)
	}

	if cfg.PathStyle() {
		parsed.Path = strings.TrimRight(parsed.Path, "/") + "/" + cfg.Bucket
	} else {
		parsed.Host = cfg.Bucket + "." + parsed.Host
	}

	query := url.Values{}
	query.Set("list-type", "2")
	query.Set("max-keys", fmt.Sprintf("%d", maxKeys))
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// executeStorageList lists objects in the configured bucket via a signed
// ListObjectsV2 request.
func (a *Adapter) executeStorageList(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	cfgMap, cfgErr := a.integrationConfig(connector.IntegrationS3)
	if cfgErr != nil {
		return connector.Fail(cfgErr)
	}
	cfg, err := config.Decode[config.S3Config](cfgMap)
	if err != nil || cfg.Bucket == "" || cfg.Region == "" {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "S3 bucket or region is not configured"))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "S3 credentials are not configured"))
	}

	prefix, _ := inputString(req.Input, "prefix")
	maxKeys := clampInt(req.Input, "maxKeys", defaultListMaxKeys, 1, maxListMaxKeys)

	requestURL, err := listObjectsURL(cfg, prefix, maxKeys)
	if err != nil {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "S3 endpoint is malformed").WithCause(err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return connector.Fail(errors.NewExecutionFailed("failed to build S3 request", err))
	}
	httpReq.Header.Set("x-amz-content-sha256", emptyPayloadSHA256)

	credentials := aws.Credentials{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
	}
	signer := v4.NewSigner()
	if err := signer.SignHTTP(ctx, credentials, httpReq, emptyPayloadSHA256,
		s3SigningName, cfg.Region, time.Now().UTC()); err != nil {
		return connector.Fail(errors.NewExecutionFailed("failed to sign S3 request", err))
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return connector.Fail(errors.NewExecutionFailed("S3 request failed", err).AsRetryable())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, networking.DefaultMaxResponseSize))
	if err != nil {
		return connector.Fail(errors.NewExecutionFailed("failed to read S3 response", err).AsRetryable())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, message := parseS3Error(body)
		e := errors.Newf(errors.CodeExecutionFailed,
			"S3 ListObjectsV2 failed with status %d (%s): %s", resp.StatusCode, code, message)
		e.Retryable = resp.StatusCode >= 500
		if code != "" {
			e = e.WithDetails(map[string]any{"s3ErrorCode": code})
		}
		return connector.Fail(e)
	}

	var listed listBucketResult
	if err := xml.Unmarshal(body, &listed); err != nil {
		return connector.Fail(errors.NewExecutionFailed("failed to parse S3 list response", err))
	}

	objects := make([]map[string]any, 0, len(listed.Contents))
	for _, obj := range listed.Contents {
		objects = append(objects, map[string]any{
			"key":          obj.Key,
			"size":         obj.Size,
			"lastModified": obj.LastModified,
			"storageClass": obj.StorageClass,
		})
	}
	prefixes := make([]string, 0, len(listed.CommonPrefixes))
	for _, p := range listed.CommonPrefixes {
		prefixes = append(prefixes, p.Prefix)
	}

	data := map[string]any{
		"bucket":      cfg.Bucket,
		"prefix":      listed.Prefix,
		"objects":     objects,
		"objectCount": len(objects),
		"isTruncated": listed.IsTruncated,
	}
	if len(prefixes) > 0 {
		data["commonPrefixes"] = prefixes
	}
	if listed.NextContinuationToken != "" {
		data["nextContinuationToken"] = listed.NextContinuationToken
	}
	return connector.Succeed(data)
}

// parseS3Error pulls the Code and Message elements from an S3 error
// document without requiring a well-formed envelope.
func parseS3Error(body []byte) (code, message string) {
	if m := s3ErrorCode.FindSubmatch(body); m != nil {
		code = string(m[1])
	}
	if m := s3ErrorMessage.FindSubmatch(body); m != nil {
		message = string(m[1])
	}
	if message == "" {
		message = "no error detail returned"
	}
	return code, message
}
