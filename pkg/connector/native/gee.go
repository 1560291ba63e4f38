// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

const (
	geeDiscoveryURL = "https://earthengine.googleapis.com/$discovery/rest?version=v1"
	geeRootURL      = "https://earthengine.googleapis.com/"
	geeScope        = "https://www.googleapis.com/auth/earthengine.readonly"

	defaultTokenURI = "https://oauth2.googleapis.com/token"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	defaultAlgorithmsPath = "v1/projects/{+project}/algorithms"
	algorithmsListPath    = "resources.projects.resources.algorithms.methods.list.path"

	defaultAlgorithmPageSize = 25
	maxAlgorithmPageSize     = 100
)

// serviceAccount holds the fields we need from a Google service account key.
type serviceAccount struct {
	ClientEmail string
	PrivateKey  string
	TokenURI    string
}

func parseServiceAccount(raw string) (*serviceAccount, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("service account JSON is not valid JSON")
	}
	account := &serviceAccount{
		ClientEmail: gjson.Get(raw, "client_email").String(),
		PrivateKey:  gjson.Get(raw, "private_key").String(),
		TokenURI:    gjson.Get(raw, "token_uri").String(),
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("service account JSON is missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = defaultTokenURI
	}
	return account, nil
}

// signedAssertion builds the RS256 JWT the Google token endpoint exchanges
// for an access token.
func signedAssertion(account *serviceAccount, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account private key: %w", err)
	}
	claims := jwt.MapClaims{
		"iss":   account.ClientEmail,
		"scope": geeScope,
		"aud":   account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// fetchAccessToken exchanges the signed assertion at the token endpoint.
func (a *Adapter) fetchAccessToken(ctx context.Context, account *serviceAccount) (string, *errors.Error) {
	assertion, err := signedAssertion(account, time.Now())
	if err != nil {
		return "", errors.New(errors.CodeNotConfigured, "Earth Engine service account key is unusable").WithCause(err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	result, err := networking.PostForm[tokenResponse](ctx, a.client, account.TokenURI, form.Encode(),
		networking.WithErrorHandler(func(resp *http.Response, body []byte) error {
			detail := gjson.GetBytes(body, "error_description").String()
			if detail == "" {
				detail = gjson.GetBytes(body, "error").String()
			}
			if detail == "" {
				detail = fmt.Sprintf("status %d", resp.StatusCode)
			}
			return fmt.Errorf("token exchange rejected: %s", detail)
		}),
	)
	if err != nil {
		return "", errors.New(errors.CodeExecutionFailed, "Earth Engine authentication failed").WithCause(err)
	}
	if result.Data.AccessToken == "" {
		return "", errors.New(errors.CodeExecutionFailed, "token endpoint returned no access token")
	}
	return result.Data.AccessToken, nil
}

// algorithmsURL resolves the algorithms list URL from the discovery document.
func (a *Adapter) algorithmsURL(ctx context.Context, projectID string) (string, *errors.Error) {
	result, err := networking.FetchBytes(ctx, a.client, geeDiscoveryURL)
	if err != nil {
		if httpStatus := networking.StatusOf(err); httpStatus != 0 {
			e := errors.Newf(errors.CodeExecutionFailed,
				"Earth Engine discovery failed with status %d", httpStatus)
			e.Retryable = httpStatus >= 500
			return "", e.WithCause(err)
		}
		return "", errors.NewExecutionFailed("Earth Engine discovery request failed", err).AsRetryable()
	}
	discovery := gjson.ParseBytes(result.Body)
	if !discovery.IsObject() {
		return "", errors.New(errors.CodeExecutionFailed, "Earth Engine discovery document is not a JSON object")
	}

	rootURL := geeRootURL
	if v := discovery.Get("rootUrl").String(); v != "" {
		rootURL = v
	}
	path := defaultAlgorithmsPath
	if v := discovery.Get(algorithmsListPath).String(); v != "" {
		path = v
	}

	path = expandAlgorithmsPath(path, projectID)

	return strings.TrimRight(rootURL, "/") + "/" + strings.TrimLeft(path, "/"), nil
}

// expandAlgorithmsPath substitutes the project placeholders a discovery
// document may use. {+project} expands to a full resource name
// ("projects/<id>"), so a literal "projects/{+project}" prefix must be
// replaced as a unit to avoid doubling the segment.
func expandAlgorithmsPath(path, projectID string) string {
	replacement := "projects/" + projectID
	if strings.Contains(path, "projects/{+project}") {
		path = strings.ReplaceAll(path, "projects/{+project}", replacement)
	} else {
		path = strings.ReplaceAll(path, "{+project}", replacement)
	}
	path = strings.ReplaceAll(path, "{project}", projectID)
	return strings.ReplaceAll(path, "{projectId}", projectID)
}

// executeListAlgorithms authenticates against Earth Engine with the
// configured service account and lists available algorithms.
func (a *Adapter) executeListAlgorithms(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	cfgMap, cfgErr := a.integrationConfig(connector.IntegrationGoogleEarthEngine)
	if cfgErr != nil {
		return connector.Fail(cfgErr)
	}
	cfg, err := config.Decode[config.GEEConfig](cfgMap)
	if err != nil || cfg.ServiceAccountJSON == "" || cfg.ProjectID == "" {
		return connector.Fail(errors.New(errors.CodeNotConfigured,
			"Earth Engine service account or project is not configured"))
	}

	account, err := parseServiceAccount(cfg.ServiceAccountJSON)
	if err != nil {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "invalid Earth Engine service account").WithCause(err))
	}

	token, tokenErr := a.fetchAccessToken(ctx, account)
	if tokenErr != nil {
		return connector.Fail(tokenErr)
	}

	pageSize := clampInt(req.Input, "pageSize", defaultAlgorithmPageSize, 1, maxAlgorithmPageSize)

	listURL, urlErr := a.algorithmsURL(ctx, cfg.ProjectID)
	if urlErr != nil {
		return connector.Fail(urlErr)
	}
	parsed, err := url.Parse(listURL)
	if err != nil {
		return connector.Fail(errors.NewExecutionFailed("resolved algorithms URL is malformed", err))
	}
	query := parsed.Query()
	query.Set("pageSize", fmt.Sprintf("%d", pageSize))
	if pageToken, ok := inputString(req.Input, "pageToken"); ok && pageToken != "" {
		query.Set("pageToken", pageToken)
	}
	parsed.RawQuery = query.Encode()

	result, err := networking.FetchJSON[map[string]any](ctx, a.client, parsed.String(),
		networking.WithHeader("Authorization", "Bearer "+token),
		networking.WithHeader("X-Goog-User-Project", cfg.ProjectID),
		networking.WithErrorHandler(func(resp *http.Response, body []byte) error {
			status := gjson.GetBytes(body, "error.status").String()
			message := gjson.GetBytes(body, "error.message").String()
			if status == "" && message == "" {
				return nil
			}
			return fmt.Errorf("Earth Engine API error %s: %s", status, message)
		}),
	)
	if err != nil {
		if httpStatus := networking.StatusOf(err); httpStatus != 0 {
			e := errors.Newf(errors.CodeExecutionFailed,
				"Earth Engine algorithms request failed with status %d", httpStatus)
			e.Retryable = httpStatus >= 500
			return connector.Fail(e.WithCause(err))
		}
		return connector.Fail(errors.NewExecutionFailed("Earth Engine algorithms request failed", err).AsRetryable())
	}

	algorithms, _ := result.Data["algorithms"].([]any)
	names := make([]string, 0, len(algorithms))
	for _, item := range algorithms {
		if algorithm, ok := item.(map[string]any); ok {
			if name, ok := algorithm["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}

	data := map[string]any{
		"projectId":  cfg.ProjectID,
		"returned":   len(algorithms),
		"algorithms": algorithms,
		"names":      names,
	}
	if next, ok := result.Data["nextPageToken"].(string); ok && next != "" {
		data["nextPageToken"] = next
	}
	return connector.Succeed(data)
}
