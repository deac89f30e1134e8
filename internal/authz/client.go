// Package authz calls the auth service to verify group membership at
// connect time.
package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sim-ashish/chat-service/internal/errs"
	"go.uber.org/zap"
)

// GroupAuthorizer resolves a bearer token to a member identity for a group.
type GroupAuthorizer interface {
	VerifyGroupAccess(ctx context.Context, token string, groupID int64) (string, error)
}

// Client implements GroupAuthorizer against the auth service HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates an auth service client.
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type verifyResponse struct {
	User string `json:"user"`
}

// VerifyGroupAccess asks the auth service whether the token's bearer is a
// member of the group. Returns the member's email on success.
//
//	200            -> member, identity in payload
//	403            -> errs.ErrNotGroupMember
//	other status   -> errs.ErrAuthFailed
//	transport fail -> errs.ErrAuthUnavailable
func (c *Client) VerifyGroupAccess(ctx context.Context, token string, groupID int64) (string, error) {
	url := fmt.Sprintf("%s/verify-group-access/%d", c.baseURL, groupID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("authz request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("auth service unreachable", zap.Error(err))
		return "", errs.ErrAuthUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("authz decode: %w", err)
		}
		if payload.User == "" {
			return "", errs.ErrAuthFailed
		}
		return payload.User, nil
	case http.StatusForbidden:
		return "", errs.ErrNotGroupMember
	default:
		c.log.Warn("auth service rejected verification", zap.Int("status", resp.StatusCode))
		return "", errs.ErrAuthFailed
	}
}
