package identity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/bytedance/sonic"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ManagementClient 通过身份提供方的管理接口删除用户, 使用 client credentials 获取管理令牌
type ManagementClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	audience     string
	client       *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ Provider = (*ManagementClient)(nil)

func NewManagementClient(domain, clientID, clientSecret, audience string, timeout time.Duration) *ManagementClient {
	base := strings.TrimRight(domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &ManagementClient{
		baseURL:      base,
		clientID:     clientID,
		clientSecret: clientSecret,
		audience:     audience,
		client:       &http.Client{Timeout: timeout},
	}
}

func (c *ManagementClient) DeleteUser(ctx context.Context, subject string) error {
	token, err := c.managementToken(ctx)
	if err != nil {
		return fmt.Errorf("DeleteUser failed at get management token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/v2/users/"+url.PathEscape(subject), nil)
	if err != nil {
		return fmt.Errorf("DeleteUser failed at build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("DeleteUser failed at do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidate()
		return fmt.Errorf("DeleteUser failed: management token rejected")
	case resp.StatusCode == http.StatusNotFound:
		return nil
	case resp.StatusCode >= http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("DeleteUser failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *ManagementClient) managementToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	body, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Audience:     c.audience,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var tr tokenResponse
	if err = json.Unmarshal(raw, &tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	c.token = tr.AccessToken
	// 提前一分钟过期, 避免临界点使用旧令牌
	c.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *ManagementClient) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
