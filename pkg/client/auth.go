package client

import "context"

// Whoami returns the id of the API key the client authenticates with.
func (c *Client) Whoami(ctx context.Context) (string, error) {
	var resp struct {
		KeyID string `json:"keyId"`
	}
	if err := c.get(ctx, "/api/v1/auth/whoami", &resp); err != nil {
		return "", err
	}
	return resp.KeyID, nil
}

// ServerVersion returns the version reported by the health endpoint.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/health", &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}
