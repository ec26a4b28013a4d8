package api

import (
	"context"
	"net/http"
)

type Profile struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Addresses []string `json:"addresses"`
}

type profileResponse struct {
	Data Profile `json:"data"`
}

type updateAddressesRequest struct {
	Addresses []string `json:"addresses"`
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "/users/me", "users.me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateAddresses replaces the saved address list of the current user.
func (c *Client) UpdateAddresses(ctx context.Context, addresses []string) error {
	return c.do(ctx, http.MethodPut, "/users/me", "users.update", updateAddressesRequest{Addresses: addresses}, nil)
}
