package lostark

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const BaseURL = "https://developer-lostark.game.onstove.com"

// Client talks to the developer API. Authentication is a bearer token issued
// per developer account.
type Client struct {
	http *resty.Client
}

func NewClient(token string) *Client {
	client := resty.New()
	client.SetBaseURL(BaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Authorization", "bearer "+token)

	return &Client{http: client}
}

// SearchAuctionItems fetches one page of auction search results. The caller
// owns pagination: it bumps req.PageNo and calls again while results remain.
func (c *Client) SearchAuctionItems(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&SearchResponse{}).
		Post("/auctions/items")
	if err != nil {
		return nil, fmt.Errorf("auction search request: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("auction search returned %s: %s", resp.Status(), resp.Body())
	}

	result, ok := resp.Result().(*SearchResponse)
	if !ok {
		return nil, fmt.Errorf("auction search: unexpected response type")
	}
	return result, nil
}
