package api

import (
	"context"

	"connectrpc.com/connect"
)

// Client calls both services of a running server.
type Client struct {
	search   *connect.Client[SearchRequest, SearchResponse]
	register *connect.Client[RegisterRequest, RegisterResponse]
	login    *connect.Client[LoginRequest, LoginResponse]
	logout   *connect.Client[LogoutRequest, LogoutResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) Client {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return Client{
		search:   connect.NewClient[SearchRequest, SearchResponse](httpClient, baseURL+SearchProcedure, opts...),
		register: connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+RegisterProcedure, opts...),
		login:    connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+LoginProcedure, opts...),
		logout:   connect.NewClient[LogoutRequest, LogoutResponse](httpClient, baseURL+LogoutProcedure, opts...),
	}
}

func (c Client) Search(ctx context.Context, keyword string) (*SearchResponse, error) {
	res, err := c.search.CallUnary(ctx, connect.NewRequest(&SearchRequest{Keyword: keyword}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	res, err := c.register.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	res, err := c.login.CallUnary(ctx, connect.NewRequest(&LoginRequest{
		Username: username,
		Password: password,
	}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) Logout(ctx context.Context, token string) error {
	_, err := c.logout.CallUnary(ctx, connect.NewRequest(&LogoutRequest{Token: token}))
	return err
}
