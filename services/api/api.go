// Package api exposes article search and accounts as connect procedures
// that speak json.
package api

import (
	"context"
	"net/http"

	"articlesearch-backend/services/accounts"
	"articlesearch-backend/services/articles"

	"connectrpc.com/connect"
)

const (
	SearchServiceName  = "articlesearch.v1.SearchService"
	AccountServiceName = "articlesearch.v1.AccountService"

	SearchProcedure   = "/" + SearchServiceName + "/Search"
	RegisterProcedure = "/" + AccountServiceName + "/Register"
	LoginProcedure    = "/" + AccountServiceName + "/Login"
	LogoutProcedure   = "/" + AccountServiceName + "/Logout"
)

type SearchRequest struct {
	Keyword string `json:"keyword"`
}

type SearchResponse struct {
	Keyword  string                   `json:"keyword"`
	Articles []articles.Article       `json:"articles"`
	Cached   bool                     `json:"cached"`
	Report   articles.ReconcileReport `json:"report"`
}

type RegisterRequest = accounts.RegisterForm

type RegisterResponse struct {
	User accounts.User `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type LogoutResponse struct{}

// Searcher is implemented by articles.Reconciler.
type Searcher interface {
	Search(ctx context.Context, keyword string) (articles.SearchResult, error)
}

// Accounts is implemented by accounts.Service.
type Accounts interface {
	Register(ctx context.Context, form accounts.RegisterForm) (accounts.User, error)
	Login(ctx context.Context, username, password string) (accounts.Session, error)
	Logout(ctx context.Context, token string) error
}

type SearchService struct {
	searcher Searcher
}

func NewSearchService(searcher Searcher) SearchService {
	return SearchService{searcher: searcher}
}

func (s SearchService) Search(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[SearchResponse], error) {
	result, err := s.searcher.Search(ctx, req.Msg.Keyword)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	articleList := result.Articles
	if articleList == nil {
		articleList = []articles.Article{}
	}
	return connect.NewResponse(&SearchResponse{
		Keyword:  result.Keyword,
		Articles: articleList,
		Cached:   result.Cached,
		Report:   result.Report,
	}), nil
}

type AccountService struct {
	accounts Accounts
}

func NewAccountService(accts Accounts) AccountService {
	return AccountService{accounts: accts}
}

func (s AccountService) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	user, err := s.accounts.Register(ctx, *req.Msg)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&RegisterResponse{User: user}), nil
}

func (s AccountService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	session, err := s.accounts.Login(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&LoginResponse{
		Username: session.User.Username,
		Token:    session.Token,
	}), nil
}

func (s AccountService) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	err := s.accounts.Logout(ctx, req.Msg.Token)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&LogoutResponse{}), nil
}

// NewSearchServiceHandler returns the path the handler should be mounted at
// and the handler itself, like generated connect code does.
func NewSearchServiceHandler(svc SearchService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	search := connect.NewUnaryHandler(SearchProcedure, svc.Search, opts...)

	return "/" + SearchServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SearchProcedure:
			search.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func NewAccountServiceHandler(svc AccountService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	register := connect.NewUnaryHandler(RegisterProcedure, svc.Register, opts...)
	login := connect.NewUnaryHandler(LoginProcedure, svc.Login, opts...)
	logout := connect.NewUnaryHandler(LogoutProcedure, svc.Logout, opts...)

	return "/" + AccountServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RegisterProcedure:
			register.ServeHTTP(w, r)
		case LoginProcedure:
			login.ServeHTTP(w, r)
		case LogoutProcedure:
			logout.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
