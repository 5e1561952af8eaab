package postpulse

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	AddPosts          endpoint.Endpoint
	QuerySimilar      endpoint.Endpoint
	GetCount          endpoint.Endpoint
	ClearBeforeNewRun endpoint.Endpoint
	ClearCollection   endpoint.Endpoint
}

type AddPostsRequest struct {
	Posts           []RawPost `json:"posts"`
	PrimaryUsername string    `json:"primary_username"`
	IsCompetitor    bool      `json:"is_competitor"`
}

type AddPostsResponse struct {
	Added int `json:"added"`
}

func AddPostsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AddPostsRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		count, err := svc.AddPosts(ctx, req.Posts, req.PrimaryUsername, req.IsCompetitor)
		if err != nil {
			return nil, err
		}

		return AddPostsResponse{Added: count}, nil
	}
}

type QuerySimilarRequest struct {
	Text           string `json:"text" form:"text"`
	K              int    `json:"k,omitempty" form:"k"`
	FilterUsername string `json:"filter_username,omitempty" form:"filter_username"`
	IsCompetitor   bool   `json:"is_competitor,omitempty" form:"is_competitor"`
}

func QuerySimilarEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QuerySimilarRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.QuerySimilar(ctx, req.Text, req.K, req.FilterUsername, req.IsCompetitor)
	}
}

type CountResponse struct {
	Count int `json:"count"`
}

func GetCountEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		count, err := svc.GetCount(ctx)
		if err != nil {
			return nil, err
		}

		return CountResponse{Count: count}, nil
	}
}

func ClearBeforeNewRunEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return nil, svc.ClearBeforeNewRun(ctx)
	}
}

func ClearCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return nil, svc.ClearCollection(ctx)
	}
}
