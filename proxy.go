package postpulse

import (
	"context"
	"errors"
)

// ProxyMiddleware turns an EndpointSet into a Service, letting a remote
// process consume the core over NATS with the same interface it would use
// in-process.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) AddPosts(ctx context.Context, posts []RawPost, primaryUsername string, isCompetitor bool) (int, error) {
	req := AddPostsRequest{
		Posts:           posts,
		PrimaryUsername: primaryUsername,
		IsCompetitor:    isCompetitor,
	}

	resp, err := mw.endpoints.AddPosts(ctx, req)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(AddPostsResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Added, nil
}

func (mw *proxyMiddleware) QuerySimilar(ctx context.Context, text string, k int, filterUsername string, isCompetitor bool) (*QueryResult, error) {
	req := QuerySimilarRequest{
		Text:           text,
		K:              k,
		FilterUsername: filterUsername,
		IsCompetitor:   isCompetitor,
	}

	resp, err := mw.endpoints.QuerySimilar(ctx, req)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(*QueryResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result, nil
}

func (mw *proxyMiddleware) GetCount(ctx context.Context) (int, error) {
	resp, err := mw.endpoints.GetCount(ctx, nil)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(CountResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Count, nil
}

func (mw *proxyMiddleware) ClearBeforeNewRun(ctx context.Context) error {
	_, err := mw.endpoints.ClearBeforeNewRun(ctx, nil)
	return err
}

func (mw *proxyMiddleware) ClearCollection(ctx context.Context) error {
	_, err := mw.endpoints.ClearCollection(ctx, nil)
	return err
}
