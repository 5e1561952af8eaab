package postpulse

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "postpulse"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) AddPosts(ctx context.Context, posts []RawPost, primaryUsername string, isCompetitor bool) (int, error) {
	log := mw.log.With(
		zap.String("action", "add_posts"),
		zap.String("primary_username", primaryUsername),
		zap.Bool("is_competitor", isCompetitor),
		zap.Int("submitted", len(posts)),
	)

	count, err := mw.next.AddPosts(ctx, posts, primaryUsername, isCompetitor)
	if err != nil {
		log.Error(err.Error())
		return count, err
	}

	if count < len(posts) {
		log.Warn("posts partially indexed", zap.Int("persisted", count))
	} else {
		log.Info("posts indexed", zap.Int("persisted", count))
	}

	return count, nil
}

func (mw *loggingMiddleware) QuerySimilar(ctx context.Context, text string, k int, filterUsername string, isCompetitor bool) (*QueryResult, error) {
	log := mw.log.With(
		zap.String("action", "query_similar"),
		zap.Bool("is_competitor", isCompetitor),
	)

	if filterUsername != "" {
		log = log.With(
			zap.String("filter_username", filterUsername),
		)
	}

	result, err := mw.next.QuerySimilar(ctx, text, k, filterUsername, isCompetitor)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("query served", zap.Int("count", len(result.Documents[0])))
	return result, nil
}

func (mw *loggingMiddleware) GetCount(ctx context.Context) (int, error) {
	log := mw.log.With(
		zap.String("action", "get_count"),
	)

	count, err := mw.next.GetCount(ctx)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Info("count fetched", zap.Int("count", count))
	return count, nil
}

func (mw *loggingMiddleware) ClearBeforeNewRun(ctx context.Context) error {
	log := mw.log.With(
		zap.String("action", "clear_before_new_run"),
	)

	err := mw.next.ClearBeforeNewRun(ctx)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("run reset done")
	return nil
}

func (mw *loggingMiddleware) ClearCollection(ctx context.Context) error {
	log := mw.log.With(
		zap.String("action", "clear_collection"),
	)

	err := mw.next.ClearCollection(ctx)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("collection cleared")
	return nil
}
