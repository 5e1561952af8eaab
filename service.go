package postpulse

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lumerio/postpulse/embedding"
	"github.com/lumerio/postpulse/retry"
	"github.com/lumerio/postpulse/vector"
)

const (
	// defaultResults is used when a query does not specify k.
	defaultResults = 5

	// maxCandidates caps how many nearest neighbors one query pulls from the
	// store before post-filtering.
	maxCandidates = 20
)

// Service defines the retrieval and indexing core of PostPulse.
type Service interface {

	// Close releases the service.
	Close() error

	// AddPosts validates, embeds, deduplicates and persists a batch of
	// scraped posts. It returns the number of documents actually committed;
	// a count short of the batch signals dropped or duplicate posts, or a
	// partial write failure.
	AddPosts(ctx context.Context, posts []RawPost, primaryUsername string, isCompetitor bool) (int, error)

	// QuerySimilar retrieves up to k documents for the query text.
	// Competitor-filtered queries resolve by metadata matching; everything
	// else ranks by embedding similarity.
	QuerySimilar(ctx context.Context, text string, k int, filterUsername string, isCompetitor bool) (*QueryResult, error)

	// GetCount returns the number of stored documents.
	GetCount(ctx context.Context) (int, error)

	// ClearBeforeNewRun clears the collection once per process lifetime.
	// Later calls are no-ops.
	ClearBeforeNewRun(ctx context.Context) error

	// ClearCollection deletes and recreates the collection and reverts the
	// embedding engine to untrained.
	ClearCollection(ctx context.Context) error
}

type ServiceMiddleware func(Service) Service

// QueryResult mirrors the store's parallel-array result shape: one outer
// element per query, inner slices aligned by index. An empty result keeps the
// shape with empty inner slices.
type QueryResult struct {
	Documents [][]string          `json:"documents"`
	Metadatas [][]vector.Metadata `json:"metadatas"`
	Distances [][]float64         `json:"distances"`
}

func emptyQueryResult() *QueryResult {
	return &QueryResult{
		Documents: [][]string{{}},
		Metadatas: [][]vector.Metadata{{}},
		Distances: [][]float64{{}},
	}
}

func buildQueryResult(docs []vector.Document, distances []float64) *QueryResult {
	result := emptyQueryResult()
	for i, doc := range docs {
		result.Documents[0] = append(result.Documents[0], doc.Content)
		result.Metadatas[0] = append(result.Metadatas[0], doc.Metadata)
		if i < len(distances) {
			result.Distances[0] = append(result.Distances[0], distances[i])
		} else {
			result.Distances[0] = append(result.Distances[0], 0)
		}
	}
	return result
}

func NewService(ctx context.Context, cfg Config, store vector.Store) (Service, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("service", "postpulse"),
	)

	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		embedder:   embedding.NewEngine(cfg.Embedding.Dimension),
		collection: NewCollectionStore(store, retry.NewRunner(cfg.Retry.MaxAttempts), cfg.BatchSize),

		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := svc.collection.Init(ctx); err != nil {
		cancel()
		return nil, err
	}

	if cfg.ResetOnStart {
		if err := svc.ClearBeforeNewRun(ctx); err != nil {
			log.Error(err.Error())
		}
	}

	return svc, nil
}

type service struct {
	embedder   *embedding.Engine
	collection *CollectionStore

	// cleaned guards the one-time destructive reset. It is scoped to this
	// service instance, never shared across processes.
	cleaned bool

	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.cancel = nil
	}
	return nil
}

func (svc *service) AddPosts(ctx context.Context, posts []RawPost, primaryUsername string, isCompetitor bool) (int, error) {
	log := svc.log.With(
		zap.String("action", "add_posts"),
		zap.String("primary_username", primaryUsername),
		zap.Bool("is_competitor", isCompetitor),
	)

	if len(posts) == 0 {
		return 0, nil
	}

	docs := make([]vector.Document, 0, len(posts))
	dropped := 0

	for _, post := range posts {
		doc, err := PostToDocument(post, primaryUsername, isCompetitor)
		if err != nil {
			dropped++
			log.Warn("dropping invalid post",
				zap.String("source_id", post.ID),
				zap.Error(err),
			)
			continue
		}

		docs = append(docs, doc)
	}

	if dropped > 0 {
		log.Warn("invalid posts dropped", zap.Int("count", dropped))
	}

	if len(docs) == 0 {
		return 0, nil
	}

	existing := svc.collection.Get(ctx, nil)
	fresh := newDedupIndex(existing).filterNew(docs)
	if len(fresh) == 0 {
		log.Info("all posts already indexed", zap.Int("candidates", len(docs)))
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, doc := range fresh {
		texts[i] = doc.Content
	}

	vectors := svc.embedder.Embed(texts)
	for i := range fresh {
		fresh[i].Embedding = vectors[i]
	}

	persisted := svc.collection.Upsert(ctx, fresh)

	log.Info("posts indexed",
		zap.Int("submitted", len(posts)),
		zap.Int("persisted", persisted),
	)

	return persisted, nil
}

func (svc *service) QuerySimilar(ctx context.Context, text string, k int, filterUsername string, isCompetitor bool) (*QueryResult, error) {
	if k <= 0 {
		k = defaultResults
	}

	if filterUsername != "" && isCompetitor {
		return svc.queryCompetitor(ctx, filterUsername, k)
	}

	return svc.querySemantic(ctx, text, k, filterUsername)
}

// queryCompetitor bypasses semantic ranking: the store's nearest-neighbor
// query cannot express the competitor predicates, so all metadata is scanned
// and matched through the ordered rule list.
func (svc *service) queryCompetitor(ctx context.Context, filterUsername string, k int) (*QueryResult, error) {
	log := svc.log.With(
		zap.String("action", "query_competitor"),
		zap.String("filter_username", filterUsername),
	)

	docs := svc.collection.Get(ctx, nil)
	matches := matchCompetitorDocs(docs, filterUsername, k)

	result := emptyQueryResult()
	for _, match := range matches {
		result.Documents[0] = append(result.Documents[0], match.doc.Content)
		result.Metadatas[0] = append(result.Metadatas[0], match.doc.Metadata)
		result.Distances[0] = append(result.Distances[0], match.distance)
	}

	log.Info("competitor documents matched",
		zap.Int("scanned", len(docs)),
		zap.Int("matched", len(matches)),
	)

	return result, nil
}

func (svc *service) querySemantic(ctx context.Context, text string, k int, filterUsername string) (*QueryResult, error) {
	log := svc.log.With(
		zap.String("action", "query_semantic"),
		zap.String("filter_username", filterUsername),
	)

	if strings.TrimSpace(text) == "" {
		return emptyQueryResult(), nil
	}

	count := svc.collection.Count(ctx)
	if count == 0 {
		return emptyQueryResult(), nil
	}

	query := svc.embedder.Embed([]string{text})[0]
	if isZeroVector(query) {
		log.Warn("query embedding degraded to zero vector")
		return emptyQueryResult(), nil
	}

	limit := k
	if count < limit {
		limit = count
	}
	if limit > maxCandidates {
		limit = maxCandidates
	}

	docs, distances := svc.collection.Query(ctx, query, limit)

	if filterUsername != "" {
		docs, distances = filterPrimaryDocs(docs, distances, filterUsername)
	}

	log.Info("similar documents found", zap.Int("count", len(docs)))

	return buildQueryResult(docs, distances), nil
}

func (svc *service) GetCount(ctx context.Context) (int, error) {
	return svc.collection.Count(ctx), nil
}

func (svc *service) ClearBeforeNewRun(ctx context.Context) error {
	if svc.cleaned {
		svc.log.Info("collection already cleared this run")
		return nil
	}

	if err := svc.ClearCollection(ctx); err != nil {
		return err
	}

	svc.cleaned = true
	return nil
}

func (svc *service) ClearCollection(ctx context.Context) error {
	if err := svc.collection.Clear(ctx); err != nil {
		return err
	}

	svc.embedder.Reset()
	svc.log.Info("collection cleared")
	return nil
}

func isZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
