package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/lumerio/postpulse"
)

func AddEndpoints(group micro.Group, endpoints postpulse.EndpointSet) {
	group.AddEndpoint("add_posts", AddPostsHandler(endpoints.AddPosts))
	group.AddEndpoint("query_similar", QuerySimilarHandler(endpoints.QuerySimilar))
	group.AddEndpoint("get_count", GetCountHandler(endpoints.GetCount))
	group.AddEndpoint("clear_before_new_run", ClearBeforeNewRunHandler(endpoints.ClearBeforeNewRun))
	group.AddEndpoint("clear_collection", ClearCollectionHandler(endpoints.ClearCollection))
}
