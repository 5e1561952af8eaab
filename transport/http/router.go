package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lumerio/postpulse"

	mcpE "github.com/lumerio/postpulse/mcp"
)

func AddRouters(r *gin.Engine, endpoints postpulse.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/posts", AddPostsHandler(endpoints.AddPosts))
		api.GET("/posts/search", QuerySimilarHandler(endpoints.QuerySimilar))
		api.GET("/collection/count", GetCountHandler(endpoints.GetCount))
		api.POST("/collection/reset", ClearBeforeNewRunHandler(endpoints.ClearBeforeNewRun))
		api.DELETE("/collection", ClearCollectionHandler(endpoints.ClearCollection))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
