package mcp

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lumerio/postpulse"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorResponse builds a JSON-RPC error for id. Transports share it so error
// payloads look the same on every surface.
func ErrorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `PostPulse indexes scraped social-media posts and retrieves them for grounding marketing recommendations:

1. **Semantic Search**: Rank a brand's own posts against a topic query
2. **Competitor Lookup**: Collect a tracked competitor's posts by account name
3. **Collection Stats**: Inspect how many documents are indexed

Available operations:
- tools/call search_posts: Retrieve posts for a topic, optionally filtered by account
- tools/call collection_stats: Report the indexed document count

Set is_competitor together with filter_username to collect competitor content; competitor lookups match accounts by name, not by topic similarity.`

func searchPostsTool() mcp.Tool {
	return mcp.NewTool("search_posts",
		mcp.WithDescription("Retrieve indexed social-media posts for a topic, optionally scoped to one account."),
		mcp.WithString("query",
			mcp.Description("Topic to search for, e.g. 'summer makeup trends'"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of posts to return"),
		),
		mcp.WithString("filter_username",
			mcp.Description("Restrict results to this account"),
		),
		mcp.WithBoolean("is_competitor",
			mcp.Description("Treat filter_username as a tracked competitor"),
		),
	)
}

func collectionStatsTool() mcp.Tool {
	return mcp.NewTool("collection_stats",
		mcp.WithDescription("Report the number of indexed documents."),
	)
}

func InitializeEndpoint(svc postpulse.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "postpulse",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc postpulse.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc postpulse.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: []mcp.Tool{
				searchPostsTool(),
				collectionStatsTool(),
			},
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

type searchPostsArgs struct {
	Query          string `json:"query"`
	K              int    `json:"k"`
	FilterUsername string `json:"filter_username"`
	IsCompetitor   bool   `json:"is_competitor"`
}

func CallToolEndpoint(svc postpulse.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var (
			result any
			err    error
		)

		switch params.Name {
		case "search_posts":
			var args searchPostsArgs
			if data, merr := json.Marshal(params.Arguments); merr == nil {
				json.Unmarshal(data, &args)
			}

			result, err = svc.QuerySimilar(ctx, args.Query, args.K, args.FilterUsername, args.IsCompetitor)

		case "collection_stats":
			var count int
			count, err = svc.GetCount(ctx)
			result = postpulse.CountResponse{Count: count}

		default:
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		if err != nil {
			return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		data, err := json.Marshal(result)
		if err != nil {
			return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  mcp.NewToolResultText(string(data)),
		}
	}
}
