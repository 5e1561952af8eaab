package http

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	mcpE "github.com/lumerio/postpulse/mcp"
)

func newMCPRouter(endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	AddStreamableRouters(r, endpoints)
	return r
}

func postMCP(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMCPStreamableHandler(t *testing.T) {
	assert := assert.New(t)

	endpoints := map[mcp.MCPMethod]mcpE.MCPEndpoint{
		mcp.MethodPing: mcpE.PingEndpoint(nil),
	}
	r := newMCPRouter(endpoints)

	w := postMCP(r, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(http.StatusOK, w.Code)
}

func TestMCPStreamableHandlerUnknownMethod(t *testing.T) {
	assert := assert.New(t)

	r := newMCPRouter(map[mcp.MCPMethod]mcpE.MCPEndpoint{})

	w := postMCP(r, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	assert.Equal(http.StatusNotFound, w.Code)
	assert.Contains(w.Body.String(), strconv.Itoa(mcp.METHOD_NOT_FOUND))
}

func TestMCPStreamableHandlerMalformedBody(t *testing.T) {
	assert := assert.New(t)

	r := newMCPRouter(map[mcp.MCPMethod]mcpE.MCPEndpoint{})

	w := postMCP(r, `{"jsonrpc":`)
	assert.Equal(http.StatusBadRequest, w.Code)
	assert.Contains(w.Body.String(), strconv.Itoa(mcp.INVALID_PARAMS))
}
