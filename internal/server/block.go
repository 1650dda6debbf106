package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const blockPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Focus Mode Active</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; background: #111; color: #eee;
         display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
  main { text-align: center; }
  h1 { font-size: 2.5rem; margin-bottom: .5rem; }
  p { color: #aaa; }
</style>
</head>
<body>
<main>
  <h1>Focus Mode Active</h1>
  <p>This site is not on your allow-list right now.</p>
</main>
</body>
</html>
`

// BlockServer answers every request with the block page.
type BlockServer struct {
	listener
}

// NewBlockServer creates the block page server for host:port.
func NewBlockServer(host string, port int, logger *zap.Logger) *BlockServer {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.NoRoute(serveBlockPage)

	return &BlockServer{listener: listener{
		name:    "block-page",
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		handler: engine,
		logger:  logger,
	}}
}

// Handler returns the HTTP handler (for testing).
func (s *BlockServer) Handler() http.Handler {
	return s.handler
}

// URL returns the address browsers are redirected to.
func (s *BlockServer) URL() string {
	return fmt.Sprintf("http://%s", s.addr)
}

func serveBlockPage(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(blockPageHTML))
}
