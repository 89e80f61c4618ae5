package github

import (
	"net/http"
	"sync"
)

// History keeps the most recent request/response exchange.
type History struct {
	mu       sync.RWMutex
	request  *http.Request
	response *http.Response
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Record overwrites the stored exchange.
func (h *History) Record(req *http.Request, resp *http.Response) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.request = req
	h.response = resp
}

// LastResponse returns the last recorded response, or nil.
func (h *History) LastResponse() *http.Response {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.response
}

// LastRequest returns the request that produced LastResponse, or nil.
func (h *History) LastRequest() *http.Request {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.request
}

// Reset forgets the stored exchange.
func (h *History) Reset() {
	h.Record(nil, nil)
}

// HistoryPlugin records every successful exchange into a History. Transport
// failures leave the previous record untouched.
type HistoryPlugin struct {
	History *History
}

// NewHistoryPlugin creates a plugin recording into history.
func NewHistoryPlugin(history *History) *HistoryPlugin {
	return &HistoryPlugin{History: history}
}

func (p *HistoryPlugin) Kind() PluginKind { return KindHistory }

func (p *HistoryPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	resp, err := next.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	if p.History != nil {
		p.History.Record(req, resp)
	}
	return resp, nil
}
