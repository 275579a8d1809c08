package pmolog

import (
	"container/ring"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const bufferSize = 1000

// WebLogger is a logrus hook publishing log entries to browsers through
// server-sent events. The last entries are kept and replayed to every new
// client.
type WebLogger struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	buffer  *ring.Ring
}

func NewWebLogger(size int) *WebLogger {
	if size <= 0 {
		size = bufferSize
	}
	return &WebLogger{
		clients: make(map[chan string]struct{}),
		buffer:  ring.New(size),
	}
}

func (wl *WebLogger) Levels() []log.Level { return log.AllLevels }

func (wl *WebLogger) Fire(entry *log.Entry) error {
	msg := map[string]string{
		"time":    entry.Time.Format(time.RFC3339),
		"level":   entry.Level.String(),
		"content": entry.Message,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.buffer.Value = string(b)
	wl.buffer = wl.buffer.Next()

	for ch := range wl.clients {
		select {
		case ch <- string(b):
		default: // client trop lent, on saute
		}
	}
	return nil
}

// Replay returns the buffered entries, oldest first.
func (wl *WebLogger) Replay() []string {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	var out []string
	wl.buffer.Do(func(v any) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	})
	return out
}

func (wl *WebLogger) attach() chan string {
	ch := make(chan string, 20)
	wl.mu.Lock()
	wl.clients[ch] = struct{}{}
	wl.mu.Unlock()
	return ch
}

func (wl *WebLogger) detach(ch chan string) {
	wl.mu.Lock()
	delete(wl.clients, ch)
	wl.mu.Unlock()
}

func (wl *WebLogger) sseHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := wl.attach()
	defer wl.detach(ch)

	for _, msg := range wl.Replay() {
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
	}
	flusher.Flush()

	for {
		select {
		case msg := <-ch:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

var indexHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>pmovolume logs</title>
  <style>
    body { background:#0d1117; color:#e6edf3; font-family:sans-serif; margin:0; padding:20px; }
    #logs { height:80vh; overflow-y:auto; background:#161b22; border:1px solid #30363d; border-radius:8px; padding:15px; }
    .log { margin:6px 0; padding:6px 10px; border-left:4px solid; border-radius:6px; white-space:pre-wrap; }
    .log.error   { border-color:#f85149; }
    .log.warning { border-color:#d29922; }
    .log.info    { border-color:#58a6ff; }
    .log.debug   { border-color:#8957e5; }
    .time { color:#7d8590; font-size:12px; margin-right:10px; }
  </style>
</head>
<body>
  <h1>📝 Logs en temps réel</h1>
  <div id="logs"></div>
  <script>
    const logs=document.getElementById('logs');
    const es=new EventSource('/log-sse');
    es.addEventListener('message', e=>{
      const d=JSON.parse(e.data);
      const line=document.createElement('div');
      line.className='log '+d.level;
      const t=document.createElement('span');
      t.className='time';
      t.textContent=new Date(d.time).toLocaleTimeString();
      line.appendChild(t);
      line.appendChild(document.createTextNode(d.content));
      logs.appendChild(line);
      if(logs.children.length>500) logs.removeChild(logs.firstChild);
      logs.scrollTop=logs.scrollHeight;
    });
  </script>
</body>
</html>`

func indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// Mount attaches the hook to the standard logger and registers /log and
// /log-sse on mux.
func (wl *WebLogger) Mount(mux *http.ServeMux) {
	log.AddHook(wl)
	mux.HandleFunc("/log", indexHandler)
	mux.HandleFunc("/log-sse", wl.sseHandler)
	log.Info("✅ Web logger connected")
}
