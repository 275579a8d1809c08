package pmoupnp

import (
	"fmt"
	"html"
	"net/http"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/netutils"
)

func (s *Server) ServeDebugIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	svc := s.device.Service()
	snap := svc.Volume().GetAll()

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>UPnP Debug Interface</title>
  <style>
    body { font-family: sans-serif; margin: 2em; }
    h1 { border-bottom: 1px solid #ccc; }
    pre { background: #f5f5f5; padding: 1em; overflow-x: auto; }
    a { color: #007bff; text-decoration: none; }
    a:hover { text-decoration: underline; }
  </style>
</head>
<body>
  <h1>Host %s </h1>
  <h2>address: %s</h2>
  <h3>Volume</h3>
  <pre>StepCount=%d CurrentStep=%d InterfaceRevision=%d
observers=%d subscriptions=%d</pre>
  <h3>Descriptions</h3>
  <ul>
    <li><a href="%s">device</a></li>
    <li><a href="%s">%s</a></li>
    <li><a href="/log">logs</a></li>
  </ul>
  <h3>Interfaces</h3>
  <ul>
`,
		html.EscapeString(s.Name()),
		html.EscapeString(s.BaseURL()),
		snap.StepCount, snap.CurrentStep, snap.InterfaceRevision,
		svc.Volume().ObserverCount(), svc.Eventing().Len(),
		s.device.DescriptionURL(),
		svc.SCPDURL(), html.EscapeString(svc.ServiceType()),
	)

	ips := netutils.ListAllIPs()
	if msg, ok := ips["error"]; ok {
		fmt.Fprintf(w, "    <li>error: %s</li>\n", html.EscapeString(fmt.Sprint(msg)))
	}
	for _, name := range netutils.InterfaceNames(ips) {
		fmt.Fprintf(w, "    <li>%s: %s</li>\n", html.EscapeString(name), html.EscapeString(fmt.Sprint(ips[name])))
	}

	fmt.Fprint(w, `  </ul>
</body>
</html>
`)
}
