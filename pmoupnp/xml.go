package pmoupnp

import (
	"bytes"
	"net/http"

	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"
)

// XML prend un générateur de XML (*etree.Element) et renvoie la string XML
// avec header.
func XML(gen func() *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(gen())
	doc.Indent(2)

	buf := new(bytes.Buffer)
	if _, err := doc.WriteTo(buf); err != nil {
		return "", err
	}

	return `<?xml version="1.0" encoding="utf-8"?>` + "\n" + buf.String(), nil
}

func ServeXML(gen func() *etree.Element) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		xmlStr, err := XML(gen)
		if err != nil {
			log.Errorf("❌ Failed to generate XML for %s: %v", r.URL.Path, err)
			http.Error(w, "failed to generate XML", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(xmlStr))
	}
}
