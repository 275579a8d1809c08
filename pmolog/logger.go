package pmolog

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. level is a logrus level
// name, json switches to the JSON formatter.
func Setup(level string, json bool) error {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log.SetLevel(lvl)

	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	}

	return nil
}

// PrettyXML indents raw for the logs. Input that does not parse is returned
// unchanged.
func PrettyXML(raw string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil || doc.Root() == nil {
		return raw
	}

	doc.Indent(2)

	out, err := doc.WriteToString()
	if err != nil {
		return raw
	}
	return out
}

// XMLDetails wraps an XML document in a collapsible markdown block, the
// format read by the web logger.
func XMLDetails(raw string) string {
	return fmt.Sprintf("<details>\n\n```xml\n%s\n```\n</details>\n", PrettyXML(raw))
}
