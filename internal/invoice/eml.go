package invoice

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
)

// mailContainerText extracts the readable body text from an embedded RFC822
// message. All text/plain and text/html parts are concatenated in traversal
// order, separated by blank lines; parts with an attachment disposition are
// skipped. If nothing usable is found the whole container is decoded as one
// text blob, best effort.
func mailContainerText(data []byte) string {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}

	var texts []string
	walkMailParts(envelope.Root, func(p *enmime.Part) {
		if p.Disposition == "attachment" {
			return
		}
		if p.ContentType != "text/plain" && p.ContentType != "text/html" {
			return
		}
		if text := strings.TrimSpace(string(p.Content)); text != "" {
			texts = append(texts, text)
		}
	})

	if len(texts) == 0 {
		return strings.ToValidUTF8(string(data), "�")
	}

	return strings.Join(texts, "\n\n")
}

// walkMailParts visits every part of the MIME tree in depth-first order.
func walkMailParts(p *enmime.Part, fn func(*enmime.Part)) {
	if p == nil {
		return
	}

	fn(p)

	for child := p.FirstChild; child != nil; child = child.NextSibling {
		walkMailParts(child, fn)
	}
}
