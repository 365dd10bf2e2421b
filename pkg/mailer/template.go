package mailer

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// page is a markdown template split from its YAML front matter.
type page struct {
	meta map[string]any
	body []byte
}

var fence = []byte("---")

// parsePage splits "---\n<yaml>\n---\n<markdown>". Content without an
// opening fence is all body.
func parsePage(src []byte) (*page, error) {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(src, fence) {
		return &page{meta: map[string]any{}, body: src}, nil
	}

	rest := bytes.TrimLeft(src[len(fence):], "\n")
	head, body, ok := bytes.Cut(rest, append([]byte("\n"), fence...))
	if !ok {
		if !bytes.HasPrefix(rest, fence) {
			return nil, fmt.Errorf("%w: closing fence not found", ErrInvalidFrontmatter)
		}
		head, body = nil, rest[len(fence):]
	}
	body = bytes.TrimPrefix(body, []byte("\n"))

	meta := map[string]any{}
	if len(bytes.TrimSpace(head)) > 0 {
		if err := yaml.Unmarshal(head, &meta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}
	return &page{meta: meta, body: body}, nil
}

func (p *page) subject() string {
	s, _ := p.meta["subject"].(string)
	return s
}
