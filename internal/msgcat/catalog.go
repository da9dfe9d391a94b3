// Package msgcat holds the user-facing prompt texts of the terminal front end.
package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaults []byte

// Catalog maps dotted keys such as "play.prompt" to compiled templates.
// It is read-only after New.
type Catalog struct {
	templates map[string]*template.Template
}

// New compiles the embedded messages. A non-empty overridePath names a YAML
// file whose entries replace defaults; it may only use keys the defaults have,
// so a typo fails at startup instead of printing the raw key later.
func New(overridePath string) (*Catalog, error) {
	texts, err := flatten(defaults)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	if path := strings.TrimSpace(overridePath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read messages override: %w", err)
		}
		overrides, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for k, v := range overrides {
			if _, ok := texts[k]; !ok {
				return nil, fmt.Errorf("unknown message key %q in %s", k, path)
			}
			texts[k] = v
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(texts))}
	for k, v := range texts {
		tpl, err := template.New(k).Option("missingkey=error").Parse(v)
		if err != nil {
			return nil, fmt.Errorf("compile message %s: %w", k, err)
		}
		c.templates[k] = tpl
	}
	return c, nil
}

func flatten(b []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := flattenInto(root, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(node map[string]any, prefix string, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			if err := flattenInto(v, key, out); err != nil {
				return err
			}
		case string:
			out[key] = v
		case nil:
		default:
			return fmt.Errorf("message %s: want text, got %T", key, v)
		}
	}
	return nil
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.templates[key]
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Text is Render for call sites that print directly; it falls back to the key.
func (c *Catalog) Text(key string, data any) string {
	out, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return out
}
