// Package msgcat holds every user-visible string. Defaults are embedded;
// a directory of YAML files can override individual keys.
package msgcat

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

// Key names one message as a dotted path into the YAML tree.
type Key string

const (
	KeyEvalPending     Key = "eval.pending"
	KeyEvalUnavailable Key = "eval.unavailable"
	KeyReset           Key = "board.reset"
	KeyTurnWhite       Key = "board.turn.white"
	KeyTurnBlack       Key = "board.turn.black"
	KeyCheckmate       Key = "board.checkmate"
	KeyStalemate       Key = "board.stalemate"
	KeyDraw            Key = "board.draw"
	KeyFENPlaceholder  Key = "fen.placeholder"
	KeyFENInvalid      Key = "fen.invalid"
	KeyCLIEvaluation   Key = "cli.evaluation"
	KeyCLIUnavailable  Key = "cli.unavailable"
	KeyCLIWrotePNG     Key = "cli.wrote_png"
)

var knownKeys = []Key{
	KeyEvalPending, KeyEvalUnavailable,
	KeyReset, KeyTurnWhite, KeyTurnBlack, KeyCheckmate, KeyStalemate, KeyDraw,
	KeyFENPlaceholder, KeyFENInvalid,
	KeyCLIEvaluation, KeyCLIUnavailable, KeyCLIWrotePNG,
}

//go:embed messages.en.yaml
var embedded []byte

// Catalog is immutable after New; every known key has a parsed template.
type Catalog struct {
	tpl map[Key]*template.Template
}

// New loads the embedded messages, then the overrides in dir, if any.
// Override files may only redefine known keys, each at most once.
func New(overrideDir string) (*Catalog, error) {
	src, err := flatten(embedded)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		overrides, err := readOverrides(dir)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			src[k] = v
		}
	}
	return compile(src)
}

// Default is New without overrides. The embedded file is known good.
func Default() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func compile(src map[string]string) (*Catalog, error) {
	c := &Catalog{tpl: make(map[Key]*template.Template, len(knownKeys))}
	var errs []error
	for _, k := range knownKeys {
		text := strings.TrimSpace(src[string(k)])
		if text == "" {
			errs = append(errs, fmt.Errorf("message %s missing", k))
			continue
		}
		t, err := template.New(string(k)).Option("missingkey=error").Parse(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", k, err))
			continue
		}
		c.tpl[k] = t
	}
	return c, errors.Join(errs...)
}

func readOverrides(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read message dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[string(k)] = true
	}
	out := make(map[string]string)
	origin := make(map[string]string)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(b)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for k, v := range flat {
			if !known[k] {
				return nil, fmt.Errorf("%s: unknown message key %q", name, k)
			}
			if prev, ok := origin[k]; ok {
				return nil, fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			origin[k] = name
			out[k] = v
		}
	}
	return out, nil
}

// flatten turns nested YAML maps into dot keys.
func flatten(b []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var walk func(node any, path string) error
	walk = func(node any, path string) error {
		switch v := node.(type) {
		case map[string]any:
			for k, child := range v {
				next := k
				if path != "" {
					next = path + "." + k
				}
				if err := walk(child, next); err != nil {
					return err
				}
			}
		case string:
			if path == "" {
				return errors.New("string value without key")
			}
			out[path] = v
		case nil:
		default:
			return fmt.Errorf("unsupported value at %s: %T", path, v)
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// Render executes the template stored under key.
func (c *Catalog) Render(key Key, data any) (string, error) {
	t, ok := c.tpl[key]
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text is Render for view code: on any failure it returns the key itself.
func (c *Catalog) Text(key Key, data any) string {
	s, err := c.Render(key, data)
	if err != nil {
		return string(key)
	}
	return s
}
