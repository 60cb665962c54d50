// File: internal/project/parse.go
// Brief: Strict YAML decoding of kas project documents.

package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError reports a malformed or ambiguous document.
type ParseError struct {
	Source string
	Field  string
	Line   int
	Cause  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ErrUnknownField is the cause of a ParseError raised for a key the schema does not know.
var ErrUnknownField = errors.New("unknown field")

type parseOptions struct {
	lenient bool
}

// ParseOption tweaks Parse.
type ParseOption func(*parseOptions)

// Lenient ignores unknown keys instead of rejecting them.
func Lenient() ParseOption {
	return func(o *parseOptions) { o.lenient = true }
}

// ParseFile reads and parses the document at path.
func ParseFile(path string, opts ...ParseOption) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Cause: err}
	}
	return Parse(path, raw, opts...)
}

// Parse decodes one configuration document. source names the input in errors.
func Parse(source string, data []byte, opts ...ParseOption) (*Document, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Source: source, Cause: err}
	}
	if len(root.Content) == 0 || root.Content[0] == nil {
		return nil, &ParseError{Source: source, Cause: errors.New("document is empty")}
	}
	d := &decoder{source: source, strict: !o.lenient}
	return d.document(root.Content[0])
}

// Marshal encodes doc as YAML. Parse(Marshal(doc)) yields an equal document.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type decoder struct {
	source string
	strict bool
}

func (d *decoder) fail(n *yaml.Node, field string, format string, args ...any) error {
	line := 0
	if n != nil {
		line = n.Line
	}
	return &ParseError{Source: d.source, Field: field, Line: line, Cause: fmt.Errorf(format, args...)}
}

func (d *decoder) unknown(n *yaml.Node, field string) error {
	if !d.strict {
		return nil
	}
	return &ParseError{Source: d.source, Field: field, Line: n.Line, Cause: ErrUnknownField}
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// pairs walks a mapping node, rejecting duplicate and non-scalar keys.
func (d *decoder) pairs(n *yaml.Node, field string, fn func(key string, keyNode, val *yaml.Node) error) error {
	n = deref(n)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return d.fail(n, field, "expected a mapping")
	}
	seen := make(map[string]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], deref(n.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			return d.fail(k, field, "mapping keys must be scalars")
		}
		if prev, ok := seen[k.Value]; ok {
			return d.fail(k, join(field, k.Value), "duplicate key (first defined on line %d)", prev)
		}
		seen[k.Value] = k.Line
		if err := fn(k.Value, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) scalar(n *yaml.Node, field string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", d.fail(n, field, "expected a scalar value")
	}
	return n.Value, nil
}

func (d *decoder) optionalString(n *yaml.Node, field string) (*string, error) {
	if isNull(n) {
		return nil, nil
	}
	v, err := d.scalar(n, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *decoder) optional(n *yaml.Node, field string) (Optional, error) {
	if isNull(n) {
		return None(), nil
	}
	v, err := d.scalar(n, field)
	if err != nil {
		return Optional{}, err
	}
	return Some(v), nil
}

func (d *decoder) document(n *yaml.Node) (*Document, error) {
	n = deref(n)
	if n.Kind != yaml.MappingNode {
		return nil, d.fail(n, "", "top-level YAML document must be a mapping")
	}
	doc := &Document{}
	sawHeader := false
	err := d.pairs(n, "", func(key string, k, v *yaml.Node) error {
		var err error
		switch key {
		case "header":
			sawHeader = true
			doc.Header, err = d.header(v)
		case "build_system":
			var raw *string
			if raw, err = d.optionalString(v, key); err != nil || raw == nil {
				return err
			}
			bs, perr := ParseBuildSystem(*raw)
			if perr != nil {
				return &ParseError{Source: d.source, Field: key, Line: v.Line, Cause: perr}
			}
			doc.BuildSystem = &bs
		case "machine":
			doc.Machine, err = d.optionalString(v, key)
		case "distro":
			doc.Distro, err = d.optionalString(v, key)
		case "task":
			doc.Task, err = d.optionalString(v, key)
		case "target":
			doc.Target, err = d.targets(v)
		case "env":
			doc.Env, err = d.optionalMap(v, key)
		case "repos":
			doc.Repos, err = d.repos(v)
		case "local_conf_header":
			doc.LocalConfHeader, err = d.stringMap(v, key)
		case "bblayers_conf_header":
			doc.BBLayersConfHeader, err = d.stringMap(v, key)
		default:
			err = d.unknown(k, key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, d.fail(n, "header", "header is required")
	}
	return doc, nil
}

func (d *decoder) header(n *yaml.Node) (Header, error) {
	var h Header
	sawVersion := false
	err := d.pairs(n, "header", func(key string, k, v *yaml.Node) error {
		field := join("header", key)
		switch key {
		case "version":
			s, err := d.scalar(v, field)
			if err != nil {
				return err
			}
			h.Version = s
			sawVersion = strings.TrimSpace(s) != ""
		case "includes":
			incs, err := d.includes(v)
			if err != nil {
				return err
			}
			h.Includes = incs
		default:
			return d.unknown(k, field)
		}
		return nil
	})
	if err != nil {
		return Header{}, err
	}
	if !sawVersion {
		return Header{}, d.fail(n, "header.version", "version is required")
	}
	return h, nil
}

func (d *decoder) includes(n *yaml.Node) ([]Include, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.fail(n, "header.includes", "expected a sequence")
	}
	var out []Include
	for i, item := range n.Content {
		item = deref(item)
		field := fmt.Sprintf("header.includes[%d]", i)
		switch item.Kind {
		case yaml.ScalarNode:
			if strings.TrimSpace(item.Value) == "" {
				return nil, d.fail(item, field, "include file must not be empty")
			}
			out = append(out, Include{File: item.Value})
		case yaml.MappingNode:
			var inc Include
			err := d.pairs(item, field, func(key string, k, v *yaml.Node) error {
				sub := join(field, key)
				switch key {
				case "repo":
					s, err := d.optionalString(v, sub)
					if err != nil || s == nil {
						return err
					}
					inc.Repo = *s
				case "file":
					s, err := d.scalar(v, sub)
					if err != nil {
						return err
					}
					inc.File = s
				default:
					return d.unknown(k, sub)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(inc.File) == "" {
				return nil, d.fail(item, join(field, "file"), "file is required")
			}
			out = append(out, inc)
		default:
			return nil, d.fail(item, field, "include must be a string or a {repo, file} mapping")
		}
	}
	return out, nil
}

func (d *decoder) targets(n *yaml.Node) ([]string, error) {
	if isNull(n) {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return nilIfEmpty(strings.Fields(n.Value)), nil
	case yaml.SequenceNode:
		var out []string
		for i, item := range n.Content {
			s, err := d.scalar(deref(item), fmt.Sprintf("target[%d]", i))
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return nilIfEmpty(out), nil
	default:
		return nil, d.fail(n, "target", "expected a string or a sequence of strings")
	}
}

func (d *decoder) optionalMap(n *yaml.Node, field string) (map[string]Optional, error) {
	out := map[string]Optional{}
	err := d.pairs(n, field, func(key string, _, v *yaml.Node) error {
		o, err := d.optional(v, join(field, key))
		if err != nil {
			return err
		}
		out[key] = o
		return nil
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func (d *decoder) stringMap(n *yaml.Node, field string) (map[string]string, error) {
	out := map[string]string{}
	err := d.pairs(n, field, func(key string, _, v *yaml.Node) error {
		s, err := d.optionalString(v, join(field, key))
		if err != nil {
			return err
		}
		if s != nil {
			out[key] = *s
		} else {
			out[key] = ""
		}
		return nil
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func (d *decoder) repos(n *yaml.Node) (map[string]*Repo, error) {
	out := map[string]*Repo{}
	err := d.pairs(n, "repos", func(id string, _, v *yaml.Node) error {
		if isNull(v) {
			out[id] = nil
			return nil
		}
		r, err := d.repo(v, join("repos", id))
		if err != nil {
			return err
		}
		out[id] = r
		return nil
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func (d *decoder) repo(n *yaml.Node, field string) (*Repo, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.fail(n, field, "expected a mapping")
	}
	r := &Repo{}
	err := d.pairs(n, field, func(key string, k, v *yaml.Node) error {
		sub := join(field, key)
		var err error
		switch key {
		case "name":
			r.Name, err = d.optionalString(v, sub)
		case "url":
			r.URL, err = d.optionalString(v, sub)
		case "commit":
			r.Commit, err = d.optionalString(v, sub)
		case "branch":
			r.Branch, err = d.optionalString(v, sub)
		case "refspec":
			r.Refspec, err = d.optionalString(v, sub)
		case "path":
			r.Path, err = d.optionalString(v, sub)
		case "vcs":
			var raw *string
			if raw, err = d.optionalString(v, sub); err != nil || raw == nil {
				return err
			}
			kind, perr := ParseVCS(*raw)
			if perr != nil {
				return &ParseError{Source: d.source, Field: sub, Line: v.Line, Cause: perr}
			}
			r.VCS = &kind
		case "layers":
			r.Layers, err = d.optionalMap(v, sub)
		case "patches":
			r.Patches, err = d.patches(v, sub)
		default:
			err = d.unknown(k, sub)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *decoder) patches(n *yaml.Node, field string) (map[string]Patch, error) {
	out := map[string]Patch{}
	err := d.pairs(n, field, func(id string, _, v *yaml.Node) error {
		sub := join(field, id)
		if v.Kind != yaml.MappingNode {
			return d.fail(v, sub, "expected a {repo, path} mapping")
		}
		var p Patch
		var sawRepo, sawPath bool
		err := d.pairs(v, sub, func(key string, k, pv *yaml.Node) error {
			var err error
			switch key {
			case "repo":
				sawRepo = true
				p.Repo, err = d.scalar(pv, join(sub, key))
			case "path":
				sawPath = true
				p.Path, err = d.scalar(pv, join(sub, key))
			default:
				err = d.unknown(k, join(sub, key))
			}
			return err
		})
		if err != nil {
			return err
		}
		if !sawRepo {
			return d.fail(v, join(sub, "repo"), "repo is required")
		}
		if !sawPath {
			return d.fail(v, join(sub, "path"), "path is required")
		}
		out[id] = p
		return nil
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
