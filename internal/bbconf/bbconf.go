// File: internal/bbconf/bbconf.go
// Brief: Rendering of bblayers.conf and local.conf for the effective configuration.

// Package bbconf renders the bitbake configuration files a checkout writes under
// <build dir>/conf. Output is deterministic: header fragments are emitted in key order.
package bbconf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/bake/internal/override"
	"github.com/example/bake/internal/project"
	"github.com/example/bake/internal/repos"
)

const banner = "# Generated by bake. Local changes are overwritten on the next checkout.\n"

// BBLayers renders bblayers.conf listing every enabled layer of resolved, in repo order.
func BBLayers(doc *project.Document, resolved []repos.ResolvedRepo) string {
	var b strings.Builder
	b.WriteString(banner)
	if doc != nil {
		writeHeaders(&b, doc.BBLayersConfHeader)
	}
	b.WriteString("BBPATH = \"${TOPDIR}\"\n")
	b.WriteString("BBFILES ?= \"\"\n")
	b.WriteString("BBLAYERS ?= \" \\\n")
	for _, rr := range resolved {
		for _, l := range rr.Layers {
			fmt.Fprintf(&b, "    %s \\\n", l.Path)
		}
	}
	b.WriteString("\"\n")
	return b.String()
}

// LocalConf renders local.conf for the effective settings.
func LocalConf(doc *project.Document, s override.Settings) string {
	var b strings.Builder
	b.WriteString(banner)
	if doc != nil {
		writeHeaders(&b, doc.LocalConfHeader)
	}
	fmt.Fprintf(&b, "MACHINE ??= \"%s\"\n", s.Machine)
	fmt.Fprintf(&b, "DISTRO ??= \"%s\"\n", s.Distro)
	if mcs := s.Multiconfigs(); len(mcs) > 0 {
		fmt.Fprintf(&b, "BBMULTICONFIG ?= \"%s\"\n", strings.Join(mcs, " "))
	}
	return b.String()
}

func writeHeaders(b *strings.Builder, headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "# %s\n", k)
		text := headers[k]
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}
