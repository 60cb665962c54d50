// File: cmd/bake/help_template.go
// Brief: Shared help layout for bake commands.

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagsHeadingKey   = "flagsHeading"
	localUsageKey     = "localFlagUsages"
	inheritedUsageKey = "inheritedFlagUsages"
)

const commandHelpTemplate = `{{with or .Long .Short}}{{. | trimTrailingWhitespaces}}{{end}}

Usage:
  {{.UseLine}}
{{if .HasAvailableSubCommands}}
Commands:
{{range .Commands}}{{if (and .IsAvailableCommand (ne .Name "help"))}}  {{rpad .Name .NamePadding}} {{.Short}}
{{end}}{{end}}{{end}}{{if .HasExample}}
Examples:
{{.Example}}
{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{index .Annotations "localFlagUsages"}}
{{end}}{{if .HasAvailableInheritedFlags}}
{{index .Annotations "flagsHeading"}}:
{{index .Annotations "inheritedFlagUsages"}}
{{end}}`

// decorateCommandHelp installs the bake help layout on cmd and every command below it.
// heading names the section listing inherited flags.
func decorateCommandHelp(cmd *cobra.Command, heading string) {
	if strings.TrimSpace(heading) == "" {
		heading = "Global Flags"
	}
	cmd.SetHelpTemplate(commandHelpTemplate)
	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		if c.Annotations == nil {
			c.Annotations = make(map[string]string)
		}
		c.Annotations[flagsHeadingKey] = heading
		c.Annotations[localUsageKey] = formatFlagUsages(c.LocalFlags())
		c.Annotations[inheritedUsageKey] = formatFlagUsages(c.InheritedFlags())
		defaultHelp(c, args)
	})
}

func formatFlagUsages(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	usages := fs.FlagUsagesWrapped(100)
	usages = strings.ReplaceAll(usages, "\t", "  ")
	return strings.TrimRight(usages, "\n")
}
