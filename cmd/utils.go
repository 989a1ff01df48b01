package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// EnumSliceValue is a repeatable pflag value restricted to a fixed set.
// Occurrences accumulate and comma lists are accepted, so -a amd64,i386 and
// -a amd64 -a i386 are equivalent; duplicates are kept once.
type EnumSliceValue struct {
	values  []string
	allowed map[string]string // value -> help text
}

func NewEnumSliceValue(allowed map[string]string) EnumSliceValue {
	return EnumSliceValue{allowed: allowed}
}

func (e *EnumSliceValue) String() string     { return strings.Join(e.values, ",") }
func (e *EnumSliceValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumSliceValue) Type() string       { return "enum" }
func (e *EnumSliceValue) Values() []string   { return e.values }

func (e *EnumSliceValue) Set(v string) error {
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if _, ok := e.allowed[item]; !ok {
			return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
		}
		if !slices.Contains(e.values, item) {
			e.values = append(e.values, item)
		}
	}
	return nil
}

func (e *EnumSliceValue) AllowedKeys() []string {
	keys := make([]string, 0, len(e.allowed))
	for k := range e.allowed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (e *EnumSliceValue) CompletionFunc() func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		items := make([]string, 0, len(e.allowed))
		for _, k := range e.AllowedKeys() {
			if help := e.allowed[k]; help != "" {
				items = append(items, fmt.Sprintf("%s\t%s", k, help))
			} else {
				items = append(items, k)
			}
		}
		return items, cobra.ShellCompDirectiveDefault
	}
}
