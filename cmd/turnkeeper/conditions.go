package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/samdwyer/turnkeeper/internal/condition"
)

func newConditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conditions [name]",
		Short: "List the condition catalog, or show one condition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := condition.DefaultCatalog()
			if err != nil {
				return err
			}
			names := catalog.Names()
			if len(args) == 1 {
				def, ok := catalog.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown condition %q", args[0])
				}
				names = []string{def.Name}
			}

			caser := cases.Title(language.English)
			w := cmd.OutOrStdout()
			for _, name := range names {
				def, _ := catalog.Lookup(name)
				fmt.Fprintf(w, "%s (default: %s)\n", caser.String(def.Name), defaultText(def.Default))
				if def.Description != "" {
					fmt.Fprintf(w, "    %s\n", def.Description)
				}
				if implied := catalog.Implications(name); len(implied) > 0 {
					fmt.Fprintf(w, "    implies: %s\n", strings.Join(implied, ", "))
				}
			}
			return nil
		},
	}
}

func defaultText(s condition.Spec) string {
	switch s.Kind {
	case condition.Rounds, condition.Minutes, condition.Hours:
		return fmt.Sprintf("%d %s", s.Value, s.Kind)
	case condition.SaveEnds:
		if s.SaveDC > 0 {
			return fmt.Sprintf("until DC %d %s save", s.SaveDC, s.SaveAbility)
		}
		return "until save succeeds"
	case "":
		return string(condition.Permanent)
	default:
		return string(s.Kind)
	}
}
