package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/caseworks/activity-cli/internal/config"
)

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions",
	Short: "Manage the event exclusion list",
}

var exclusionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List excluded event labels",
	RunE: func(cmd *cobra.Command, _ []string) error {
		excl := cfg.ExclusionPolicy()
		for _, label := range excl.Labels() {
			fmt.Println(label)
		}
		return nil
	},
}

var exclusionsAddCmd = &cobra.Command{
	Use:   "add LABEL",
	Short: "Add an event label to the exclusion list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		if label == "" {
			return eris.New("label must not be empty")
		}
		for _, l := range cfg.Filters.ExcludeEvents {
			if l == label {
				return eris.Errorf("label %q is already excluded", label)
			}
		}
		cfg.Filters.ExcludeEvents = append(cfg.Filters.ExcludeEvents, label)
		if err := config.Save(cfg, ""); err != nil {
			return err
		}
		fmt.Printf("Excluded event %q\n", label)
		return nil
	},
}

var exclusionsRemoveCmd = &cobra.Command{
	Use:   "remove LABEL",
	Short: "Remove an event label from the exclusion list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		kept := cfg.Filters.ExcludeEvents[:0]
		found := false
		for _, l := range cfg.Filters.ExcludeEvents {
			if l == label {
				found = true
				continue
			}
			kept = append(kept, l)
		}
		if !found {
			return eris.Errorf("label %q is not excluded", label)
		}
		cfg.Filters.ExcludeEvents = kept
		if err := config.Save(cfg, ""); err != nil {
			return err
		}
		fmt.Printf("Removed exclusion %q\n", label)
		return nil
	},
}

func init() {
	exclusionsCmd.AddCommand(exclusionsListCmd, exclusionsAddCmd, exclusionsRemoveCmd)
	rootCmd.AddCommand(exclusionsCmd)
}
