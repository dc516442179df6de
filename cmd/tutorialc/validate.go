package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/playback"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <project.json>...",
		Short: "Check that project documents load in the player",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := validateProject(path); err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					continue
				}
				root.log.WithField("file", path).Debug("project loaded")
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d projects invalid", failed, len(args))
			}
			return nil
		},
	}
}

func validateProject(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return playback.New(playback.Config{}).Load(&p)
}
