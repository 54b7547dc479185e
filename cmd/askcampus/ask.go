package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/askcampus/askcampus/config"
	srv "github.com/askcampus/askcampus/internal/server"
	"github.com/spf13/cobra"
)

// askCMD runs a single question through the pipeline without the HTTP
// layer. Developer tool for prompt and threshold tuning.
func askCMD() *cobra.Command {
	var cfgPath string
	var sessionID string
	var asJSON bool

	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot question through the local pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			eng, cleanup, err := srv.BuildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := eng.Answer(ctx, strings.Join(args, " "), sessionID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Println(resp.Answer)
			fmt.Printf("\nconfidence: %.2f  shown: %v  session: %s\n", resp.Confidence, resp.ShouldShow, resp.SessionID)
			for _, src := range resp.Sources {
				fmt.Printf("  - %s (%.2f) %s\n", src.Title, src.Similarity, src.URL)
			}
			return nil
		},
	}
	ask.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/askcampus.yaml)")
	ask.Flags().StringVar(&sessionID, "session", "", "session id for multi-turn context")
	ask.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")

	return ask
}
