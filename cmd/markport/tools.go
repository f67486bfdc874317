package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/markport/internal/driver"
	"github.com/xxxsen/markport/internal/parser"
)

func newImportCmd() *cobra.Command {
	var (
		server  string
		token   string
		slack   int
		retries int
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "upload an export file and drive the import until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				return fmt.Errorf("--server is required")
			}
			if token == "" {
				token = os.Getenv("MARKPORT_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("--token or MARKPORT_TOKEN is required")
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts := driver.Options{Slack: slack, MaxRetries: retries, RetryDelay: 2 * time.Second}
			if !quiet {
				opts.OnProgress = func(p driver.Progress) {
					fmt.Fprintf(out, "chunk %d: +%d imported, +%d failed, %d remaining\n", p.Call, p.Imported, p.Failed, p.Remaining)
				}
			}
			client := driver.NewClient(server, token, nil)
			sum, err := driver.New(client, opts).Run(cmd.Context(), filepath.Base(args[0]), content)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: imported=%d skipped=%d failed=%d total=%d\n", sum.Format, sum.Imported, sum.Skipped, sum.Failed, sum.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "markport server base url")
	cmd.Flags().StringVar(&token, "token", "", "bearer token of the caller")
	cmd.Flags().IntVar(&slack, "slack", driver.DefaultSlack, "extra process calls allowed beyond the chunk count")
	cmd.Flags().IntVar(&retries, "retries", driver.DefaultMaxRetries, "retries of a failed process call")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "only print the final summary")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var (
		to     string
		output string
	)
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "detect the format of an export file and rewrite it in another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := parser.Format(to)
			if !target.Valid() {
				return fmt.Errorf("unknown format %q", to)
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			from, items, err := parser.Parse(content)
			if err != nil {
				return err
			}
			encoded, err := parser.Encode(target, items)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if _, err := w.Write(encoded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "converted %d bookmarks from %s to %s\n", len(items), from, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", string(parser.FormatNetscape), "target format: netscape, pinboard, pocket or instapaper")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	return cmd
}
