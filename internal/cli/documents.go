package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/pipeline"
)

// Document ids used for the two inputs of a CLI session.
const (
	sourceID = "source"
	targetID = "target"
)

// containersCommand creates the containers command.
func (c *CLI) containersCommand() *cobra.Command {
	var (
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "containers <document>",
		Short: "List the template containers of a document",
		Long: `List the template containers of a layered document.

Containers are the children of the template group (default "!!TEMPLATE")
whose names carry the container prefix (default "!!"). Pixel data is not
decoded, and results are cached by document content.`,
		Example: `  recompose containers poster.json
  recompose containers banner.json --json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocuments(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			s, err := c.newRunner(ctx, runnerOptions{NoCache: noCache})
			if err != nil {
				return err
			}
			defer s.Close()

			tpl, hit, err := s.Inspect(ctx, data)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, tpl)
			}
			if len(tpl.Containers) == 0 {
				printWarning("No containers in %s", args[0])
				printDetail("Expected a %q group with %q-prefixed children", c.Config.Markers.Template, c.Config.Markers.Prefix)
				return nil
			}
			fmt.Println(renderContainers(tpl, hit))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the template as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the document cache")
	return cmd
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <document> <container>",
		Short: "Find the design group a container refers to",
		Long: `Find the layer group whose name matches a container name.

The match is exact first and case-insensitive second. Case mismatches and
empty groups are reported as warnings; a missing group is an error.`,
		Example:           `  recompose resolve poster.json HERO`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeDocuments(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.newRunner(ctx, runnerOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := loadDocument(ctx, s.Runner, sourceID, args[0]); err != nil {
				return err
			}
			name := container.CleanName(args[1], c.Config.Markers.Prefix)
			res := s.Resolve(sourceID, name)
			if asJSON {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else {
				printResolve(name, res)
			}
			if !res.Status.Go() {
				return errors.New(errors.ErrCodeNotReady, "%s: %s", name, res.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// =============================================================================
// Helpers
// =============================================================================

// readInput reads a document file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "no such document: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "read %s", path)
	}
	return data, nil
}

// loadDocument reads path and registers it with the runner under id.
func loadDocument(ctx context.Context, r *pipeline.Runner, id, path string) (*pipeline.LoadedDocument, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	ld, err := r.LoadDocument(ctx, id, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ld, nil
}

// writeJSON prints v as indented JSON to the command's output.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
