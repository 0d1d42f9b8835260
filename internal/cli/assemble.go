package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/pkg/assemble"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/pipeline"
)

// assembleCommand creates the assemble command.
func (c *CLI) assembleCommand() *cobra.Command {
	var (
		output      string
		maps        []string
		interactive bool
		generate    bool
		refresh     bool
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "assemble <source> <template>",
		Short: "Assemble a new layered document from a source and a template",
		Long: `Project the source's design groups onto the template's containers and
write the result as a new layered document.

Each bound container becomes a group named after it. Containers that stay
unbound are skipped. Slots whose layers leave their container are reported,
and with --strict the document is not written.`,
		Example: `  recompose assemble poster.json banner.json -o banner-out.json
  recompose assemble poster.json banner.json --map HERO=HEADER --map LOGO=LOGO
  recompose assemble poster.json banner.json --interactive --generate`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeDocuments(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output == "" {
				output = defaultOutput(args[1])
			}

			s, err := c.newRunner(ctx, runnerOptions{Refresh: refresh, Generate: generate})
			if err != nil {
				return err
			}
			defer s.Close()

			pairs, err := c.bind(ctx, s.Runner, args[0], args[1], maps)
			if err != nil && !(interactive && errors.Is(err, errors.ErrCodeNotReady)) {
				return err
			}
			if interactive {
				pairs, err = pickPairs(ctx, s.Runner, pairs)
				if err != nil {
					return err
				}
				if pairs == nil {
					printInfo("Aborted")
					return nil
				}
				s.RemoveNode(cliProducer)
				configure(s.Runner, pairs)
			}

			results, err := computeSlots(ctx, s.Runner, pairs, generate)
			if err != nil {
				return err
			}
			for _, r := range results {
				printPayload(fmt.Sprintf("%s → %s", r.Source, r.Target), r.Payload)
			}

			return c.writeAssembly(ctx, s.Runner, output, strict)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <template>.assembled.json)")
	cmd.Flags().StringArrayVar(&maps, "map", nil, "pair containers as SOURCE=TARGET (repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick container pairs interactively")
	cmd.Flags().BoolVar(&generate, "generate", false, "use model strategies and generated fills")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached strategies and assets")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of writing when the audit finds violations")
	return cmd
}

// writeAssembly exports the target document to path. The file is written
// through a temporary sibling so a failed export leaves no partial output.
func (c *CLI) writeAssembly(ctx context.Context, r *pipeline.Runner, path string, strict bool) error {
	prog := newProgress(loggerFromContext(ctx))

	if strict {
		slots, _, err := r.Slots(targetID)
		if err != nil {
			return err
		}
		if report := assemble.Audit(slots); !report.OK() {
			printViolations(os.Stdout, report)
			return errors.New(errors.ErrCodeInvalidInput, "%d layout violations", len(report.Violations))
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".recompose-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	report, stats, err := r.Export(ctx, tmp, targetID)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	prog.done("Assembled document", "slots", stats.Slots)
	printSuccess("Assembled %d of %d containers", stats.Slots, stats.Slots+stats.Skipped)
	printAssembly(os.Stdout, stats, report)
	printFile(path)
	printNextStep("Inspect the result", "recompose containers "+path)
	return nil
}

// pickPairs runs the interactive mapping picker. A nil result means the
// user aborted.
func pickPairs(ctx context.Context, r *pipeline.Runner, initial []containerPair) ([]containerPair, error) {
	src, _ := r.Document(sourceID)
	dst, _ := r.Document(targetID)
	names := make([]string, 0, len(src.Template.Containers))
	for _, c := range src.Template.Containers {
		names = append(names, c.Name)
	}

	model := NewMappingModel(dst.Template.Containers, names, initial)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("mapping picker: %w", err)
	}
	m := final.(MappingModel)
	if m.Aborted {
		return nil, nil
	}
	pairs := m.Pairs()
	if len(pairs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no containers selected")
	}
	return pairs, nil
}

// defaultOutput derives "<name>.assembled.json" from the template path.
func defaultOutput(template string) string {
	base := strings.TrimSuffix(template, filepath.Ext(template))
	return base + ".assembled.json"
}
