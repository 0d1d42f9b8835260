package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/pipeline"
)

// slotResult is one computed slot as printed by --json.
type slotResult struct {
	Key     string         `json:"key"`
	Source  string         `json:"source"`
	Target  string         `json:"target"`
	Payload design.Payload `json:"payload"`
}

// transformCommand creates the transform command.
func (c *CLI) transformCommand() *cobra.Command {
	var (
		maps     []string
		generate bool
		refresh  bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "transform <source> <target>",
		Short: "Project source design groups onto target containers",
		Long: `Project the design group behind each source container onto a target
container and print the resulting slot payloads.

Without --map, containers with the same name are paired. With --generate the
layout strategy comes from the model instead of the geometric default.`,
		Example: `  recompose transform poster.json banner.json
  recompose transform poster.json banner.json --map HERO=HEADER --json
  recompose transform poster.json banner.json --generate`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeDocuments(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.newRunner(ctx, runnerOptions{Refresh: refresh, Generate: generate})
			if err != nil {
				return err
			}
			defer s.Close()

			pairs, err := c.bind(ctx, s.Runner, args[0], args[1], maps)
			if err != nil {
				return err
			}
			results, err := computeSlots(ctx, s.Runner, pairs, generate)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			for _, r := range results {
				printPayload(fmt.Sprintf("%s → %s", r.Source, r.Target), r.Payload)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&maps, "map", nil, "pair containers as SOURCE=TARGET (repeatable)")
	cmd.Flags().BoolVar(&generate, "generate", false, "ask the model for a layout strategy")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached strategies")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print payloads as JSON")
	return cmd
}

// bind loads both documents and registers one mapping instance per pair.
// Explicit maps win; otherwise containers are paired by name.
func (c *CLI) bind(ctx context.Context, r *pipeline.Runner, srcPath, dstPath string, maps []string) ([]containerPair, error) {
	src, err := loadDocument(ctx, r, sourceID, srcPath)
	if err != nil {
		return nil, err
	}
	dst, err := loadDocument(ctx, r, targetID, dstPath)
	if err != nil {
		return nil, err
	}

	var pairs []containerPair
	if len(maps) > 0 {
		pairs, err = parseMaps(maps, c.Config.Markers.Prefix)
		if err != nil {
			return nil, err
		}
	} else {
		pairs = matchByName(src.Template, dst.Template)
	}
	if len(pairs) == 0 {
		return nil, errors.New(errors.ErrCodeNotReady, "no containers to pair: %d source, %d target", len(src.Template.Containers), len(dst.Template.Containers))
	}
	configure(r, pairs)
	return pairs, nil
}

// configure registers pairs as instances 0..n-1 of the CLI producer.
func configure(r *pipeline.Runner, pairs []containerPair) {
	for i, p := range pairs {
		r.Configure(cliProducer, i, pipeline.Mapping{
			SourceDoc:       sourceID,
			SourceContainer: p.Source,
			TargetDoc:       targetID,
			TargetContainer: p.Target,
		})
	}
}

// parseMaps parses SOURCE=TARGET flags. Marker prefixes are stripped.
func parseMaps(maps []string, prefix string) ([]containerPair, error) {
	pairs := make([]containerPair, 0, len(maps))
	for _, m := range maps {
		src, dst, ok := strings.Cut(m, "=")
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if !ok || src == "" || dst == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid --map %q: want SOURCE=TARGET", m)
		}
		pairs = append(pairs, containerPair{
			Source: container.CleanName(src, prefix),
			Target: container.CleanName(dst, prefix),
		})
	}
	return pairs, nil
}

// matchByName pairs every target container with the source container of the
// same name, ignoring case when there is no exact match.
func matchByName(src, dst container.Template) []containerPair {
	var pairs []containerPair
	for _, t := range dst.Containers {
		if s, ok := src.ByName(t.Name); ok {
			pairs = append(pairs, containerPair{Source: s.Name, Target: t.ID})
			continue
		}
		for _, s := range src.Containers {
			if strings.EqualFold(s.Name, t.Name) {
				pairs = append(pairs, containerPair{Source: s.Name, Target: t.ID})
				break
			}
		}
	}
	return pairs
}

// computeSlots recomputes every instance. With generate, each instance is
// analyzed first, and generative slots are synthesized and confirmed.
func computeSlots(ctx context.Context, r *pipeline.Runner, pairs []containerPair, generate bool) ([]slotResult, error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	results := make([]slotResult, 0, len(pairs))
	for i, p := range pairs {
		key := pipeline.SlotKey(cliProducer, i)
		payload, _, err := r.Recompute(ctx, cliProducer, i)
		if err != nil {
			return nil, err
		}
		if generate && payload.Status != design.StatusIdle {
			payload, err = generateSlot(ctx, r, i, p)
			if err != nil {
				return nil, err
			}
		}
		results = append(results, slotResult{Key: key.String(), Source: p.Source, Target: p.Target, Payload: payload})
	}
	prog.done("Transformed slots", "count", len(results))
	return results, nil
}

// generateSlot runs analysis for one instance and, when the strategy asks
// for generated imagery, synthesis and confirmation.
func generateSlot(ctx context.Context, r *pipeline.Runner, i int, p containerPair) (design.Payload, error) {
	strategy, err := spin(ctx, "Analyzing "+p.Source, func(ctx context.Context) (*design.Strategy, error) {
		return r.Analyze(ctx, cliProducer, i)
	})
	if err != nil {
		return design.Payload{}, fmt.Errorf("analyze %s: %w", p.Source, err)
	}
	key := pipeline.SlotKey(cliProducer, i)
	payload, _ := r.Store.Payload(key)
	if strategy.GenerativePrompt == "" || payload.Status == design.StatusIdle {
		return payload, nil
	}

	_, err = spin(ctx, "Synthesizing "+p.Source, func(ctx context.Context) (design.Payload, error) {
		return r.SynthesizeNow(ctx, cliProducer, i)
	})
	switch {
	case err == nil:
	case stderrors.Is(err, pipeline.ErrSuperseded), errors.Is(err, errors.ErrCodeNotReady):
		loggerFromContext(ctx).Warn("synthesis skipped", "slot", key, "err", err)
		return payload, nil
	default:
		return design.Payload{}, fmt.Errorf("synthesize %s: %w", p.Source, err)
	}
	return r.Confirm(ctx, cliProducer, i, "")
}
