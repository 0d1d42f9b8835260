package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/pkg/project"
)

// projectCommand creates the project command group.
func (c *CLI) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Validate, store and visualize project graphs",
	}

	cmd.AddCommand(c.projectValidateCommand())
	cmd.AddCommand(c.projectSanitizeCommand())
	cmd.AddCommand(c.projectGraphCommand())
	cmd.AddCommand(c.projectListCommand())
	cmd.AddCommand(c.projectSaveCommand())
	cmd.AddCommand(c.projectLoadCommand())

	return cmd
}

func (c *CLI) projectValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a file is a loadable project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.readProject(args[0])
			if err != nil {
				return err
			}
			printSuccess("Valid project")
			printKeyValue("Version", p.Version)
			printKeyValue("Nodes", fmt.Sprint(len(p.Nodes)))
			printKeyValue("Edges", fmt.Sprint(len(p.Edges)))
			return nil
		},
	}
}

func (c *CLI) projectSanitizeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sanitize <file>",
		Short: "Strip transient editor state from a project",
		Long: `Strip transient editor state (in-flight flags, unconfirmed previews) from
every node of a project and print or write the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.readProject(args[0])
			if err != nil {
				return err
			}
			data, err := project.Marshal(project.Sanitize(p))
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Sanitized project")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) projectGraphCommand() *cobra.Command {
	var (
		output  string
		handles bool
		dot     bool
	)

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render a project's node graph",
		Example: `  recompose project graph campaign.json -o campaign.svg
  recompose project graph campaign.json --dot | dot -Tpng > campaign.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.readProject(args[0])
			if err != nil {
				return err
			}
			src := project.ToDOT(p, project.DOTOptions{Handles: handles})
			out := []byte(src)
			if !dot {
				out, err = project.RenderSVG(cmd.Context(), src)
				if err != nil {
					return err
				}
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&handles, "handles", false, "label edges with slot and handle names")
	cmd.Flags().BoolVar(&dot, "dot", false, "print Graphviz DOT instead of SVG")
	return cmd
}

func (c *CLI) projectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.newProjectStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No saved projects")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func (c *CLI) projectSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <file>",
		Short: "Save a project file to the project store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.readProject(args[1])
			if err != nil {
				return err
			}
			store, err := c.newProjectStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Save(cmd.Context(), args[0], p); err != nil {
				return err
			}
			printSuccess("Saved project %s", StyleValue.Render(args[0]))
			return nil
		},
	}
}

func (c *CLI) projectLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Print a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.newProjectStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := project.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}

// readProject reads and validates a project file.
func (c *CLI) readProject(path string) (*project.Project, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return project.Validate(data, c.Logger)
}
