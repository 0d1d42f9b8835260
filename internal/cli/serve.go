package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/internal/api"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/project"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		noProjects bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API that the node editor talks to.

Generation endpoints need an API key (GEMINI_API_KEY or ai.api_key); without
one the server starts and answers them with NOT_READY. Projects are stored in
the configured project store.`,
		Example: `  recompose serve
  recompose serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.Config.Server.Addr
			}

			s, err := c.newRunner(ctx, runnerOptions{Generate: true})
			if errors.Is(err, errors.ErrCodeCredentials) {
				c.Logger.Warn("generation disabled", "reason", errors.UserMessage(err))
				s, err = c.newRunner(ctx, runnerOptions{})
			}
			if err != nil {
				return err
			}
			defer s.Close()

			var projects project.Store
			if !noProjects {
				store, err := c.newProjectStore(ctx)
				if err != nil {
					return err
				}
				defer store.Close()
				projects = store
			}
			return api.New(s.Runner, projects, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&noProjects, "no-projects", false, "disable the project endpoints")
	return cmd
}
