package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	cfg "github.com/maastricht-university/interview-coach/config"
	"github.com/maastricht-university/interview-coach/orchestrator"
	"github.com/maastricht-university/interview-coach/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr, questions string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring API and live session websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := root.load()
			if err != nil {
				return err
			}
			undo, err := maxprocs.Set(maxprocs.Logger(log.Debugf))
			if err != nil {
				log.WithError(err).Warn("could not set GOMAXPROCS from cgroup quota")
			}
			defer undo()

			if addr != "" {
				c.Server.Addr = addr
			}
			if questions != "" {
				if c.Session.Questions, err = cfg.LoadQuestions(questions); err != nil {
					return err
				}
			}

			p := orchestrator.NewPipeline(c, log)
			if c.Judge.URL == "" {
				log.Warn("no judge.url configured, every session will use the default content score")
			}
			srv := server.New(c, p, log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errc := make(chan error, 1)
			go func() { errc <- srv.Listen() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				log.Info("shutting down")
				return srv.Shutdown()
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&questions, "questions", "", "YAML question bank (overrides session.questions)")
	return cmd
}
