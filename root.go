package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/interview-coach/config"
)

var version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Interview practice scoring engine",
		Long: `coach scores interview practice sessions: facial landmark geometry and
microphone spectra are turned into a live behavioral score, combined with a
content score from an external judge, and graded.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "explicit config file (default: config/<CONFIG_ENV>/config.yaml or ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newQuestionsCommand(opts))
	return cmd
}

// load resolves configuration and the process logger.
func (o *rootOptions) load() (*cfg.Root, *logrus.Logger, error) {
	var (
		c   *cfg.Root
		err error
	)
	if o.configPath != "" {
		c, err = cfg.LoadFile(o.configPath)
	} else {
		c, err = cfg.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if o.debug {
		c.Pipeline.LogLvl = "debug"
	}
	log := c.NewLogger()
	log.WithFields(logrus.Fields{
		"name":    c.Pipeline.Name,
		"version": c.Pipeline.Version,
	}).Debug("configuration loaded")
	return c, log, nil
}
