package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/interview-coach/orchestrator"
	"github.com/maastricht-university/interview-coach/server"
)

type replayOptions struct {
	file      string
	question  string
	answer    string
	serverURL string
	outputs   string
}

func newReplayCommand(root *rootOptions) *cobra.Command {
	o := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Score a recorded session (JSON Lines) and print the result",
		Long: `Replay feeds a recorded session through the scoring engine and prints the
result as JSON. Each line of the recording is one event:

  {"type":"meta","question":"...","answer":"..."}
  {"t":0,"type":"frame","landmarks":[[x,y,z],...],"confidence":0.9}
  {"t":100,"type":"audio","bins":[0,12,...]}
  {"t":200,"type":"transcript","text":"..."}

By default the recording is replayed locally on a simulated clock. With
--server the events are streamed in real time to a running "coach serve".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), cmd.OutOrStdout(), root, o)
		},
	}
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "recording file (JSON Lines)")
	cmd.Flags().StringVar(&o.question, "question", "", "override the recorded question")
	cmd.Flags().StringVar(&o.answer, "answer", "", "override the recorded answer")
	cmd.Flags().StringVar(&o.serverURL, "server", "", "stream to a running server, e.g. ws://localhost:8080/ws/session")
	cmd.Flags().StringVar(&o.outputs, "outputs", "", "write result.json and summary.yaml under this directory")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runReplay(ctx context.Context, out io.Writer, root *rootOptions, o *replayOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, log, err := root.load()
	if err != nil {
		return err
	}
	if o.outputs != "" {
		c.Paths.Outputs = o.outputs
	}

	f, err := os.Open(o.file)
	if err != nil {
		return err
	}
	defer f.Close()
	rec, err := orchestrator.ReadRecording(f)
	if err != nil {
		return err
	}
	if o.question != "" {
		rec.Question = o.question
	}
	if o.answer != "" {
		rec.Answer = o.answer
	}
	log.WithField("events", len(rec.Events)).Info("recording loaded")

	var res *orchestrator.Result
	if o.serverURL != "" {
		res, err = server.Stream(ctx, o.serverURL, rec, log)
	} else {
		var r orchestrator.Result
		r, err = orchestrator.NewPipeline(c, log).Run(ctx, rec)
		res = &r
	}
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
