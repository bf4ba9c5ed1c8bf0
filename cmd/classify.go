package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/krau/konaclassify/config"
	"github.com/krau/konaclassify/onnx"
	"github.com/krau/konaclassify/present"
	"github.com/krau/konaclassify/server"
	"github.com/krau/konaclassify/zoo"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

var classifyModel string

var classifyCmd = &cobra.Command{
	Use:   "classify IMAGE",
	Short: "Classify a single image in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := onnx.Init(); err != nil {
			return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
		}
		defer onnx.Destroy()

		cfg := config.C()
		progress := mpb.NewWithContext(cmd.Context(), mpb.WithWidth(60), mpb.WithOutput(cmd.ErrOrStderr()))
		fetcher := zoo.NewFetcher(cfg.FetchRetries)
		fetcher.Progress = progress

		reg, err := onnx.NewRegistry(cfg, fetcher)
		if err != nil {
			return err
		}
		defer reg.Close()

		s := server.NewSession(reg, cfg.ImageTypes)
		name := classifyModel
		if name == "" {
			name = reg.Default().Name()
		}
		if err := s.SelectModel(name); err != nil {
			return fmt.Errorf("%w, available: %v", err, reg.Names())
		}
		if err := s.Upload(filepath.Base(args[0]), data); err != nil {
			return err
		}

		report, finish := progressReporter(progress)
		result, err := s.Classify(cmd.Context(), report)
		finish(err == nil)
		progress.Wait()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, result.Summary)
		fmt.Fprintln(out)
		fmt.Fprint(out, present.RenderText(result.Chart, 40))
		fmt.Fprintln(out)
		fmt.Fprint(out, present.Resources(s.Profile().Spec()))
		return nil
	},
}

// progressReporter turns classification events into an mpb bar. finish must be called once the
// classification returns.
func progressReporter(p *mpb.Progress) (zoo.Reporter, func(ok bool)) {
	var message atomic.Value
	message.Store("")
	var bar *mpb.Bar

	report := func(e zoo.Event) {
		switch e.Kind {
		case zoo.Started:
			bar = p.AddBar(100,
				mpb.PrependDecorators(decor.Any(func(decor.Statistics) string {
					return message.Load().(string)
				}, decor.WC{W: 50, C: decor.DidentRight})),
				mpb.AppendDecorators(decor.Percentage()),
			)
		case zoo.Progress:
			message.Store(e.Message)
			if bar != nil {
				bar.SetCurrent(int64(e.Percent))
			}
		case zoo.Cleared:
			message.Store("Done")
		}
	}
	finish := func(ok bool) {
		if bar == nil {
			return
		}
		if ok {
			bar.SetCurrent(100)
		} else {
			bar.Abort(false)
		}
	}
	return report, finish
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyModel, "model", "m", "", "classifier model name (default: first registered)")
}
