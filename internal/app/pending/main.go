package pending

import (
	"context"
	"os"

	"github.com/airenas/meetscribe/internal/app/transcription"
	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "processPending",
	Short: "Process queued transcription jobs once",
	Long:  `Makes one pass over the transcription queue and exits when the taken jobs finish`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	transcription.SetDefaults()
}

//Execute runs the command
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting processPending")
	res, err := transcription.InitResources()
	cmdapp.CheckOrPanic(err, "Can't init")
	defer res.Close()

	pr, err := transcription.NewProcessorFromResources(res)
	cmdapp.CheckOrPanic(err, "Can't init processor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sc := cmdapp.NewSignalChannel()
		select {
		case <-sc:
			cmdapp.Log.Info("Interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	n, err := pr.ProcessPending(ctx)
	cmdapp.Log.Infof("Processed: %d", n)
	if err != nil {
		cmdapp.Log.Error(err)
		res.Close()
		os.Exit(1)
	}
}
