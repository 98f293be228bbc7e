package transcription

import (
	"context"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/audio"
	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/heptiolabs/healthcheck"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "transcriptionService",
	Short: "Meeting Transcription Service",
	Long:  `HTTP server to accept transcription jobs and a processor to run them through the provider`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8000)
	SetDefaults()
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting transcriptionService")
	res, err := InitResources()
	cmdapp.CheckOrPanic(err, "Can't init")
	defer res.Close()
	res.Normalizer.ReapLock = audio.ReapChildren()

	data := &ServiceData{}
	data.health = healthcheck.NewHandler()
	for k, f := range res.Checks {
		data.health.AddLivenessCheck(k, healthcheck.Async(f, 10*time.Second))
	}
	cmdapp.CheckOrPanic(initHTTPMetrics(data), "Can't init metrics")

	pr, err := NewProcessorFromResources(res)
	cmdapp.CheckOrPanic(err, "Can't init processor")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmdapp.CheckOrPanic(pr.Start(ctx), "Can't start processor")
	defer pr.Stop()

	data.Service, err = NewService(res.Store, res.Queue, pr, DefaultOptions())
	cmdapp.CheckOrPanic(err, "Can't init service")
	data.Trigger = pr
	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}
