package transcription

import (
	"time"

	"github.com/airenas/meetscribe/internal/pkg/audio"
	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/messages"
	"github.com/airenas/meetscribe/internal/pkg/mongo"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/postgres"
	"github.com/airenas/meetscribe/internal/pkg/queue"
	"github.com/airenas/meetscribe/internal/pkg/rabbit"
	"github.com/airenas/meetscribe/internal/pkg/redisq"
	"github.com/airenas/meetscribe/internal/pkg/summary"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/airenas/meetscribe/internal/pkg/utils"
	"github.com/pkg/errors"
)

// SetDefaults sets config defaults shared by the service and the CLI
func SetDefaults() {
	c := cmdapp.Config
	c.SetDefault("store.type", "mongo")
	c.SetDefault("queue.type", "dir")
	c.SetDefault("queue.path", "/data/queue")
	c.SetDefault("queue.redis.key", "transcription:queue")
	c.SetDefault("provider.language", "fr")
	c.SetDefault("provider.speakerLabels", true)
	c.SetDefault("provider.httpRetries", 1)
	c.SetDefault("normalizer.ffmpeg", "ffmpeg")
	c.SetDefault("messageServer.exchangePrefix", "transcription")
	c.SetDefault("summary.url", "https://api.mistral.ai/v1")
	c.SetDefault("summary.model", "mistral-large-latest")
	c.SetDefault("summary.httpRetries", 1)
}

// Resources keeps initialized backends
type Resources struct {
	Store      Store
	Queue      Queue
	Provider   Provider
	Normalizer *audio.Normalizer
	Publisher  messages.Publisher
	// Summarizer is nil when summaries are off
	Summarizer Summarizer
	// Checks are health checks by name
	Checks map[string]func() error

	closers []func()
}

// Close releases all resources
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// InitResources creates backends from config
func InitResources() (*Resources, error) {
	res := &Resources{Checks: map[string]func() error{}}
	var err error
	if err = initStore(res); err != nil {
		res.Close()
		return nil, errors.Wrap(err, "can't init store")
	}
	if err = initQueue(res); err != nil {
		res.Close()
		return nil, errors.Wrap(err, "can't init queue")
	}
	if err = initProvider(res); err != nil {
		res.Close()
		return nil, errors.Wrap(err, "can't init provider")
	}
	res.Normalizer, err = audio.NewNormalizer(cmdapp.Config.GetString("normalizer.ffmpeg"),
		cmdapp.Config.GetStringSlice("normalizer.accept"), cmdapp.Config.GetString("normalizer.workDir"))
	if err != nil {
		res.Close()
		return nil, errors.Wrap(err, "can't init normalizer")
	}
	if err = initPublisher(res); err != nil {
		res.Close()
		return nil, errors.Wrap(err, "can't init publisher")
	}
	if err = initSummarizer(res); err != nil {
		res.Close()
		return nil, errors.Wrap(err, "can't init summarizer")
	}
	return res, nil
}

func initStore(res *Resources) error {
	switch t := cmdapp.Config.GetString("store.type"); t {
	case "mongo":
		sp, err := mongo.NewSessionProvider(cmdapp.Config.GetString("mongo.url"))
		if err != nil {
			return err
		}
		res.closers = append(res.closers, sp.Close)
		res.Checks["mongo"] = sp.Healthy
		res.Store, err = mongo.NewJobStore(sp)
		return err
	case "postgres":
		js, err := postgres.Open(cmdapp.Config.GetString("postgres.dsn"))
		if err != nil {
			return err
		}
		res.closers = append(res.closers, func() { cmdapp.LogIf(js.Close()) })
		res.Checks["postgres"] = js.Healthy
		res.Store = js
		return nil
	default:
		return errors.Errorf("unknown store.type '%s'", t)
	}
}

func initQueue(res *Resources) error {
	maxAge := cmdapp.Config.GetDuration("queue.maxAge")
	switch t := cmdapp.Config.GetString("queue.type"); t {
	case "dir":
		d, err := queue.NewDir(cmdapp.Config.GetString("queue.path"), maxAge)
		if err != nil {
			return err
		}
		res.Queue = d
		return nil
	case "redis":
		q, err := redisq.NewQueue(cmdapp.Config.GetString("queue.redis.url"), cmdapp.Config.GetString("queue.redis.key"), maxAge)
		if err != nil {
			return err
		}
		res.closers = append(res.closers, func() { cmdapp.LogIf(q.Close()) })
		res.Checks["redis"] = q.Healthy
		res.Queue = q
		return nil
	default:
		return errors.Errorf("unknown queue.type '%s'", t)
	}
}

func initProvider(res *Resources) error {
	u, err := utils.GetURLFromConfig("provider.url")
	if err != nil {
		return err
	}
	cl, err := transcriber.NewClient(u, cmdapp.Config.GetString("provider.key"),
		cmdapp.DurationOrDefault("provider.timeout", 30*time.Second), cmdapp.Config.GetInt("provider.httpRetries"))
	if err != nil {
		return err
	}
	res.Provider, err = transcriber.New(cl)
	return err
}

func initPublisher(res *Resources) error {
	url := cmdapp.Config.GetString("messageServer.url")
	if url == "" {
		cmdapp.Log.Info("No messageServer.url, events are not published")
		res.Publisher = messages.NoopPublisher{}
		return nil
	}
	pr, err := rabbit.NewChannelProvider(url, cmdapp.Config.GetString("messageServer.user"),
		cmdapp.Config.GetString("messageServer.pass"))
	if err != nil {
		return err
	}
	res.closers = append(res.closers, pr.Close)
	res.Checks["rabbit"] = pr.Healthy
	res.Publisher = rabbit.NewPublisher(pr, cmdapp.Config.GetString("messageServer.exchangePrefix"))
	return nil
}

func initSummarizer(res *Resources) error {
	key := cmdapp.Config.GetString("summary.key")
	if key == "" {
		cmdapp.Log.Info("No summary.key, summaries are off")
		return nil
	}
	cl, err := summary.NewClient(cmdapp.Config.GetString("summary.url"), key, cmdapp.Config.GetString("summary.model"),
		cmdapp.DurationOrDefault("summary.timeout", 2*time.Minute), cmdapp.Config.GetInt("summary.httpRetries"))
	if err != nil {
		return err
	}
	res.Summarizer = cl
	return nil
}

// DefaultOptions reads default transcription options
func DefaultOptions() persistence.Options {
	return persistence.Options{LanguageCode: cmdapp.Config.GetString("provider.language"),
		SpeakerLabels: cmdapp.Config.GetBool("provider.speakerLabels")}
}

// ProcessorConfig reads processor settings
func ProcessorConfig() Config {
	return Config{
		Interval:     cmdapp.DurationOrDefault("processor.interval", 5*time.Second),
		PollInterval: cmdapp.DurationOrDefault("processor.pollInterval", 3*time.Second),
		MaxWait:      cmdapp.DurationOrDefault("processor.maxWait", time.Hour),
		Workers:      cmdapp.IntOrDefault("processor.workers", 1),
	}
}

// BackOff reads provider retry budget settings
func BackOff() *ExpBackOffProvider {
	return &ExpBackOffProvider{Initial: cmdapp.DurationOrDefault("processor.retry.initial", 5*time.Second),
		Attempts: cmdapp.IntOrDefault("processor.retry.attempts", 3)}
}

// NewProcessorFromResources creates Processor on initialized resources
func NewProcessorFromResources(res *Resources) (*Processor, error) {
	p, err := NewProcessor(res.Store, res.Queue, res.Provider, res.Normalizer, res.Publisher, BackOff(), ProcessorConfig())
	if err != nil {
		return nil, err
	}
	if res.Summarizer != nil {
		p.UseSummarizer(res.Summarizer)
	}
	return p, nil
}
