package redisq

import (
	"context"
	"strconv"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/utils"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const opTimeout = 5 * time.Second

// Queue keeps queued job ids in a redis sorted set scored by enqueue time
type Queue struct {
	rdb    *redis.Client
	key    string
	events string
	maxAge time.Duration
	now    func() time.Time
}

// NewQueue connects to redis by url
func NewQueue(url, key string, maxAge time.Duration) (*Queue, error) {
	if url == "" {
		return nil, errors.New("No redis url provided")
	}
	if key == "" {
		return nil, errors.New("No redis key provided")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrapf(err, "can't parse redis url %s", utils.URLToLog(url))
	}
	cmdapp.Log.Infof("Init redis queue %s at %s", key, utils.URLToLog(url))
	return newQueue(redis.NewClient(opt), key, maxAge), nil
}

func newQueue(rdb *redis.Client, key string, maxAge time.Duration) *Queue {
	return &Queue{rdb: rdb, key: key, events: key + ":events", maxAge: maxAge, now: time.Now}
}

// Close closes redis client
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Healthy pings redis
func (q *Queue) Healthy() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return q.rdb.Ping(ctx).Err()
}

// Enqueue adds id, keeping the old score if it is queued already
func (q *Queue) Enqueue(id string) (string, error) {
	if id == "" {
		return "", errors.New("no id")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	err := q.rdb.ZAddNX(ctx, q.key, redis.Z{Score: score(q.now()), Member: id}).Err()
	if err != nil {
		return "", errors.Wrapf(err, "can't add %s", id)
	}
	if err := q.rdb.Publish(ctx, q.events, id).Err(); err != nil {
		cmdapp.Log.Warnf("Can't publish queue event: %v", err)
	}
	cmdapp.Log.Infof("Queued: %s", id)
	return id, nil
}

// ListPending returns queued ids, oldest first
func (q *Queue) ListPending() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	res, err := q.rdb.ZRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "can't list queue")
	}
	return res, nil
}

// Stale returns ids queued earlier than maxAge ago
func (q *Queue) Stale() ([]string, error) {
	if q.maxAge <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	res, err := q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{Min: "-inf",
		Max: "(" + strconv.FormatFloat(score(q.now().Add(-q.maxAge)), 'f', 0, 64)}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "can't list stale")
	}
	return res, nil
}

// Remove drops id from the queue
func (q *Queue) Remove(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := q.rdb.ZRem(ctx, q.key, id).Err(); err != nil {
		return errors.Wrapf(err, "can't remove %s", id)
	}
	return nil
}

// Watch notifies about enqueued ids published by any instance
func (q *Queue) Watch(ctx context.Context) (<-chan struct{}, error) {
	ps := q.rdb.Subscribe(ctx, q.events)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, errors.Wrap(err, "can't subscribe")
	}
	res := make(chan struct{}, 1)
	go func() {
		defer close(res)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case res <- struct{}{}:
				default:
				}
			}
		}
	}()
	return res, nil
}

// equal scores are ordered by member in redis
func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
