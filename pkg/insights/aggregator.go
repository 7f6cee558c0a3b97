package insights

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

const (
	diseasesKey    = "insights:diseases"
	dailyKeyPrefix = "insights:reports:"
	seenKeyPrefix  = "insights:seen:"
	dayLayout      = "2006-01-02"
	dailyRetention = 8 * 24 * time.Hour
	seenRetention  = 8 * 24 * time.Hour
)

// Aggregator folds report events into Redis counters read by the dashboard.
type Aggregator struct {
	redis redis.Cmdable
}

func NewAggregator(client redis.Cmdable) *Aggregator {
	return &Aggregator{redis: client}
}

func dailyKey(day time.Time) string {
	return dailyKeyPrefix + day.UTC().Format(dayLayout)
}

// HandleEvent matches kafka.EventHandler. Only report.created is counted and
// each event id is counted once, so redelivered messages are harmless.
func (a *Aggregator) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.EventReportCreated {
		return nil
	}

	if event.ID != "" {
		fresh, err := a.redis.SetNX(ctx, seenKeyPrefix+event.ID, 1, seenRetention).Result()
		if err != nil {
			return fmt.Errorf("failed to mark event: %w", err)
		}
		if !fresh {
			logger.Log.WithField("event_id", event.ID).Debug("Skipping duplicate report event")
			return nil
		}
	}

	created := eventTime(event)
	diseases := stringList(event.Data["diseases"])
	_, err := a.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range diseases {
			pipe.ZIncrBy(ctx, diseasesKey, 1, name)
		}
		key := dailyKey(created)
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, dailyRetention)
		return nil
	})
	if err != nil {
		if event.ID != "" {
			if delErr := a.redis.Del(ctx, seenKeyPrefix+event.ID).Err(); delErr != nil {
				logger.Log.WithError(delErr).WithField("event_id", event.ID).Error("Failed to release event marker, redelivery will be skipped")
			}
		}
		return fmt.Errorf("failed to update insights: %w", err)
	}
	return nil
}

// TopDiseases returns the most frequently predicted diseases.
func (a *Aggregator) TopDiseases(ctx context.Context, limit int) ([]models.DiseaseCount, error) {
	entries, err := a.redis.ZRevRangeWithScores(ctx, diseasesKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.DiseaseCount, 0, len(entries))
	for _, e := range entries {
		name, _ := e.Member.(string)
		out = append(out, models.DiseaseCount{Name: name, Count: int64(e.Score)})
	}
	return out, nil
}

// DailyCounts returns the report count for each day. ok is false when no
// day has a counter, which means the worker has not populated them.
func (a *Aggregator) DailyCounts(ctx context.Context, days []time.Time) (counts []int64, ok bool, err error) {
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, dailyKey(d))
	}
	values, err := a.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, false, err
	}
	counts = make([]int64, len(days))
	for i, v := range values {
		s, isString := v.(string)
		if !isString {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt counter %s: %w", keys[i], err)
		}
		counts[i] = n
		ok = true
	}
	return counts, ok, nil
}

func eventTime(event models.Event) time.Time {
	switch v := event.Data["created_at"].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	if !event.Timestamp.IsZero() {
		return event.Timestamp
	}
	return time.Now().UTC()
}

// stringList accepts both the in-process []string and the []interface{}
// produced by decoding JSON.
func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
