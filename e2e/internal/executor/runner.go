package executor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentra-safety/sentra-platform/e2e/internal/checker"
	"github.com/sentra-safety/sentra-platform/e2e/internal/observer"
	"github.com/sentra-safety/sentra-platform/e2e/internal/reporter"
	"github.com/sentra-safety/sentra-platform/e2e/internal/scenario"
)

// Runner orchestrates test scenario execution against a running platform:
// the monitor and guardian agents, an MQTT broker, Redis and Postgres.
type Runner struct {
	mqttBroker  string
	redisHost   string
	postgresDSN string
	logger      *log.Logger

	obs             *observer.Observer
	player          *MQTTPlayer
	redisClient     *redis.Client
	postgresChecker *checker.PostgresChecker
}

// NewRunner creates a test runner. postgresDSN may be empty, in which case
// postgres expectations fail with a clear reason instead of connecting.
func NewRunner(mqttBroker, redisHost, postgresDSN string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		mqttBroker:  mqttBroker,
		redisHost:   redisHost,
		postgresDSN: postgresDSN,
		logger:      logger,
	}
}

// Run executes a test scenario and returns its result and timeline
func (r *Runner) Run(ctx context.Context, s *scenario.Scenario) (*scenario.TestResult, []reporter.TimelineEvent, error) {
	r.logger.Printf("Starting scenario: %s", s.Name)
	r.logger.Printf("Description: %s", s.Description)
	r.logger.Printf("Device: %s (user %s)", s.Device.DeviceID, s.Device.UserID)

	if err := r.initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialization failed: %w", err)
	}
	defer r.cleanup()

	if err := r.obs.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start observer: %w", err)
	}

	// Give agents a moment to settle before traffic starts
	time.Sleep(2 * time.Second)

	startTime := time.Now()
	var timeline []reporter.TimelineEvent

	timeline = append(timeline, r.play(startTime, s)...)

	for _, wait := range s.Wait {
		WaitUntil(startTime, wait.Time)
		elapsed := GetElapsed(startTime)
		r.logger.Printf("[%.2fs] Wait: %s", elapsed, wait.Description)

		timeline = append(timeline, reporter.TimelineEvent{
			Elapsed:     elapsed,
			Layer:       "wait",
			Description: wait.Description,
			IsCheck:     false,
		})
	}

	results, checkEvents := r.checkExpectations(ctx, startTime, s)
	timeline = append(timeline, checkEvents...)

	// Timeline items are appended per phase, re-sort into wall-clock order
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Elapsed < timeline[j].Elapsed
	})

	passedCount := 0
	failedCount := 0
	for _, result := range results {
		if result.Passed {
			passedCount++
		} else {
			failedCount++
		}
	}

	testResult := &scenario.TestResult{
		Scenario:     s,
		StartTime:    startTime,
		EndTime:      time.Now(),
		Passed:       failedCount == 0,
		PassedCount:  passedCount,
		FailedCount:  failedCount,
		Expectations: results,
	}

	return testResult, timeline, nil
}

// playbackItem is one scheduled publish, sample or command
type playbackItem struct {
	time   int
	sample *scenario.SensorSample
	cmd    *scenario.CommandEvent
}

// play publishes all samples and commands in wall-clock order
func (r *Runner) play(startTime time.Time, s *scenario.Scenario) []reporter.TimelineEvent {
	var items []playbackItem
	for i := range s.Samples {
		items = append(items, playbackItem{time: s.Samples[i].Time, sample: &s.Samples[i]})
	}
	for i := range s.Commands {
		items = append(items, playbackItem{time: s.Commands[i].Time, cmd: &s.Commands[i]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].time < items[j].time
	})

	var timeline []reporter.TimelineEvent

	for _, item := range items {
		WaitUntil(startTime, item.time)
		elapsed := GetElapsed(startTime)

		var layer, desc string
		var err error

		if item.sample != nil {
			layer = "sensor"
			desc = fmt.Sprintf("%s (%s)", item.sample.Sensor, item.sample.Description)
			err = r.player.PublishSample(s.Device, *item.sample)
		} else {
			layer = "command"
			desc = fmt.Sprintf("%s %s (%s)", item.cmd.Channel, item.cmd.Action, item.cmd.Description)
			err = r.player.PublishCommand(s.Device, *item.cmd)
		}

		r.logger.Printf("[%.2fs] Publishing: %s", elapsed, desc)
		if err != nil {
			r.logger.Printf("[%.2fs] Publish failed: %v", elapsed, err)
			desc = fmt.Sprintf("%s [publish failed: %v]", desc, err)
		}

		timeline = append(timeline, reporter.TimelineEvent{
			Elapsed:     elapsed,
			Layer:       layer,
			Description: desc,
			IsCheck:     false,
		})
	}

	return timeline
}

func (r *Runner) checkExpectations(ctx context.Context, startTime time.Time, s *scenario.Scenario) ([]scenario.ExpectationResult, []reporter.TimelineEvent) {
	type layerExp struct {
		layer string
		exp   scenario.Expectation
	}

	var all []layerExp
	for layer, exps := range s.Expectations {
		for _, exp := range exps {
			all = append(all, layerExp{layer, exp})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].exp.Time < all[j].exp.Time
	})

	var results []scenario.ExpectationResult
	var timeline []reporter.TimelineEvent

	for _, le := range all {
		WaitUntil(startTime, le.exp.Time)
		elapsed := GetElapsed(startTime)

		checkDesc := le.exp.Topic
		if checkDesc == "" && le.exp.RedisKey != "" {
			checkDesc = fmt.Sprintf("redis %s.%s", le.exp.RedisKey, le.exp.RedisField)
		}
		if checkDesc == "" && le.exp.PostgresQuery != "" {
			checkDesc = "postgres query"
		}

		r.logger.Printf("[%.2fs] Checking expectation: %s - %s", elapsed, le.layer, checkDesc)

		var passed bool
		var reason string
		var actual interface{}

		switch {
		case le.exp.PostgresQuery != "":
			passed, reason, actual = r.checkPostgres(le.exp)
		case le.exp.RedisKey != "":
			passed, reason, actual = checker.CheckRedisExpectation(ctx, r.redisClient, le.exp)
		default:
			passed, reason, actual = checker.CheckExpectation(le.exp, r.obs.Messages())
		}

		results = append(results, scenario.ExpectationResult{
			Layer:         le.layer,
			Expectation:   le.exp,
			Passed:        passed,
			Reason:        reason,
			ActualTopic:   le.exp.Topic,
			ActualPayload: actual,
		})

		if passed {
			r.logger.Printf("[%.2fs] ✓ PASS", elapsed)
		} else {
			r.logger.Printf("[%.2fs] ✗ FAIL: %s", elapsed, reason)
		}

		timeline = append(timeline, reporter.TimelineEvent{
			Elapsed:     elapsed,
			Layer:       le.layer,
			Description: checkDesc,
			Success:     passed,
			IsCheck:     true,
		})
	}

	return results, timeline
}

func (r *Runner) checkPostgres(exp scenario.Expectation) (bool, string, interface{}) {
	if r.postgresChecker == nil {
		return false, "postgres checker not configured (missing DSN)", nil
	}

	if err := r.postgresChecker.CheckQuery(exp.PostgresQuery, exp.PostgresExpected); err != nil {
		return false, fmt.Sprintf("postgres check failed: %v", err), nil
	}

	return true, "", exp.PostgresExpected
}

func (r *Runner) initialize() error {
	r.obs = observer.NewObserver(r.mqttBroker, r.logger)

	player, err := NewMQTTPlayer(r.mqttBroker, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create MQTT player: %w", err)
	}
	r.player = player

	r.redisClient = redis.NewClient(&redis.Options{
		Addr: r.redisHost,
	})
	if err := r.redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	r.logger.Printf("Connected to Redis at %s", r.redisHost)

	if r.postgresDSN != "" {
		postgresChecker, err := checker.NewPostgresChecker(r.postgresDSN, r.logger)
		if err != nil {
			return fmt.Errorf("failed to create Postgres checker: %w", err)
		}
		r.postgresChecker = postgresChecker
	}

	return nil
}

func (r *Runner) cleanup() {
	if r.obs != nil {
		r.obs.Stop()
	}
	if r.player != nil {
		r.player.Close()
	}
	if r.redisClient != nil {
		r.redisClient.Close()
	}
	if r.postgresChecker != nil {
		r.postgresChecker.Close()
	}
}

// SaveCapture saves the MQTT capture to a file
func (r *Runner) SaveCapture(filename string) error {
	if r.obs == nil {
		return fmt.Errorf("observer not initialized")
	}
	return r.obs.SaveCapture(filename)
}
