package crawler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lolcrawler/pkg/config"
	"lolcrawler/pkg/logx"
	"lolcrawler/pkg/metrics"
	"lolcrawler/pkg/persistence"
	"lolcrawler/pkg/queue"
	"lolcrawler/pkg/ratelimit"
	"lolcrawler/pkg/riot"
)

const (
	// refreshSeedLimit bounds how many known players are re-enqueued at startup.
	refreshSeedLimit = 1000
	// apexSeedThreshold triggers apex seeding when the queue is shallower.
	apexSeedThreshold = 100
	// featuredRefreshInterval paces the live featured games loop.
	featuredRefreshInterval = 5 * time.Minute
	// emptyQueueSleep is the worker loop's idle backoff.
	emptyQueueSleep = 30 * time.Second
	// taskSpacer is the pause between processed tasks.
	taskSpacer = 100 * time.Millisecond
	// dedupeEvery is how many processed tasks pass between queue cleanups.
	dedupeEvery = 100
	// maxTaskRetries is how often a failed task is re-enqueued before dropping.
	maxTaskRetries = 3
)

// Engine owns the task queue and the crawl loops. The running flag is the
// sole cancellation signal; every loop polls it and exits cooperatively.
type Engine struct {
	gateway  Gateway
	store    *persistence.Store
	worker   *Worker
	tasks    *queue.TaskQueue
	cfg      *config.Config
	recorder *metrics.Recorder
	logger   *logx.Logger

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

// Status is a point-in-time snapshot of the engine for health reporting.
type Status struct {
	RateLimits   ratelimit.Status
	QueueHigh    int
	QueueMedium  int
	QueueLow     int
	Players      int64
	Matches      int64
	Participants int64
	Running      bool
}

// NewEngine wires the worker, queue, and loops around shared components.
func NewEngine(cfg *config.Config, gateway Gateway, store *persistence.Store, recorder *metrics.Recorder) *Engine {
	return &Engine{
		gateway:  gateway,
		store:    store,
		worker:   NewWorker(gateway, store, recorder),
		tasks:    queue.NewTaskQueue(),
		cfg:      cfg,
		recorder: recorder,
		logger:   logx.NewLogger("engine"),
	}
}

// Start seeds the queue and launches the worker, featured, health, and state
// loops. It returns once the loops are running; a second Start is a logged
// no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.logger.Warn("crawler is already running")
		return
	}
	e.running = true
	e.mu.Unlock()

	e.logger.Info("starting crawler for regions %v", e.cfg.Regions)
	e.seed(ctx)

	e.wg.Add(4)
	go e.workerLoop(ctx)
	go e.featuredLoop(ctx)
	go e.healthLoop(ctx)
	go e.stateLoop(ctx)
}

// Stop flips the running flag; loops observe it on their next tick.
func (e *Engine) Stop() {
	e.logger.Info("stopping crawler")
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Wait blocks until all loops have returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) isRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// seed fills the queue for a fresh run: known players for refresh, discovered
// but unfetched pids for backfill, and apex entry points (live featured games,
// falling back to the master league) when the queue is still shallow.
func (e *Engine) seed(ctx context.Context) {
	refs, err := e.store.PlayersForUpdate(refreshSeedLimit)
	if err != nil {
		e.logger.Error("failed to load players for refresh seeding: %v", err)
	}
	now := time.Now().UTC()
	refresh := make([]queue.Task, 0, len(refs))
	for _, ref := range refs {
		refresh = append(refresh, queue.Task{
			PlayerID:    ref.PID,
			DisplayName: "Player_" + shortPID(ref.PID),
			Region:      ref.Region,
			Priority:    queue.PriorityMedium,
			AddedAt:     now,
		})
	}
	e.tasks.PushBatch(refresh)
	e.logger.Info("seeded %d known players for refresh", len(refresh))

	e.seedBackfill(ctx)

	if e.tasks.TotalSize() < apexSeedThreshold {
		e.seedApex(ctx)
	}

	e.logger.Info("initial queue size: %d", e.tasks.TotalSize())
}

// seedBackfill enqueues participants that were discovered in matches but
// never fetched as players.
func (e *Engine) seedBackfill(_ context.Context) {
	pids, err := e.store.UniqueNewPlayerIDs(e.cfg.Crawler.BatchSize)
	if err != nil {
		e.logger.Error("failed to load backfill pids: %v", err)
		return
	}
	if len(pids) == 0 {
		return
	}

	now := time.Now().UTC()
	tasks := make([]queue.Task, 0, len(pids))
	for _, pid := range pids {
		// Region is unknown for backfilled pids; the first configured
		// region resolves through the continental host either way.
		tasks = append(tasks, queue.Task{
			PlayerID:    pid,
			DisplayName: "Player_" + shortPID(pid),
			Region:      e.cfg.Regions[0],
			Priority:    queue.PriorityLow,
			AddedAt:     now,
		})
	}
	e.tasks.PushBatch(tasks)
	e.logger.Info("seeded %d backfill players from participants", len(tasks))
}

// seedApex enqueues per-region entry points into the match graph. Live
// featured games are preferred; the master league is the fallback when the
// spectator endpoint is unavailable.
func (e *Engine) seedApex(ctx context.Context) {
	for _, region := range e.cfg.Regions {
		if err := e.ingestFeaturedGames(ctx, region); err != nil {
			e.logger.Warn("featured games unavailable for %s, falling back to master league: %v", region, err)
			e.seedFromLeague(ctx, region)
		}
	}
}

// ingestFeaturedGames stores the region's live featured games and enqueues
// their unknown participants as high-priority entry points.
func (e *Engine) ingestFeaturedGames(ctx context.Context, region string) error {
	featured, err := e.gateway.GetFeaturedGames(ctx, region)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var tasks []queue.Task
	for i := range featured.GameList {
		game := &featured.GameList[i]

		blob, err := json.Marshal(game.Participants)
		if err != nil {
			e.logger.Warn("failed to encode participants for game %d: %v", game.GameID, err)
			blob = []byte("[]")
		}
		err = e.store.UpsertActiveGame(&persistence.ActiveGame{
			GameID:        game.GameID,
			GameType:      game.GameType,
			GameStartTime: game.GameStartTime,
			MapID:         game.MapID,
			QueueID:       game.GameQueueConfigID,
			PlatformID:    game.PlatformID,
			GameMode:      game.GameMode,
			Participants:  string(blob),
			DiscoveredAt:  now,
		})
		if err != nil {
			e.logger.Warn("failed to store active game %d: %v", game.GameID, err)
		}

		for _, p := range game.Participants {
			if p.PUUID == "" || p.Bot {
				continue
			}
			exists, err := e.store.PlayerExists(p.PUUID)
			if err != nil {
				e.logger.Warn("failed to check player %s: %v", p.PUUID, err)
			} else if exists {
				continue
			}
			name := p.RiotID
			if name == "" {
				name = "Live_" + shortPID(p.PUUID)
			}
			tasks = append(tasks, queue.Task{
				PlayerID:    p.PUUID,
				DisplayName: name,
				Region:      region,
				Priority:    queue.PriorityHigh,
				AddedAt:     now,
			})
		}
	}
	e.tasks.PushBatch(tasks)
	e.logger.Info("seeded %d players from %d featured games in %s", len(tasks), len(featured.GameList), region)
	return nil
}

// seedFromLeague pulls master league players for one region as high-priority
// entry points.
func (e *Engine) seedFromLeague(ctx context.Context, region string) {
	league, err := e.gateway.GetMasterLeague(ctx, region, riot.QueueRankedSolo5x5)
	if err != nil {
		e.logger.Error("failed to fetch master league for %s: %v", region, err)
		return
	}

	now := time.Now().UTC()
	var tasks []queue.Task
	for _, entry := range league.Entries {
		if len(tasks) >= e.cfg.Crawler.SeedLeagueLimit {
			break
		}
		exists, err := e.store.PlayerExists(entry.PUUID)
		if err != nil {
			e.logger.Warn("failed to check player %s: %v", entry.PUUID, err)
		} else if exists {
			continue
		}
		tasks = append(tasks, queue.Task{
			PlayerID:    entry.PUUID,
			DisplayName: "Master_" + shortPID(entry.PUUID),
			Region:      region,
			Priority:    queue.PriorityHigh,
			AddedAt:     now,
		})
	}
	e.tasks.PushBatch(tasks)
	e.logger.Info("seeded %d master league players from %s", len(tasks), region)
}

// workerLoop dequeues and processes tasks serially until the flag drops.
func (e *Engine) workerLoop(ctx context.Context) {
	defer e.wg.Done()

	processed := 0
	for e.isRunning() {
		task, ok := e.tasks.Pop()
		if !ok {
			e.logger.Debug("queue is empty, waiting for new players")
			e.sleep(ctx, emptyQueueSleep)
			continue
		}

		discoveries, err := e.worker.ProcessPlayer(ctx, &task)
		if err != nil {
			e.logger.Error("failed to process player %s: %v", task.PlayerID, err)
			e.requeueFailed(task)
		} else {
			processed++
			e.recorder.IncTaskProcessed("ok")
			if len(discoveries) > 0 {
				e.tasks.PushBatch(discoveries)
			}
			if processed%dedupeEvery == 0 {
				e.tasks.RemoveDuplicates()
				high, medium, low := e.tasks.Size()
				e.logger.Info("queue status: %d high, %d medium, %d low", high, medium, low)
			}
		}

		e.sleep(ctx, taskSpacer)
	}

	e.logger.Info("worker loop stopped after %d processed players", processed)
}

// requeueFailed re-enqueues a failed task demoted to Low, up to the retry cap.
func (e *Engine) requeueFailed(task queue.Task) {
	if task.Retries >= maxTaskRetries {
		e.recorder.IncTaskProcessed("dropped")
		e.logger.Warn("dropping player %s after %d retries", task.PlayerID, task.Retries)
		return
	}
	task.Retries++
	task.Priority = queue.PriorityLow
	e.tasks.Push(task)
	e.recorder.IncTaskProcessed("retried")
}

// featuredLoop periodically refreshes the live featured games per region so
// new games keep landing in active_games and their players in the queue.
func (e *Engine) featuredLoop(ctx context.Context) {
	defer e.wg.Done()

	for e.isRunning() {
		e.sleep(ctx, featuredRefreshInterval)
		if !e.isRunning() {
			break
		}

		for _, region := range e.cfg.Regions {
			if err := e.ingestFeaturedGames(ctx, region); err != nil {
				e.logger.Warn("featured games refresh failed for %s: %v", region, err)
			}
		}
	}
}

// healthLoop logs queue, store, and rate limit health each interval.
func (e *Engine) healthLoop(ctx context.Context) {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.Crawler.HealthCheckIntervalSeconds) * time.Second
	for e.isRunning() {
		e.sleep(ctx, interval)
		if !e.isRunning() {
			break
		}

		high, medium, low := e.tasks.Size()
		e.recorder.SetQueueDepth("high", high)
		e.recorder.SetQueueDepth("medium", medium)
		e.recorder.SetQueueDepth("low", low)

		matches, _ := e.store.CountMatches()
		players, _ := e.store.CountPlayers()
		participants, _ := e.store.CountParticipants()
		limits := e.gateway.RateLimitStatus()

		e.logger.Info("health: queue %dH/%dM/%dL, db %dM/%dP/%dPt, rate limits %d/%d",
			high, medium, low, matches, players, participants,
			limits.ApplicationTokensPerSecond, limits.ApplicationTokensPerTwoMinutes)
	}
}

// stateLoop persists a fresh CrawlerState row each interval.
func (e *Engine) stateLoop(ctx context.Context) {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.Crawler.StateSaveIntervalSeconds) * time.Second
	for e.isRunning() {
		e.sleep(ctx, interval)
		if !e.isRunning() {
			break
		}

		players, _ := e.store.CountPlayers()
		matches, _ := e.store.CountMatches()
		state := &persistence.CrawlerState{
			TotalPlayersProcessed: players,
			TotalMatchesProcessed: matches,
			QueueSize:             e.tasks.TotalSize(),
			LastUpdate:            time.Now().UTC(),
		}
		if err := e.store.UpdateCrawlerState(state); err != nil {
			e.logger.Error("failed to save crawler state: %v", err)
		} else {
			e.logger.Debug("crawler state saved")
		}
	}
}

// sleep waits for d or until the context is cancelled.
func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// GetStatus snapshots current engine state.
func (e *Engine) GetStatus() Status {
	high, medium, low := e.tasks.Size()
	players, _ := e.store.CountPlayers()
	matches, _ := e.store.CountMatches()
	participants, _ := e.store.CountParticipants()

	return Status{
		Running:      e.isRunning(),
		QueueHigh:    high,
		QueueMedium:  medium,
		QueueLow:     low,
		Players:      players,
		Matches:      matches,
		Participants: participants,
		RateLimits:   e.gateway.RateLimitStatus(),
	}
}
