package cleansky

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// scheduler enqueues routine ingestion tasks on a per-source cadence. It wakes at a
// fixed rate independent of the per-source intervals, and on each wake enqueues a
// task for every source whose interval has elapsed since its last ingestion.
type scheduler struct {
	intervals map[DataSource]time.Duration
	wake      time.Duration

	enqueue func(Task) (string, error)
	stats   *statsAggregator
	now     func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newScheduler(
	intervals map[DataSource]time.Duration,
	wake time.Duration,
	enqueue func(Task) (string, error),
	stats *statsAggregator,
) *scheduler {
	return &scheduler{
		intervals: intervals,
		wake:      wake,
		enqueue:   enqueue,
		stats:     stats,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// start seeds the per-source clocks and launches the wake loop. Seeding with the
// start instant means the first routine task for a source fires one full interval
// after startup rather than immediately.
func (s *scheduler) start() {
	now := s.now()
	for source := range s.intervals {
		if _, ok := s.stats.lastIngestionTime(source); !ok {
			s.stats.markIngestion(source, now)
		}
	}

	s.wg.Add(1)
	go s.run()
}

// stop exits the wake loop.
func (s *scheduler) stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *scheduler) run() {
	defer s.wg.Done()
	log.Debug().Dur("wake", s.wake).Int("sources", len(s.intervals)).
		Msg("Starting routine ingestion scheduler")

	ticker := time.NewTicker(s.wake)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.checkDue(s.now())
		case <-s.stopChan:
			return
		}
	}
}

// checkDue enqueues a routine task for every source whose interval has elapsed at
// the given instant, and advances that source's clock to the instant.
func (s *scheduler) checkDue(now time.Time) {
	for source, interval := range s.intervals {
		last, ok := s.stats.lastIngestionTime(source)
		if ok && now.Sub(last) < interval {
			continue
		}

		task := Task{
			Source:     source,
			Parameters: defaultParameters(source, now),
			Priority:   PriorityRoutine,
		}
		id, err := s.enqueue(task)
		if err != nil {
			log.Error().Err(err).Str("source", source.String()).
				Msg("Failed to enqueue routine ingestion task")
			continue
		}
		s.stats.markIngestion(source, now)
		log.Debug().Str("task_id", id).Str("source", source.String()).
			Msg("Enqueued routine ingestion task")
	}
}
