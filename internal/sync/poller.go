package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/automail/internal/model"
)

// Kind names a background refresh job.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindLogs      Kind = "logs"
)

// SyncState represents the current state of a refresh job.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the state of a single job.
type SyncStatus struct {
	Kind     Kind
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a refresh completes.
type SyncResultMsg struct {
	Kind Kind
	// Count is the number of teachers or log entries fetched.
	Count int
	// NewCount is the number of teachers not cached before, or log
	// entries newer than the previous refresh.
	NewCount int
	// Pruned is the number of cached teachers the directory no longer lists.
	Pruned int
	Logs   []model.EmailLog
	Err    error
}

// DirectorySource lists the full teacher directory.
type DirectorySource interface {
	List(ctx context.Context) ([]model.Teacher, error)
}

// LogSource lists send attempts, newest first.
type LogSource interface {
	Logs(ctx context.Context, q model.LogQuery) ([]model.EmailLog, error)
}

// DirectoryCache receives fetched teachers.
type DirectoryCache interface {
	UpsertTeachers(ctx context.Context, teachers []model.Teacher) (int, error)
	PruneTeachers(ctx context.Context, fetchedBefore time.Time) (int, error)
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

type job struct {
	kind    Kind
	trigger chan struct{}
}

// Poller refreshes the cached directory and the send log in the background.
type Poller struct {
	cache    DirectoryCache
	teachers DirectorySource
	logs     LogSource
	logLimit int
	interval time.Duration

	jobs     []job
	statuses map[Kind]*SyncStatus
	lastLog  time.Time
	resultCh chan SyncResultMsg
	stopCh   chan struct{}
	mu       gosync.Mutex
	running  bool
}

// New creates a Poller that refreshes every interval. A non-positive
// interval falls back to two minutes.
func New(cache DirectoryCache, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &Poller{
		cache:    cache,
		interval: interval,
		statuses: make(map[Kind]*SyncStatus),
		resultCh: make(chan SyncResultMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// RegisterDirectory enables the directory job.
func (p *Poller) RegisterDirectory(src DirectorySource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teachers = src
	p.addJob(KindDirectory)
}

// RegisterLogs enables the send log job, fetching at most limit entries.
func (p *Poller) RegisterLogs(src LogSource, limit int) {
	if limit <= 0 {
		limit = model.DefaultLogLimit
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = src
	p.logLimit = limit
	p.addJob(KindLogs)
}

func (p *Poller) addJob(kind Kind) {
	if _, ok := p.statuses[kind]; ok {
		return
	}
	p.jobs = append(p.jobs, job{kind: kind, trigger: make(chan struct{}, 1)})
	p.statuses[kind] = &SyncStatus{Kind: kind, State: SyncIdle}
}

// Start launches one goroutine per registered job and returns a command
// that delivers the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	jobs := make([]job, len(p.jobs))
	copy(jobs, p.jobs)
	p.mu.Unlock()

	for _, j := range jobs {
		go p.poll(j)
	}

	return p.waitForResult()
}

// Stop halts all polling goroutines.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// RefreshAll triggers an immediate refresh of every job.
func (p *Poller) RefreshAll() tea.Cmd {
	p.mu.Lock()
	jobs := make([]job, len(p.jobs))
	copy(jobs, p.jobs)
	p.mu.Unlock()

	for _, j := range jobs {
		select {
		case j.trigger <- struct{}{}:
		default:
			// a refresh is already pending
		}
	}
	return nil
}

// Refresh triggers an immediate refresh of one job.
func (p *Poller) Refresh(kind Kind) tea.Cmd {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, j := range p.jobs {
		if j.kind != kind {
			continue
		}
		select {
		case j.trigger <- struct{}{}:
		default:
		}
	}
	return nil
}

// GetStatuses returns the current status of every registered job, in
// registration order.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.jobs))
	for _, j := range p.jobs {
		statuses = append(statuses, *p.statuses[j.kind])
	}
	return statuses
}

func (p *Poller) poll(j job) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sendResult(p.RunOnce(context.Background(), j.kind))

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sendResult(p.RunOnce(context.Background(), j.kind))
		case <-j.trigger:
			p.sendResult(p.RunOnce(context.Background(), j.kind))
		}
	}
}

// RunOnce performs a single refresh of kind synchronously and returns
// its result.
func (p *Poller) RunOnce(ctx context.Context, kind Kind) SyncResultMsg {
	p.setStatus(kind, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var msg SyncResultMsg
	switch kind {
	case KindDirectory:
		msg = p.refreshDirectory(ctx)
	case KindLogs:
		msg = p.refreshLogs(ctx)
	default:
		msg = SyncResultMsg{Kind: kind, Err: fmt.Errorf("unknown job %q", kind)}
	}

	if msg.Err != nil {
		log.WithFields(log.Fields{"job": kind}).WithError(msg.Err).Warn("refresh failed")
		p.setStatus(kind, SyncError, msg.Err)
	} else {
		p.setStatus(kind, SyncIdle, nil)
	}
	return msg
}

func (p *Poller) refreshDirectory(ctx context.Context) SyncResultMsg {
	p.mu.Lock()
	src := p.teachers
	p.mu.Unlock()

	msg := SyncResultMsg{Kind: KindDirectory}
	if src == nil {
		msg.Err = fmt.Errorf("no directory source registered")
		return msg
	}

	started := time.Now()
	teachers, err := src.List(ctx)
	if err != nil {
		msg.Err = fmt.Errorf("fetching teachers: %w", err)
		return msg
	}
	msg.Count = len(teachers)

	added, err := p.cache.UpsertTeachers(ctx, teachers)
	if err != nil {
		msg.Err = fmt.Errorf("caching teachers: %w", err)
		return msg
	}
	msg.NewCount = added

	// rows upserted above carry a fetch time at or after started, so only
	// teachers missing from this listing are pruned
	pruned, err := p.cache.PruneTeachers(ctx, started)
	if err != nil {
		msg.Err = fmt.Errorf("pruning teachers: %w", err)
		return msg
	}
	msg.Pruned = pruned

	log.WithFields(log.Fields{
		"fetched": msg.Count,
		"new":     added,
		"pruned":  pruned,
	}).Debug("directory refreshed")
	return msg
}

func (p *Poller) refreshLogs(ctx context.Context) SyncResultMsg {
	p.mu.Lock()
	src, limit, since := p.logs, p.logLimit, p.lastLog
	p.mu.Unlock()

	msg := SyncResultMsg{Kind: KindLogs}
	if src == nil {
		msg.Err = fmt.Errorf("no log source registered")
		return msg
	}

	logs, err := src.Logs(ctx, model.LogQuery{Limit: limit})
	if err != nil {
		msg.Err = fmt.Errorf("fetching email logs: %w", err)
		return msg
	}
	msg.Logs = logs
	msg.Count = len(logs)

	latest := since
	for _, l := range logs {
		t := l.SendTime.Time
		if !since.IsZero() && t.After(since) {
			msg.NewCount++
		}
		if t.After(latest) {
			latest = t
		}
	}

	p.mu.Lock()
	p.lastLog = latest
	p.mu.Unlock()
	return msg
}

func (p *Poller) setStatus(kind Kind, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[kind]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a result without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call it after handling a SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
