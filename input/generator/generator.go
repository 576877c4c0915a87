// Package generator provides a synthetic media source node
package generator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pkg/retry"
	"github.com/c360/mediaflow/record"
)

// Type is the registry name of the generator
const Type = "generator"

// KeySequence holds the frame number on every generated record
const KeySequence = "sequence"

// Generator is a source that emits fixed-size frames with presentation
// times derived from the frame rate. Payload buffers come from the record
// pool's buffer cache and go back to it when Process releases the records.
type Generator struct {
	*node.Base

	cfg      Config
	logger   *slog.Logger
	records  *record.Pool
	sched    *retry.Scheduler
	metrics  *generatorMetrics
	interval time.Duration

	limiter  *rate.Limiter
	seq      atomic.Int64
	recycled atomic.Int64
	sentCfg  atomic.Bool
}

// New creates a generator. deps.Records supplies records and buffers; when
// nil a cacheless pool is used.
func New(name string, cfg Config, deps node.Dependencies) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, err := newGeneratorMetrics(deps.Metrics, name)
	if err != nil {
		return nil, errors.Wrap(err, "generator", "New", "metrics registration")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool := deps.Records
	if pool == nil {
		pool = record.NewPool(nil)
	}

	policy := deps.Retry
	if policy == (retry.Config{}) {
		policy = retry.Realtime()
	}

	g := &Generator{
		cfg:     cfg,
		logger:  logger,
		records: pool,
		sched:   retry.NewScheduler(policy,
			retry.WithMetrics(deps.Metrics, "generator_"+name), retry.WithLogger(logger)),
		metrics: m,
	}
	if cfg.FPS > 0 {
		g.interval = time.Duration(float64(time.Second) / cfg.FPS)
	}
	g.Base = node.NewBase(name, node.RoleSource, node.Hooks{Open: g.open})
	return g, nil
}

// Factory builds a generator from a node settings map
func Factory(name string, settings map[string]any, deps node.Dependencies) (node.Node, error) {
	cfg, err := ConfigFromSettings(settings)
	if err != nil {
		return nil, err
	}
	return New(name, cfg, deps)
}

func (g *Generator) open() error {
	g.seq.Store(0)
	g.sentCfg.Store(false)
	if g.cfg.FPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(g.cfg.FPS), 1)
	}
	g.logger.Info("Generator opened",
		"count", g.cfg.Count,
		"fps", g.cfg.FPS,
		"frame_size", g.cfg.FrameSize)
	return nil
}

// Dispatch emits the next frame, preceded by a config record on the first
// call when enabled. Pacing waits are resolved here through node.Retry; once
// Count frames are out it reports ResultEndOfStream.
func (g *Generator) Dispatch(ctx context.Context, _, out *record.List) node.Result {
	if !g.IsOpened() {
		return node.ResultNotOpen
	}

	if g.exhausted(g.seq.Load()) {
		return node.ResultEndOfStream
	}

	if g.limiter != nil {
		res := node.Retry(ctx, g.sched, func() node.Result {
			if g.limiter.Allow() {
				return node.ResultOK
			}
			if g.metrics != nil {
				g.metrics.retries.Inc()
			}
			return node.ResultRetry
		})
		if res != node.ResultOK {
			return res
		}
	}

	// pipelines sharing this source each reserve distinct frame numbers
	n := g.seq.Add(1) - 1
	if g.exhausted(n) {
		return node.ResultEndOfStream
	}

	if g.cfg.ConfigRecord && g.sentCfg.CompareAndSwap(false, true) {
		out.Push(g.configRecord())
	}
	out.Push(g.frame(n))

	if g.metrics != nil {
		g.metrics.frames.Inc()
		g.metrics.bytes.Add(float64(g.cfg.FrameSize))
	}
	return node.ResultOK
}

// Process releases records coming back from downstream, returning their
// buffers to the cache.
func (g *Generator) Process(_ context.Context, in, _ *record.List) node.Result {
	if !g.IsOpened() {
		return node.ResultNotOpen
	}
	n := in.Release()
	g.recycled.Add(int64(n))
	if g.metrics != nil {
		g.metrics.recycled.Add(float64(n))
	}
	return node.ResultOK
}

// Emitted returns the number of frames emitted since Open
func (g *Generator) Emitted() int64 {
	n := g.seq.Load()
	if g.cfg.Count > 0 {
		return min(n, int64(g.cfg.Count))
	}
	return n
}

// Recycled returns the number of records released in Process
func (g *Generator) Recycled() int64 { return g.recycled.Load() }

func (g *Generator) exhausted(n int64) bool {
	return g.cfg.Count > 0 && n >= int64(g.cfg.Count)
}

func (g *Generator) format() record.Format {
	return record.Format{
		MIME: g.cfg.MIME,
		Params: map[string]any{
			"frame_size": g.cfg.FrameSize,
			"fps":        g.cfg.FPS,
		},
	}
}

func (g *Generator) configRecord() *record.Record {
	r := g.records.Get()
	r.SetMediaFormat(g.format())
	r.SetInfo(record.Info{Flags: record.FlagConfig})
	r.Set(record.KeyTraceID, uuid.NewString())
	return r
}

func (g *Generator) frame(n int64) *record.Record {
	size := g.cfg.FrameSize
	r := g.records.GetWithBuffer(size)
	if buf, ok := r.Buffer(); ok {
		if err := buf.SetLen(size); err != nil {
			g.logger.Error("Frame buffer smaller than frame size",
				"size", size, "capacity", buf.Cap(), "error", err)
		} else {
			b := buf.Bytes()
			for i := range b {
				b[i] = byte(n)
			}
		}
	}

	var flags record.Flags
	if g.cfg.KeyInterval > 0 && n%int64(g.cfg.KeyInterval) == 0 {
		flags = flags.Set(record.FlagKeyFrame)
	}
	if g.cfg.Count > 0 && n == int64(g.cfg.Count)-1 {
		flags = flags.Set(record.FlagEndOfStream)
	}

	r.SetInfo(record.Info{
		Offset:           int(n) * size,
		Size:             size,
		PresentationTime: time.Duration(n) * g.interval,
		Flags:            flags,
	})
	r.SetMediaFormat(g.format())
	r.Set(KeySequence, int(n))
	r.Set(record.KeyTraceID, uuid.NewString())
	return r
}
