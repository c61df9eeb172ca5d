// Package pipeline wires detections to attendance: identification,
// vote smoothing, presence tracking and gateway dispatch.
//
// All presence state is owned by the tick loop goroutine. Gateway calls
// run in background goroutines so a slow backend cannot stall the loop;
// their outcomes land on a channel and are folded back into state at the
// start of the next tick. A failed call changes nothing, so the same
// transition fires again on the next qualifying tick.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/eventlog"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/identify"
	"github.com/kozaktomas/face-attendance/internal/presence"
	"github.com/kozaktomas/face-attendance/internal/snapshot"
	"github.com/kozaktomas/face-attendance/internal/unknowns"
)

const resultBuffer = 64

// SightingRecorder persists unknown-visitor sightings for later review.
type SightingRecorder interface {
	RecordUnknownSighting(ctx context.Context, fp string, emb gallery.Embedding, snapshotRef string, at time.Time) error
}

// PersonResolver maps gallery labels to attendance backend person IDs.
// attendance.Directory is the production implementation.
type PersonResolver interface {
	FindByName(ctx context.Context, name string) (string, error)
}

// Options configures the processor.
type Options struct {
	Rules      presence.Rules
	MinBoxSize float64
	EventLimit int // recent events kept for the ops API
}

// Processor runs the per-tick attendance pipeline.
type Processor struct {
	opts       Options
	identifier *identify.Identifier
	voter      *identify.Voter
	resolver   *unknowns.Resolver
	store      *presence.Store

	gateway   attendance.Gateway
	directory PersonResolver
	snapshots snapshot.Store   // optional
	events    *eventlog.Writer // optional
	sightings SightingRecorder // optional

	inFlight map[presence.Key]struct{}
	results  chan toggleOutcome

	mu     sync.RWMutex // guards store and recent for ops API readers
	recent []Event
}

// Event is one confirmed attendance transition.
type Event struct {
	At     time.Time     `json:"at"`
	Name   string        `json:"name"`
	Kind   presence.Kind `json:"kind"`
	Action string        `json:"action"`
	Status string        `json:"status"`
	Visits int           `json:"visits"`
}

type toggleOutcome struct {
	key         presence.Key
	act         presence.Action
	at          time.Time
	name        string
	snapshotRef string
	result      *attendance.ToggleResult
	err         error
}

// observation is what one tick saw for one entity.
type observation struct {
	embedding gallery.Embedding
	crop      []byte
}

func NewProcessor(
	opts Options,
	identifier *identify.Identifier,
	voter *identify.Voter,
	resolver *unknowns.Resolver,
	gateway attendance.Gateway,
	directory PersonResolver,
	snapshots snapshot.Store,
	events *eventlog.Writer,
	sightings SightingRecorder,
) *Processor {
	if opts.EventLimit <= 0 {
		opts.EventLimit = 100
	}
	return &Processor{
		opts:       opts,
		identifier: identifier,
		voter:      voter,
		resolver:   resolver,
		store:      presence.NewStore(),
		gateway:    gateway,
		directory:  directory,
		snapshots:  snapshots,
		events:     events,
		sightings:  sightings,
		inFlight:   make(map[presence.Key]struct{}),
		results:    make(chan toggleOutcome, resultBuffer),
	}
}

// ProcessTick runs one full pipeline pass over a detector frame.
func (p *Processor) ProcessTick(ctx context.Context, tick *detector.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := tick.CapturedAt
	p.drainOutcomes()

	seen := p.resolveEntities(tick)

	// Observe seen entities first so a re-identified entity cannot be
	// marked missing in the same tick.
	for key, obs := range seen {
		st := p.store.Get(key)
		if act := p.opts.Rules.Observe(st, now, true); act != presence.ActionNone {
			p.dispatch(ctx, key, act, now, obs)
		}
	}
	p.store.Range(func(key presence.Key, st *presence.State) {
		if _, ok := seen[key]; ok {
			return
		}
		if act := p.opts.Rules.Observe(st, now, false); act != presence.ActionNone {
			p.dispatch(ctx, key, act, now, observation{})
		}
	})

	for _, key := range p.store.Sweep(p.opts.Rules, now) {
		log.Printf("evicted stale entity %s", key)
	}
}

// resolveEntities turns raw detections into the set of entities seen this
// tick. Detections smaller than the minimum box size vote Unknown for
// their slot but are never identified or fingerprinted.
func (p *Processor) resolveEntities(tick *detector.Tick) map[presence.Key]observation {
	seen := make(map[presence.Key]observation)
	active := make(map[int]struct{}, len(tick.Detections))

	for _, det := range tick.Detections {
		if min(det.Box.Width(), det.Box.Height()) < p.opts.MinBoxSize {
			// Too small to identify: the slot votes Unknown but keeps
			// its history, so a face dipping briefly below the
			// threshold does not have to re-stabilize from scratch.
			// Sub-minimum faces never resolve to an entity.
			active[det.Index] = struct{}{}
			p.voter.Vote(det.Index, identify.Unknown)
			continue
		}
		active[det.Index] = struct{}{}

		decision := p.identifier.Identify(det.Embedding)
		label := p.voter.Vote(det.Index, decision.Label)

		var key presence.Key
		if label == identify.Unknown {
			key = presence.Key{Kind: presence.KindUnknown, ID: p.resolver.Resolve(det.Embedding)}
		} else {
			key = presence.Key{Kind: presence.KindKnown, ID: label}
		}
		// Two detections can resolve to the same entity; the first wins.
		if _, ok := seen[key]; !ok {
			seen[key] = observation{embedding: det.Embedding, crop: det.Crop}
		}
	}

	p.voter.Retain(active)
	return seen
}

// dispatch starts the gateway call for a confirmed transition. The
// in-flight guard ensures at most one outstanding call per entity.
func (p *Processor) dispatch(ctx context.Context, key presence.Key, act presence.Action, at time.Time, obs observation) {
	if _, ok := p.inFlight[key]; ok {
		return
	}
	p.inFlight[key] = struct{}{}

	go func() {
		out := toggleOutcome{key: key, act: act, at: at}
		switch key.Kind {
		case presence.KindKnown:
			out.name = key.ID
			out.result, out.err = p.toggleKnown(ctx, key.ID, at)
		case presence.KindUnknown:
			out.name = "unknown:" + fingerprint.Prefix(key.ID)
			out.snapshotRef = p.uploadSnapshot(ctx, key.ID, act, at, obs.crop)
			out.result, out.err = p.gateway.ToggleUnknown(ctx, key.ID, at, out.snapshotRef)
			if out.err == nil && p.sightings != nil {
				if err := p.sightings.RecordUnknownSighting(ctx, key.ID, obs.embedding, out.snapshotRef, at); err != nil {
					log.Printf("could not record unknown sighting %s: %v", out.name, err)
				}
			}
		}
		p.results <- out
	}()
}

func (p *Processor) toggleKnown(ctx context.Context, label string, at time.Time) (*attendance.ToggleResult, error) {
	personID, err := p.directory.FindByName(ctx, label)
	if err != nil {
		return nil, err
	}
	return p.gateway.ToggleKnown(ctx, personID, at)
}

// uploadSnapshot stores the face crop for an unknown check-in. Failures
// are logged and the toggle proceeds without a reference.
func (p *Processor) uploadSnapshot(ctx context.Context, fp string, act presence.Action, at time.Time, crop []byte) string {
	if p.snapshots == nil || act != presence.ActionCheckIn || len(crop) == 0 {
		return ""
	}
	ref, err := p.snapshots.Upload(ctx, fp, at, crop)
	if err != nil {
		log.Printf("could not upload snapshot for unknown:%s: %v", fingerprint.Prefix(fp), err)
		return ""
	}
	return ref
}

// drainOutcomes folds finished gateway calls back into presence state.
func (p *Processor) drainOutcomes() {
	for {
		select {
		case out := <-p.results:
			delete(p.inFlight, out.key)
			if out.err != nil {
				log.Printf("toggle %s for %s failed: %v", out.act, out.name, out.err)
				continue
			}
			st := p.store.Get(out.key)
			p.opts.Rules.Commit(st, out.act, out.at)
			p.record(out)
		default:
			return
		}
	}
}

func (p *Processor) record(out toggleOutcome) {
	ev := Event{
		At:     out.at,
		Name:   out.name,
		Kind:   out.key.Kind,
		Action: out.act.String(),
	}
	if out.result != nil {
		ev.Status = out.result.Status
		ev.Visits = out.result.Visits
	}

	p.recent = append(p.recent, ev)
	if len(p.recent) > p.opts.EventLimit {
		p.recent = p.recent[len(p.recent)-p.opts.EventLimit:]
	}
	log.Printf("%s %s (visits %d)", ev.Name, ev.Action, ev.Visits)

	if p.events != nil {
		if err := p.events.Append(ev.Name, ev.At, ev.Action); err != nil {
			log.Printf("could not append event log: %v", err)
		}
	}
}

// Flush blocks until all in-flight gateway calls finished and their
// outcomes are committed. Used on shutdown and by replays.
func (p *Processor) Flush(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		p.drainOutcomes()
		pending := len(p.inFlight)
		p.mu.Unlock()
		if pending == 0 || time.Now().After(deadline) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// EntityView is one tracked entity for the ops API.
type EntityView struct {
	Name       string        `json:"name"`
	Kind       presence.Kind `json:"kind"`
	Phase      string        `json:"phase"`
	LastSeenAt time.Time     `json:"last_seen_at"`
	EnteredAt  time.Time     `json:"entered_at,omitzero"`
}

// Presence returns a snapshot of all tracked entities.
func (p *Processor) Presence() []EntityView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	views := make([]EntityView, 0, p.store.Len())
	p.store.Range(func(key presence.Key, st *presence.State) {
		name := key.ID
		if key.Kind == presence.KindUnknown {
			name = "unknown:" + fingerprint.Prefix(key.ID)
		}
		views = append(views, EntityView{
			Name:       name,
			Kind:       key.Kind,
			Phase:      st.Phase(),
			LastSeenAt: st.LastSeenAt,
			EnteredAt:  st.EnteredAt,
		})
	})
	return views
}

// RecentEvents returns the most recent confirmed events, newest last.
func (p *Processor) RecentEvents() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.recent))
	copy(out, p.recent)
	return out
}
