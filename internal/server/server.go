package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/zeusync/drivesim/internal/config"
	"github.com/zeusync/drivesim/internal/core/events/bus"
	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/internal/core/render"
	"github.com/zeusync/drivesim/internal/core/vehicle"
	"github.com/zeusync/drivesim/internal/core/world"
	"github.com/zeusync/drivesim/internal/storage"
	"github.com/zeusync/drivesim/pkg/generic"
)

const (
	eventSource       = "server"
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

//go:embed static/index.html
var indexHTML []byte

// recorders are reused across frames; Ops copies out what a frame keeps.
var recorders = generic.NewPool(render.NewRecorder, (*render.Recorder).Reset)

// Server runs the tick loop and streams every tick to websocket viewers, which in
// turn send key presses and brain commands back.
type Server struct {
	cfg    *config.Config
	store  storage.BrainStore
	logger log.Log
	events bus.EventBus
	sub    bus.Subscription

	mu    sync.Mutex // guards world and focus
	world *world.World
	focus string

	evMu    sync.Mutex
	pending []EventFrame

	hub      *wsHub
	upgrader websocket.Upgrader
	running  atomic.Bool
	addr     atomic.Value
}

func New(cfg *config.Config, w *world.World, store storage.BrainStore, logger log.Log, events bus.EventBus) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger.With(log.String("component", "server")),
		events:   events,
		world:    w,
		hub:      newHub(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	sub, err := events.Subscribe(bus.Wildcard, s.collect)
	if err != nil {
		return nil, fmt.Errorf("subscribe to events: %w", err)
	}
	s.sub = sub
	events.AddObserver(s)
	return s, nil
}

func (s *Server) OnPublish(string, bus.Event) {}

// OnDelivered reports failing event handlers.
func (s *Server) OnDelivered(eventType string, handlers int, err error, _ int64) {
	if err != nil {
		s.logger.Warn("Event delivery failed", log.String("event", eventType), log.Int("handlers", handlers), log.Error(err))
	}
}

// collect queues every bus event for the next frame. It runs on the publisher's
// goroutine, which may hold mu.
func (s *Server) collect(e bus.Event) error {
	s.evMu.Lock()
	s.pending = append(s.pending, EventFrame{Type: e.Type(), Source: e.Source(), Data: e.Data()})
	s.evMu.Unlock()
	return nil
}

func (s *Server) drainEvents() []EventFrame {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Handler serves the viewer page, the websocket stream and the health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})
	return mux
}

// Run restores the stored brain, then serves viewers and ticks the world at the
// configured rate until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	defer s.running.Store(false)

	if err := s.RestoreBrain(ctx); err != nil {
		s.logger.Warn("Stored brain not loaded", log.String("brain", s.cfg.Storage.Brain), log.Error(err))
	}

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr, err)
	}
	s.addr.Store(ln.Addr().String())
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: readHeaderTimeout}
	s.logger.Info("Server started",
		log.String("addr", ln.Addr().String()),
		log.Int("tick_rate", s.cfg.Simulation.TickRate))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.loop(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.logger.Info("Server stopped")
	return err
}

// Addr is the listening address once Run has started.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

// Close detaches the server from the event bus.
func (s *Server) Close() error {
	s.events.RemoveObserver(s)
	return s.events.Unsubscribe(s.sub)
}

func (s *Server) loop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.Simulation.TickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				s.logger.Warn("Tick failed", log.Error(err))
			}
		}
	}
}

// Tick advances the world once and broadcasts the resulting frame.
func (s *Server) Tick() error {
	s.mu.Lock()
	stepErr := s.world.Step()
	frame := s.frameLocked()
	s.mu.Unlock()

	frame.Events = s.drainEvents()
	b, err := json.Marshal(frame)
	if err != nil {
		return errors.Join(stepErr, fmt.Errorf("encode frame: %w", err))
	}
	s.hub.broadcast(b)
	return stepErr
}

func (s *Server) frameLocked() Frame {
	scene := recorders.Get()
	defer recorders.Put(scene)
	s.world.Render(scene, s.focus)

	frame := Frame{
		Type:     MessageFrame,
		Tick:     s.world.Tick(),
		Stats:    s.world.Stats(),
		Vehicles: s.world.States(),
		Ops:      scene.Ops(),
		View: View{
			SceneWidth:   s.cfg.Server.ViewWidth,
			NetworkWidth: s.cfg.Server.NetworkWidth,
			Height:       s.cfg.Server.ViewHeight,
		},
	}
	if v := s.world.Followed(s.focus); v != nil {
		frame.Focus = v.ID()
		if net := v.Network(); net != nil {
			panel := recorders.Get()
			defer recorders.Put(panel)
			render.DrawNetwork(panel, net, geometry.Box{
				Max: geometry.Point{X: s.cfg.Server.NetworkWidth, Y: s.cfg.Server.ViewHeight},
			})
			frame.Network = panel.Ops()
		}
	}
	return frame
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}
	c := newClient(conn)
	limiter := rate.NewLimiter(rate.Limit(s.cfg.Server.InputRate), s.cfg.Server.InputBurst)

	s.hub.add(c)
	s.logger.Info("Viewer connected", log.String("remote", r.RemoteAddr), log.Int("viewers", s.hub.len()))
	defer func() {
		s.hub.remove(c)
		c.close()
		s.logger.Info("Viewer disconnected", log.String("remote", r.RemoteAddr), log.Int("viewers", s.hub.len()))
	}()

	ctx := r.Context()
	go func() {
		defer c.close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !limiter.Allow() {
				c.reply(encodeReply(Reply{Type: MessageError, Error: ErrRateLimited.Error()}))
				continue
			}
			if reply := s.handleMessage(ctx, msg); reply != nil {
				c.reply(reply)
			}
		}
	}()

	c.writeLoop()
}

func (s *Server) handleMessage(ctx context.Context, raw []byte) []byte {
	var m ClientMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return encodeReply(Reply{Type: MessageError, Error: fmt.Errorf("%w: %w", ErrInvalidMessage, err).Error()})
	}

	var err error
	switch m.Type {
	case MessageKey:
		if err = s.HandleKey(m.Key, m.Down); err == nil {
			return nil
		}
	case MessageSave:
		err = s.SaveBrain(ctx, m.Vehicle)
	case MessageDiscard:
		err = s.DiscardBrain(ctx)
	case MessageRestart:
		err = s.Restart(ctx)
	case MessageFocus:
		err = s.Focus(m.Vehicle)
	default:
		err = fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
	if err != nil {
		s.logger.Debug("Command failed", log.String("type", m.Type), log.Error(err))
		return encodeReply(Reply{Type: MessageError, Request: m.Type, Error: err.Error()})
	}
	return encodeReply(Reply{Type: MessageAck, Request: m.Type})
}

func encodeReply(r Reply) []byte {
	b, _ := json.Marshal(r)
	return b
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status  string              `json:"status"`
		Viewers int                 `json:"viewers"`
		Stats   world.Stats         `json:"stats"`
		Events  bus.EventBusMetrics `json:"events"`
	}{Status: "ok", Viewers: s.hub.len(), Stats: s.Stats(), Events: s.events.GetMetrics()})
}

// HandleKey presses or releases a key on the manual fleet.
func (s *Server) HandleKey(name string, down bool) error {
	key, ok := vehicle.ParseKey(name)
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidMessage, name)
	}
	s.mu.Lock()
	keys := s.world.Keyboard()
	s.mu.Unlock()
	if keys == nil {
		return ErrNoKeyboard
	}
	keys.HandleKey(vehicle.KeyEvent{Key: key, Down: down})
	return nil
}

// SaveBrain stores the network of vehicle id, or of the followed vehicle when id
// is empty, under the configured brain name.
func (s *Server) SaveBrain(ctx context.Context, id string) error {
	s.mu.Lock()
	v := s.world.Followed(s.focus)
	if id != "" {
		var err error
		if v, err = s.world.Vehicle(id); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if v == nil || v.Network() == nil {
		s.mu.Unlock()
		return ErrNoNetwork
	}
	id = v.ID()
	snap := v.Network().Snapshot()
	fp := v.Network().Fingerprint()
	s.mu.Unlock()

	name := s.cfg.Storage.Brain
	if err := s.store.Save(ctx, name, snap); err != nil {
		return err
	}
	s.logger.Info("Brain saved", log.String("brain", name), log.String("vehicle", id), log.Uint64("fingerprint", fp))
	s.publish(bus.BrainSaved, bus.BrainData{Name: name, VehicleID: id, Fingerprint: fp})
	return nil
}

// DiscardBrain removes the stored brain.
func (s *Server) DiscardBrain(ctx context.Context) error {
	name := s.cfg.Storage.Brain
	if err := s.store.Discard(ctx, name); err != nil {
		return err
	}
	s.logger.Info("Brain discarded", log.String("brain", name))
	s.publish(bus.BrainDiscarded, bus.BrainData{Name: name})
	return nil
}

// Restart rebuilds the world and loads the stored brain, if any, into the new fleet.
func (s *Server) Restart(ctx context.Context) error {
	s.mu.Lock()
	err := s.world.Reset()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.RestoreBrain(ctx)
}

// RestoreBrain loads the stored brain into every AI vehicle. A missing brain is
// not an error.
func (s *Server) RestoreBrain(ctx context.Context) error {
	name := s.cfg.Storage.Brain
	snap, err := s.store.Load(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("No stored brain", log.String("brain", name))
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	n, err := s.world.LoadBrain(snap)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("load brain %q: %w", name, err)
	}
	s.logger.Info("Brain loaded", log.String("brain", name), log.Int("vehicles", n))
	s.publish(bus.BrainLoaded, bus.BrainData{Name: name, Vehicles: n})
	return nil
}

// Focus points the camera at vehicle id. An empty id follows the first fleet vehicle.
func (s *Server) Focus(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if _, err := s.world.Vehicle(id); err != nil {
			return err
		}
	}
	s.focus = id
	return nil
}

func (s *Server) Stats() world.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Stats()
}

// Viewers is the number of connected websocket clients.
func (s *Server) Viewers() int { return s.hub.len() }

func (s *Server) publish(typ string, data any) {
	if err := s.events.Publish(bus.NewEvent(typ, eventSource, data)); err != nil {
		s.logger.Warn("Event handler failed", log.String("event", typ), log.Error(err))
	}
}
