package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nerrad567/brager-bridge/internal/audit"
	"github.com/nerrad567/brager-bridge/internal/bragerone"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/brager-bridge/internal/param"
)

// CommandClient is the slice of the vendor API the runtime's write path
// depends on. Implemented by *bragerone.Client.
type CommandClient interface {
	CommandParameter(ctx context.Context, devID, pool, parameter string, value any) error
	CommandRaw(ctx context.Context, devID, command string, value any) error
}

// Publisher is the slice of the MQTT client the runtime depends on.
// Implemented by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Recorder receives parameter history. Implemented by *influxdb.Client;
// nil disables recording.
type Recorder interface {
	WriteParameterValue(devID, symbol, pool string, value float64)
	WriteParameterState(devID, symbol, pool, state string)
}

// Options wires a Runtime.
type Options struct {
	Client      CommandClient
	Publisher   Publisher
	Topics      mqtt.Topics
	QoS         byte
	Descriptors []param.Descriptor
	Modules     []ModuleMeta
	Recorder    Recorder

	// Audit receives one entry per command write attempt. Optional.
	Audit audit.Repository

	Logger *logging.Logger
}

// Runtime connects the three live surfaces: vendor parameter updates in,
// MQTT entity state out, MQTT commands in, vendor writes out.
//
// A single dispatch loop consumes updates; command handling runs on the
// MQTT client's handler goroutines and only touches the vendor client,
// so reads and writes never block each other. State is eventually
// consistent: a write's effect is observed through the update stream,
// not assumed.
type Runtime struct {
	client    CommandClient
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
	recorder  Recorder
	audit     audit.Repository
	logger    *logging.Logger

	store *Store
	stats *Stats

	descriptors  map[string]*param.Descriptor
	byRefreshKey map[string][]*param.Descriptor
	modules      map[string]ModuleMeta

	mu      sync.Mutex
	started bool
}

// NewRuntime builds a runtime and its descriptor indexes.
func NewRuntime(opts Options) *Runtime {
	r := &Runtime{
		client:       opts.Client,
		publisher:    opts.Publisher,
		topics:       opts.Topics,
		qos:          opts.QoS,
		recorder:     opts.Recorder,
		audit:        opts.Audit,
		logger:       opts.Logger,
		store:        NewStore(),
		stats:        NewStats(opts.Descriptors),
		descriptors:  make(map[string]*param.Descriptor, len(opts.Descriptors)),
		byRefreshKey: make(map[string][]*param.Descriptor),
		modules:      make(map[string]ModuleMeta, len(opts.Modules)),
	}

	for _, module := range opts.Modules {
		r.modules[module.DevID] = module
	}

	for i := range opts.Descriptors {
		descriptor := &opts.Descriptors[i]
		r.descriptors[descriptor.Key] = descriptor
		for _, key := range descriptor.RefreshKeys() {
			index := descriptor.DevID + "|" + key
			r.byRefreshKey[index] = append(r.byRefreshKey[index], descriptor)
		}
	}

	return r
}

// Stats exposes the activity counters for the diagnostics API.
func (r *Runtime) Stats() *Stats {
	return r.stats
}

// Descriptors returns the descriptors the runtime serves, for diagnostics.
func (r *Runtime) Descriptors() []param.Descriptor {
	descriptors := make([]param.Descriptor, 0, len(r.descriptors))
	for _, descriptor := range r.descriptors {
		descriptors = append(descriptors, *descriptor)
	}
	return descriptors
}

// Modules returns the module metadata the runtime serves, for diagnostics.
func (r *Runtime) Modules() []ModuleMeta {
	modules := make([]ModuleMeta, 0, len(r.modules))
	for _, module := range r.modules {
		modules = append(modules, module)
	}
	return modules
}

// Start publishes discovery configs, seeds entity state from the prime
// snapshot, subscribes to command topics, and launches the update
// dispatch loop. It returns once startup publishing is done; the loop
// runs until ctx is cancelled or updates closes.
func (r *Runtime) Start(ctx context.Context, updates <-chan bragerone.ParamUpdate, snapshot bragerone.PrimeSnapshot) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	if err := r.PublishDiscovery(); err != nil {
		return err
	}

	r.store.IngestSnapshot(snapshot)
	r.publishAllStates()

	if err := r.publisher.Subscribe(r.topics.AllEntityCommands(), r.qos, func(topic string, payload []byte) error {
		return r.HandleCommand(ctx, topic, payload)
	}); err != nil {
		return err
	}

	go r.dispatch(ctx, updates)
	return nil
}

// PublishDiscovery publishes the retained Home Assistant discovery config
// for every descriptor.
func (r *Runtime) PublishDiscovery() error {
	for _, descriptor := range r.descriptors {
		message, err := BuildDiscovery(descriptor, r.modules[descriptor.DevID], r.topics)
		if err != nil {
			return err
		}
		if err := r.publisher.Publish(message.Topic, message.Payload, r.qos, true); err != nil {
			return err
		}
	}
	if r.logger != nil {
		r.logger.Info("published discovery configs", "entities", len(r.descriptors))
	}
	return nil
}

// dispatch is the single update loop: every stream event lands here.
func (r *Runtime) dispatch(ctx context.Context, updates <-chan bragerone.ParamUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			r.handleUpdate(update)
		}
	}
}

// handleUpdate stores one parameter change and refreshes every entity
// listening on that address (own address or mapping input).
func (r *Runtime) handleUpdate(update bragerone.ParamUpdate) {
	r.stats.RecordUpdate()

	changed := r.store.Apply(update)
	if !changed {
		return
	}

	listeners := r.byRefreshKey[update.DevID+"|"+update.AddressKey()]
	for _, descriptor := range listeners {
		r.publishState(descriptor)
	}
}

// publishAllStates publishes the current state of every entity whose raw
// value is known. Called once after snapshot ingestion.
func (r *Runtime) publishAllStates() {
	for _, descriptor := range r.descriptors {
		r.publishState(descriptor)
	}
}

// publishState renders and publishes one entity's retained state, and
// records history when a recorder is attached. Entities without a direct
// address (buttons) publish no state.
func (r *Runtime) publishState(descriptor *param.Descriptor) {
	addressKey := descriptor.AddressKey()
	if addressKey == "" {
		return
	}
	raw, ok := r.store.Value(descriptor.DevID, addressKey)
	if !ok {
		return
	}

	rendered := RenderState(descriptor, raw)
	topic := r.topics.EntityState(descriptor.DevID, descriptor.Symbol)
	if err := r.publisher.Publish(topic, []byte(rendered), r.qos, true); err != nil {
		if r.logger != nil {
			r.logger.Warn("state publish failed",
				"key", descriptor.Key,
				"error", err)
		}
		return
	}
	r.stats.RecordStatePublish()

	r.record(descriptor, raw, rendered)
}

// record forwards one reading to the history recorder. Numeric raws go
// to the value series, everything else to the state series.
func (r *Runtime) record(descriptor *param.Descriptor, raw any, rendered string) {
	if r.recorder == nil {
		return
	}
	pool := ""
	if descriptor.Pool != nil {
		pool = *descriptor.Pool
	}
	switch value := param.CoerceRaw(raw).(type) {
	case int:
		r.recorder.WriteParameterValue(descriptor.DevID, descriptor.Symbol, pool, float64(value))
	case float64:
		r.recorder.WriteParameterValue(descriptor.DevID, descriptor.Symbol, pool, value)
	default:
		r.recorder.WriteParameterState(descriptor.DevID, descriptor.Symbol, pool, rendered)
	}
}

// RenderState converts a raw parameter value into the MQTT state payload
// for a descriptor's platform. Enum raws render as their label, binary
// platforms as ON/OFF, numbers with minimal formatting.
func RenderState(descriptor *param.Descriptor, raw any) string {
	switch descriptor.Platform {
	case param.PlatformBinarySensor, param.PlatformSwitch:
		if truthy(raw) {
			return statePayloadOn
		}
		return statePayloadOff
	case param.PlatformSelect:
		return formatValue(param.EnumRawToDisplay(raw, descriptor.EnumMap))
	default:
		if len(descriptor.RawToLabel) > 0 {
			return formatValue(param.EnumRawToDisplay(raw, descriptor.EnumMap))
		}
		return formatValue(raw)
	}
}

// truthy interprets a raw value as a binary state.
func truthy(raw any) bool {
	switch value := param.CoerceRaw(raw).(type) {
	case bool:
		return value
	case int:
		return value != 0
	case float64:
		return value != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "on", "yes", "enabled", "active":
			return true
		}
		return false
	default:
		return false
	}
}

// formatValue renders a raw value as a state payload string.
func formatValue(raw any) string {
	switch value := raw.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
