package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/brager-bridge/internal/audit"
	"github.com/nerrad567/brager-bridge/internal/param"
)

// HandleCommand processes one inbound MQTT command. The payload is parsed
// per the entity's platform, validated and transformed by the write
// preparer, and dispatched on the selected vendor route. Any failure is
// returned (and logged by the MQTT handler wrapper); the command is not
// retried. State catches up through the update stream once the vendor
// applies the write.
func (r *Runtime) HandleCommand(ctx context.Context, topic string, payload []byte) error {
	devID, symbol, ok := r.topics.ParseEntityCommand(topic)
	if !ok {
		return fmt.Errorf("%w: unparseable command topic %q", ErrUnknownEntity, topic)
	}

	descriptor, ok := r.descriptors[devID+":"+symbol]
	if !ok {
		return fmt.Errorf("%w: %s:%s", ErrUnknownEntity, devID, symbol)
	}

	display, err := parseCommandPayload(descriptor, payload)
	if err != nil {
		r.stats.RecordWrite(false)
		r.logWrite(ctx, descriptor, payload, "", err)
		return err
	}

	route, err := r.write(ctx, descriptor, display)
	if err != nil {
		r.stats.RecordWrite(false)
		r.logWrite(ctx, descriptor, payload, route, err)
		if r.logger != nil {
			r.logger.Error("command write failed",
				"key", descriptor.Key,
				"error", err)
		}
		return err
	}

	r.stats.RecordWrite(true)
	r.logWrite(ctx, descriptor, payload, route, nil)
	if r.logger != nil {
		r.logger.Debug("command write dispatched",
			"key", descriptor.Key,
			"value", display,
			"route", route)
	}
	return nil
}

// logWrite records one write attempt in the command log. Best effort: a
// failed insert never fails the command itself.
func (r *Runtime) logWrite(ctx context.Context, descriptor *param.Descriptor, payload []byte, route param.Route, writeErr error) {
	if r.audit == nil {
		return
	}

	outcome := "ok"
	if writeErr != nil {
		outcome = writeErr.Error()
	}

	entry := audit.Entry{
		Key:      descriptor.Key,
		DevID:    descriptor.DevID,
		Symbol:   descriptor.Symbol,
		Platform: string(descriptor.Platform),
		Payload:  string(payload),
		Route:    string(route),
		Outcome:  outcome,
	}
	if err := r.audit.Create(ctx, &entry); err != nil && r.logger != nil {
		r.logger.Warn("command log insert failed",
			"key", descriptor.Key,
			"error", err)
	}
}

// parseCommandPayload converts an MQTT command payload into the display
// value the write preparer expects for the entity's platform.
func parseCommandPayload(descriptor *param.Descriptor, payload []byte) (any, error) {
	text := strings.TrimSpace(string(payload))

	switch descriptor.Platform {
	case param.PlatformSwitch:
		switch strings.ToUpper(text) {
		case statePayloadOn:
			return true, nil
		case statePayloadOff:
			return false, nil
		}
		return nil, fmt.Errorf("%w: switch %s got payload %q", ErrWriteFailed, descriptor.Key, text)

	case param.PlatformNumber:
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: number %s got payload %q", ErrWriteFailed, descriptor.Key, text)
		}
		return value, nil

	case param.PlatformSelect:
		return text, nil

	case param.PlatformButton:
		// A press sends the first command rule's value, defaulting to true.
		if descriptor.Mapping != nil && len(descriptor.Mapping.CommandRules) > 0 {
			if value := descriptor.Mapping.CommandRules[0].Value; value != nil {
				return value, nil
			}
		}
		return true, nil

	default:
		return nil, fmt.Errorf("%w: %s is not writable", ErrWriteFailed, descriptor.Key)
	}
}

// write runs the full write pipeline for one entity: write context from
// the descriptor, preparation (enum resolve, transform, bounds, route),
// then vendor dispatch on the selected route. The route is returned for
// the command log even when dispatch fails.
func (r *Runtime) write(ctx context.Context, descriptor *param.Descriptor, display any) (param.Route, error) {
	writeCtx := param.WriteContext{
		Symbol:              descriptor.Symbol,
		HasParameterAddress: descriptor.HasDirectAddress(),
		HasCommandRule:      descriptor.HasCommandRule(),
		RawMin:              descriptor.Min,
		RawMax:              descriptor.Max,
	}
	// The derived enum map is empty (not nil) for non-enum symbols; only a
	// populated map means enum resolution applies.
	if len(descriptor.EnumMap) > 0 {
		writeCtx.EnumMapping = descriptor.EnumMap
	}

	prepared, err := param.PrepareWrite(display, writeCtx)
	if err != nil {
		return "", err
	}

	switch prepared.Route {
	case param.RouteParameterWrite:
		err := r.client.CommandParameter(ctx, descriptor.DevID, *descriptor.Pool, descriptor.ParameterName(), prepared.RawValue)
		if err != nil {
			return prepared.Route, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return prepared.Route, nil

	case param.RouteRawCommand:
		rule := param.SelectCommandRule(descriptor.Mapping.CommandRules, prepared.RawValue)
		if rule.Command == "" {
			return prepared.Route, fmt.Errorf("%w: %s", ErrNoCommand, descriptor.Key)
		}
		value := rule.Value
		if value == nil {
			value = prepared.RawValue
		}
		if err := r.client.CommandRaw(ctx, descriptor.DevID, rule.Command, value); err != nil {
			return prepared.Route, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return prepared.Route, nil

	default:
		return prepared.Route, fmt.Errorf("%w: %s selected unknown route %q", ErrWriteFailed, descriptor.Key, prepared.Route)
	}
}
