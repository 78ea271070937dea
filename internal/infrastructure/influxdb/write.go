package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteParameterValue records a numeric parameter reading, tagged by
// module and symbol (plus pool when known). Non-blocking; points are
// batched and flushed asynchronously.
func (c *Client) WriteParameterValue(devID, symbol, pool string, value float64) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"devid":  devID,
		"symbol": symbol,
	}
	if pool != "" {
		tags["pool"] = pool
	}

	point := write.NewPoint(
		"parameter",
		tags,
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteParameterState records a non-numeric parameter reading, such as a
// select label or binary state. Stored as a string field so enum history
// survives label changes without schema work.
func (c *Client) WriteParameterState(devID, symbol, pool, state string) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"devid":  devID,
		"symbol": symbol,
	}
	if pool != "" {
		tags["pool"] = pool
	}

	point := write.NewPoint(
		"parameter_state",
		tags,
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats records bridge-level counters (entity counts, update and
// write throughput). Called periodically by the runtime.
func (c *Client) WriteBridgeStats(bridgeID string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_stats",
		map[string]string{
			"bridge_id": bridgeID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
