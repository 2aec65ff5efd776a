package protocol

import (
	"encoding/json"
	"fmt"

	"vibe/internal/types"
)

// DecodeHistory replays a page of historical events through the live
// decoder; there is no separate history parser. Events that fail to decode
// are skipped, and state-machine events are discarded: history never drives
// turn transitions.
func (d *Decoder) DecodeHistory(events []types.HistoryEvent, baseIndex int) []types.Message {
	var out []types.Message
	for i, ev := range events {
		if len(ev.AgentMessage) == 0 {
			continue
		}
		id := ev.MsgID
		if id == "" {
			id = fmt.Sprintf("history_%d", baseIndex+i)
		}
		data := json.RawMessage(`{"agent_message":` + string(ev.AgentMessage) + `}`)
		res := d.Decode(types.Envelope{
			Type:      types.FrameModelResponse,
			MsgID:     id,
			Timestamp: ev.Timestamp,
			ProjectID: ev.ProjectID,
			Data:      data,
		})
		out = append(out, res.Messages...)
	}
	return out
}
