package game

// Outbound message types.
const (
	MsgError             = "error"
	MsgJoinSuccess       = "join_success"
	MsgWorldState        = "world_state"
	MsgZoneRefresh       = "zone_refresh"
	MsgWorldReset        = "world_reset"
	MsgPlayerJoined      = "player_joined"
	MsgPlayerMoved       = "player_moved"
	MsgPlayerChatted     = "player_chatted"
	MsgPlayerLeft        = "player_left"
	MsgTileUpdated       = "tile_updated"
	MsgFoodSpawned       = "food_spawned"
	MsgFoodRemoved       = "food_removed"
	MsgFaunaSpawned      = "fauna_spawned"
	MsgFaunaMoved        = "fauna_moved"
	MsgFaunaStageChanged = "fauna_stage_changed"
	MsgFaunaDied         = "fauna_died"
	MsgFaunaRemoved      = "fauna_removed"
)

// ReasonNameTaken is sent when a join request uses a name already in play.
const ReasonNameTaken = "name_taken"

type ErrorMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type JoinSuccessMessage struct {
	Type string `json:"type"`
}

// WorldMessage carries a full snapshot: world_state, zone_refresh and
// world_reset.
type WorldMessage struct {
	Type     string    `json:"type"`
	PlayerID string    `json:"player_id,omitempty"`
	World    *Snapshot `json:"world"`
}

type PlayerMessage struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"player_id"`
	Data     *PlayerView `json:"data,omitempty"`
}

type ChatMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

type TileUpdate struct {
	X    int       `json:"x"`
	Y    int       `json:"y"`
	Type TileState `json:"type"`
}

type TileMessage struct {
	Type string     `json:"type"`
	Tile TileUpdate `json:"tile"`
}

type FoodMessage struct {
	Type   string `json:"type"`
	FoodID string `json:"food_id"`
	Data   *Vec   `json:"data,omitempty"`
}

// FaunaEvent reports a change to a single creature. Data is a copy taken
// when the event was raised.
type FaunaEvent struct {
	Type    string    `json:"type"`
	FaunaID string    `json:"fauna_id"`
	Data    *Creature `json:"data,omitempty"`
}

// NewFaunaEvent snapshots c into an event of type typ.
func NewFaunaEvent(typ string, c *Creature) FaunaEvent {
	return FaunaEvent{Type: typ, FaunaID: c.ID, Data: c.Clone()}
}
