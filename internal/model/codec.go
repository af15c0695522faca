package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the version of the event wire format
const SchemaVersion = 1

// wireEvent is the durable and export form of an Event
type wireEvent struct {
	Version     int             `json:"v"`
	ID          string          `json:"event_id,omitempty"`
	EventType   EventType       `json:"event_type"`
	GameID      GameID          `json:"game_id"`
	SequenceNum int64           `json:"sequence_num"`
	Timestamp   time.Time       `json:"timestamp"`
	PlayerID    *PlayerID       `json:"player_id"`
	Data        json.RawMessage `json:"data"`
}

type payloadDecoder func(data []byte) (Payload, error)

var payloadDecoders = map[EventType]payloadDecoder{
	EventGameCreated:    decodeAs[GameCreatedPayload],
	EventPlayerJoined:   decodeAs[PlayerJoinedPayload],
	EventPlayerLeft:     decodeAs[PlayerLeftPayload],
	EventGameStarted:    decodeAs[GameStartedPayload],
	EventRoundStarted:   decodeAs[RoundStartedPayload],
	EventInitialFlip:    decodeAs[InitialFlipPayload],
	EventCardDrawn:      decodeAs[CardDrawnPayload],
	EventCardSwapped:    decodeAs[CardSwappedPayload],
	EventCardDiscarded:  decodeAs[CardDiscardedPayload],
	EventCardFlipped:    decodeAs[CardFlippedPayload],
	EventFlipSkipped:    decodeAs[FlipSkippedPayload],
	EventFlipAsAction:   decodeAs[FlipAsActionPayload],
	EventKnockedEarly:   decodeAs[KnockedEarlyPayload],
	EventDeckReshuffled: decodeAs[DeckReshuffledPayload],
	EventRoundEnded:     decodeAs[RoundEndedPayload],
	EventGameEnded:      decodeAs[GameEndedPayload],
	EventGameAbandoned:  decodeAs[GameAbandonedPayload],
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var p T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// MarshalJSON encodes the event in its wire form
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s/%d has no payload", e.GameID, e.SequenceNum)
	}
	if e.Payload.EventType() != e.Type {
		return nil, fmt.Errorf("event type %s does not match payload %s", e.Type, e.Payload.EventType())
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	w := wireEvent{
		Version:     SchemaVersion,
		ID:          e.ID,
		EventType:   e.Type,
		GameID:      e.GameID,
		SequenceNum: e.SequenceNum,
		Timestamp:   e.Timestamp.UTC(),
		Data:        data,
	}
	if e.PlayerID != "" {
		pid := e.PlayerID
		w.PlayerID = &pid
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form, rejecting unknown event types and
// payloads that do not match their declared type
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Version > SchemaVersion {
		return fmt.Errorf("unsupported event schema version %d", w.Version)
	}
	decode, ok := payloadDecoders[w.EventType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, w.EventType)
	}
	data := w.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	payload, err := decode(data)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", w.EventType, err)
	}

	*e = Event{
		ID:          w.ID,
		GameID:      w.GameID,
		SequenceNum: w.SequenceNum,
		Type:        w.EventType,
		Timestamp:   w.Timestamp,
		Payload:     payload,
	}
	if w.PlayerID != nil {
		e.PlayerID = *w.PlayerID
	}
	return nil
}

// EncodePayload returns the JSON form of an event's data object
func EncodePayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload decodes a data object for the given event type
func DecodePayload(t EventType, data []byte) (Payload, error) {
	decode, ok := payloadDecoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
	return decode(data)
}

// RebaseEvents copies events under a new game id, keeping their sequence,
// payloads and timestamps. Event ids are cleared so the log assigns new ones.
func RebaseEvents(events []Event, gameID GameID) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.ID = ""
		e.GameID = gameID
		out[i] = e
	}
	return out
}
