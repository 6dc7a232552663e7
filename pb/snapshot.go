package pb

import (
	"encoding/json"
	"fmt"
	"tetrisengine/tetris"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// FromSnapshot encodes a game snapshot as a Struct.
func FromSnapshot(s *tetris.Snapshot) (*structpb.Struct, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("failed to convert snapshot to struct: %w", err)
	}
	return st, nil
}

// ToSnapshot decodes a Struct created with FromSnapshot.
func ToSnapshot(st *structpb.Struct) (*tetris.Snapshot, error) {
	b, err := protojson.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal struct: %w", err)
	}
	s := &tetris.Snapshot{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("failed to convert struct to snapshot: %w", err)
	}
	return s, nil
}
