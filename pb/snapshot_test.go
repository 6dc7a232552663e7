package pb

import (
	"context"
	"reflect"
	"testing"
	"tetrisengine/tetris"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestSnapshotStruct(t *testing.T) {
	tts := tetris.NewTestTetris(tetris.T)
	tts.Stack[19][0] = "#f00000"
	tts.Score = 300
	tts.Level = 2
	tts.Lines = 12
	tts.Rotate()
	want := tts.Snapshot()

	st, err := FromSnapshot(want)
	if err != nil {
		t.Fatalf("FromSnapshot() error: %v", err)
	}
	if got := st.GetFields()["score"].GetNumberValue(); got != 300 {
		t.Errorf("wanted score field 300, got %v", got)
	}
	rows := st.GetFields()["board"].GetListValue().GetValues()
	if len(rows) != tetris.Height {
		t.Fatalf("wanted %d board rows, got %d", tetris.Height, len(rows))
	}
	if got := rows[19].GetListValue().GetValues()[0].GetStringValue(); got != "#f00000" {
		t.Errorf("wanted board cell to be #f00000, got %q", got)
	}

	got, err := ToSnapshot(st)
	if err != nil {
		t.Fatalf("ToSnapshot() error: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestToSnapshotWrongType(t *testing.T) {
	st, err := structpb.NewStruct(map[string]any{"score": "many"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ToSnapshot(st); err == nil {
		t.Error("expected an error decoding a string score")
	}
}

func TestSessionFromContext(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Error("expected no session without metadata")
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(SessionKey, "123"))
	id, ok := SessionFromContext(ctx)
	if !ok || id != "123" {
		t.Errorf("wanted session 123, got %q, %t", id, ok)
	}

	out := WithSession(context.Background(), "456")
	md, _ := metadata.FromOutgoingContext(out)
	if got := md.Get(SessionKey); len(got) != 1 || got[0] != "456" {
		t.Errorf("wanted outgoing session 456, got %v", got)
	}
}
