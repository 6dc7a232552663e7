package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"testing"
	"tetrisengine/pb"
	"tetrisengine/tetris"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	client, _, closer := testServer()
	defer closer()

	id, err := client.Create(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Create: %v", err)
	}
	if _, err := uuid.Parse(id.GetValue()); err != nil {
		t.Errorf("expected a uuid session id, got %q", id.GetValue())
	}
}

func TestCommand(t *testing.T) {
	ctx := context.Background()
	client, _, closer := testServer()
	defer closer()

	id, err := client.Create(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Create: %v", err)
	}
	sctx := pb.WithSession(ctx, id.GetValue())

	tests := []struct {
		name     string
		ctx      context.Context
		action   string
		wantCode codes.Code
	}{
		{
			name:     "valid action",
			ctx:      sctx,
			action:   string(tetris.MoveLeft),
			wantCode: codes.OK,
		},
		{
			name:     "unknown action",
			ctx:      sctx,
			action:   "jump",
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "missing session",
			ctx:      ctx,
			action:   string(tetris.MoveLeft),
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "unknown session",
			ctx:      pb.WithSession(ctx, "nope"),
			action:   string(tetris.MoveLeft),
			wantCode: codes.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := client.Command(tt.ctx, wrapperspb.String(tt.action))
			if got := status.Code(err); got != tt.wantCode {
				t.Fatalf("expected code %v, got %v (%v)", tt.wantCode, got, err)
			}
			if tt.wantCode != codes.OK {
				return
			}
			snap, err := pb.ToSnapshot(st)
			if err != nil {
				t.Fatalf("error decoding snapshot: %v", err)
			}
			// any tetromino can move left from the spawn position of an empty stack.
			if snap.Position.X != tetris.SpawnPosition.X-1 {
				t.Errorf("expected X %d, got %d", tetris.SpawnPosition.X-1, snap.Position.X)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, _, closer := testServer()
	defer closer()

	id, err := client.Create(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Create: %v", err)
	}
	sctx := pb.WithSession(ctx, id.GetValue())

	stream, err := client.Watch(sctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Watch: %v", err)
	}
	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("error receiving first snapshot: %v", err)
	}
	snap, err := pb.ToSnapshot(first)
	if err != nil {
		t.Fatalf("error decoding snapshot: %v", err)
	}
	if snap.Position != tetris.SpawnPosition || snap.Level != 1 {
		t.Errorf("expected a new game, got %+v", snap)
	}

	if _, err := client.Command(sctx, wrapperspb.String(string(tetris.DropDown))); err != nil {
		t.Fatalf("error calling Command: %v", err)
	}
	for locked := false; !locked; {
		st, err := stream.Recv()
		if err != nil {
			t.Fatalf("error receiving snapshot: %v", err)
		}
		snap, err := pb.ToSnapshot(st)
		if err != nil {
			t.Fatalf("error decoding snapshot: %v", err)
		}
		for _, c := range snap.Stack[tetris.Height-1] {
			if c != "" {
				locked = true
			}
		}
	}

	if _, err := client.Close(sctx, &emptypb.Empty{}); err != nil {
		t.Fatalf("error calling Close: %v", err)
	}
	for {
		_, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("expected watch to end with EOF, got %v", err)
		}
	}

	_, err = client.Command(sctx, wrapperspb.String(string(tetris.MoveLeft)))
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound after Close, got %v", err)
	}
	_, err = client.Close(sctx, &emptypb.Empty{})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound closing twice, got %v", err)
	}
}

func TestShutdown(t *testing.T) {
	srv := New(&Options{InitialSpeed: time.Hour})
	ctx := context.Background()
	id, err := srv.Create(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Create: %v", err)
	}
	srv.Shutdown()
	if len(srv.sessions) != 0 {
		t.Errorf("expected no sessions after Shutdown, got %d", len(srv.sessions))
	}
	_, err = srv.Command(pbIncoming(id.GetValue()), wrapperspb.String(string(tetris.MoveLeft)))
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound after Shutdown, got %v", err)
	}
}

func TestWatchClientGone(t *testing.T) {
	client, srv, closer := testServer()
	defer closer()

	id, err := client.Create(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Create: %v", err)
	}
	ctx, cancel := context.WithCancel(pb.WithSession(context.Background(), id.GetValue()))
	stream, err := client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("error calling Watch: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("error receiving first snapshot: %v", err)
	}
	srv.mu.Lock()
	g := srv.sessions[id.GetValue()]
	srv.mu.Unlock()

	// the client leaves without calling Close.
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		srv.mu.Lock()
		n := len(srv.sessions)
		srv.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected no sessions after the client left, got %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Error("expected the game of the session to be stopped")
	}
}

func pbIncoming(id string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pb.SessionKey, id))
}

func testServer() (pb.SessionsClient, *Server, func()) {
	buffer := 101024 * 1024
	lis := bufconn.Listen(buffer)

	srv := New(&Options{InitialSpeed: time.Hour})
	s := grpc.NewServer()
	pb.RegisterSessionsServer(s, srv)
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Printf("error connecting to server: %v", err)
	}

	closer := func() {
		if err := conn.Close(); err != nil {
			log.Printf("error closing connection: %v", err)
		}
		srv.Shutdown()
		s.Stop()
		if err := lis.Close(); err != nil {
			log.Printf("error closing listener: %v", err)
		}
	}

	return pb.NewSessionsClient(conn), srv, closer
}
