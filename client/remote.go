package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"tetrisengine/pb"
	"tetrisengine/tetris"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const closeTimeout = 2 * time.Second

// remoteGame is a game hosted by a session server.
type remoteGame struct {
	conn      *grpc.ClientConn
	client    pb.SessionsClient
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
	updates   chan *tetris.Snapshot
	stream    grpc.ServerStreamingClient[structpb.Struct]
	startOnce sync.Once
	stopOnce  sync.Once
}

// dialRemote connects to addr, creates a new session and waits for its first
// snapshot. ctx bounds the setup only.
func dialRemote(ctx context.Context, addr string, l *slog.Logger, opts ...grpc.DialOption) (*remoteGame, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create gRPC client: %w", err)
	}
	client := pb.NewSessionsClient(conn)
	id, err := client.Create(ctx, &emptypb.Empty{})
	if err != nil {
		if err := conn.Close(); err != nil {
			l.Error("unable to close gRPC client", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("unable to create session: %w", err)
	}
	l.Info("online session created", slog.String("session", id.GetValue()))

	sctx, cancel := context.WithCancel(pb.WithSession(context.Background(), id.GetValue()))
	r := &remoteGame{
		conn:    conn,
		client:  client,
		ctx:     sctx,
		cancel:  cancel,
		logger:  l.With(slog.String("session", id.GetValue())),
		updates: make(chan *tetris.Snapshot, 1),
	}
	if err := r.watch(ctx); err != nil {
		r.Stop()
		return nil, err
	}
	return r, nil
}

// watch opens the snapshot stream and queues the first snapshot.
func (r *remoteGame) watch(ctx context.Context) error {
	stream, err := r.client.Watch(r.ctx, &emptypb.Empty{})
	if err != nil {
		return fmt.Errorf("unable to create gRPC Watch stream: %w", err)
	}
	first := make(chan error, 1)
	go func() {
		rcv, err := stream.Recv()
		if err != nil {
			first <- fmt.Errorf("unable to receive first snapshot: %w", err)
			return
		}
		s, err := pb.ToSnapshot(rcv)
		if err != nil {
			first <- err
			return
		}
		r.updates <- s
		first <- nil
	}()
	select {
	case err := <-first:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("unable to receive first snapshot: %w", ctx.Err())
	}
	r.stream = stream
	return nil
}

// Subscribe returns the single stream of snapshots of the session.
func (r *remoteGame) Subscribe() (<-chan *tetris.Snapshot, func()) {
	return r.updates, func() {}
}

// Start forwards the snapshots of the session until it ends.
func (r *remoteGame) Start() {
	r.startOnce.Do(func() { go r.listen(r.stream) })
}

func (r *remoteGame) listen(stream grpc.ServerStreamingClient[structpb.Struct]) {
	defer close(r.updates)
	for {
		rcv, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Debug("stream.Recv() closed with EOF")
				return
			}
			st, ok := status.FromError(err)
			if ok && st.Code() == codes.Canceled {
				r.logger.Debug("stream.Recv() closed with Cancel", slog.String("msg", st.Message()))
			} else {
				r.logger.Error("stream.Recv() unable to receive message", slog.String("error", err.Error()))
			}
			return
		}
		s, err := pb.ToSnapshot(rcv)
		if err != nil {
			r.logger.Error("unable to decode snapshot", slog.String("error", err.Error()))
			continue
		}
		select {
		case r.updates <- s:
		default:
			select {
			case <-r.updates:
			default:
			}
			r.updates <- s
		}
	}
}

func (r *remoteGame) Action(a tetris.Action) *tetris.Snapshot {
	rcv, err := r.client.Command(r.ctx, wrapperspb.String(string(a)))
	if err != nil {
		r.logger.Error("unable to send command", slog.String("action", string(a)), slog.String("error", err.Error()))
		return nil
	}
	s, err := pb.ToSnapshot(rcv)
	if err != nil {
		r.logger.Error("unable to decode snapshot", slog.String("error", err.Error()))
		return nil
	}
	return s
}

// Stop closes the session on the server and the connection.
func (r *remoteGame) Stop() {
	r.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(r.ctx, closeTimeout)
		defer cancel()
		if _, err := r.client.Close(ctx, &emptypb.Empty{}); err != nil {
			r.logger.Error("unable to close session", slog.String("error", err.Error()))
		}
		r.cancel()
		if err := r.conn.Close(); err != nil {
			r.logger.Error("unable to close gRPC client", slog.String("error", err.Error()))
		}
	})
}
