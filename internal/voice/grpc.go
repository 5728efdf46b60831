package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ConnectMethod is the bidirectional streaming RPC exposed by the gateway.
const ConnectMethod = "/voicegateway.v1.VoiceGateway/Connect"

var connectStreamDesc = grpc.StreamDesc{
	StreamName:    "Connect",
	ServerStreams: true,
	ClientStreams: true,
}

// GRPCDialer opens gateway calls over a gRPC bidi stream of
// google.protobuf.Struct messages.
type GRPCDialer struct {
	Endpoint    string
	Credential  string
	DialTimeout time.Duration
	// Options replace the default insecure transport credentials when set.
	Options []grpc.DialOption
}

// Dial connects, waits for readiness, and opens the Connect stream.
func (d GRPCDialer) Dial(ctx context.Context) (Stream, error) {
	endpoint := strings.TrimSpace(d.Endpoint)
	if endpoint == "" {
		return nil, errors.New("voice gateway endpoint is empty")
	}
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	opts := d.Options
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial voice gateway %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for voice gateway readiness: %w", err)
	}

	// The call outlives the request that started it.
	streamCtx, streamCancel := context.WithCancel(context.WithoutCancel(ctx))
	if cred := strings.TrimSpace(d.Credential); cred != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+cred)
	}

	stream, err := conn.NewStream(streamCtx, &connectStreamDesc, ConnectMethod)
	if err != nil {
		streamCancel()
		_ = conn.Close()
		return nil, grpcError(fmt.Errorf("open voice gateway stream: %w", err))
	}

	return &grpcStream{conn: conn, stream: stream, cancel: streamCancel}, nil
}

// waitForReady blocks until the gRPC connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}

type grpcStream struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
	cancel context.CancelFunc

	sendMu    sync.Mutex
	closeOnce sync.Once
}

func (s *grpcStream) Send(_ context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode gateway message: %w", err)
	}
	payload := &structpb.Struct{}
	if err := protojson.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("convert gateway message: %w", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.stream.SendMsg(payload); err != nil {
		return grpcError(fmt.Errorf("send gateway message: %w", err))
	}
	return nil
}

func (s *grpcStream) Recv() (json.RawMessage, error) {
	payload := &structpb.Struct{}
	if err := s.stream.RecvMsg(payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, grpcError(err)
	}
	data, err := protojson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode gateway payload: %w", err)
	}
	return data, nil
}

func (s *grpcStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		_ = s.stream.CloseSend()
		s.sendMu.Unlock()
		s.cancel()
		err = s.conn.Close()
	})
	return err
}

// grpcError classifies status codes that carry credential meaning.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return &ServiceError{Category: categoryForAuth(st.Message()), Message: st.Message(), Err: err}
	case codes.PermissionDenied:
		return &ServiceError{Category: CategoryPermission, Message: st.Message(), Err: err}
	case codes.Canceled:
		return io.EOF
	default:
		return &ServiceError{Category: ClassifyMessage(st.Message()), Message: st.Message(), Err: err}
	}
}

// categoryForAuth keeps the more specific invalid-key category when the
// gateway reports one.
func categoryForAuth(message string) Category {
	if ClassifyMessage(message) == CategoryCredentialInvalid {
		return CategoryCredentialInvalid
	}
	return CategoryUnauthorized
}
