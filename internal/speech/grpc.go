package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultMethod is the unary method invoked on the speech service.
const DefaultMethod = "/speech.v1.Transcriber/Listen"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GrpcConfig holds configuration for the speech-to-text client.
type GrpcConfig struct {
	Address          string
	Method           string
	SessionID        string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcConfig returns default configuration for addr.
func DefaultGrpcConfig(addr string) GrpcConfig {
	return GrpcConfig{
		Address:          addr,
		Method:           DefaultMethod,
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   30 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GrpcListener asks an external speech-to-text service for one transcript per
// call. Request and response are google.protobuf.Struct messages, so the
// service needs no generated stubs on this side:
//
//	request:  {"session_id": "..."}
//	response: {"transcript": "...", "no_match": false}
type GrpcListener struct {
	conn   *grpc.ClientConn
	cfg    GrpcConfig
	logger *slog.Logger
}

// NewGrpcListener connects to the speech service and waits until the
// connection is ready, so a bad address fails at startup.
func NewGrpcListener(cfg GrpcConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GrpcListener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client for %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("speech service at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to speech service", "address", cfg.Address, "method", cfg.Method)
	return &GrpcListener{conn: conn, cfg: cfg, logger: logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Listen implements Listener. A response flagged no_match, or one with an
// empty transcript, is unusable input. So is a request that outlives
// RequestTimeout while ctx itself is still live (nothing was said).
func (l *GrpcListener) Listen(ctx context.Context) (string, bool, error) {
	reqCtx := ctx
	if l.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := structpb.NewStruct(map[string]any{"session_id": l.cfg.SessionID})
	if err != nil {
		return "", false, fmt.Errorf("build speech request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := l.conn.Invoke(reqCtx, l.cfg.Method, req, resp); err != nil {
		if status.Code(err) == codes.DeadlineExceeded && ctx.Err() == nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("speech request failed: %w", err)
	}

	fields := resp.GetFields()
	if fields["no_match"].GetBoolValue() {
		l.logger.Debug("Speech service reported no match")
		return "", false, nil
	}
	text := strings.ToLower(strings.TrimSpace(fields["transcript"].GetStringValue()))
	if text == "" {
		return "", false, nil
	}
	l.logger.Debug("Transcript received", "text", text)
	return text, true, nil
}

// Close closes the gRPC connection.
func (l *GrpcListener) Close() {
	if l.conn != nil {
		if err := l.conn.Close(); err != nil {
			l.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}
