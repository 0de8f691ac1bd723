package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/syncapi"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenSource yields the access token sent with every call; an empty token
// is sent as no header at all.
type TokenSource interface {
	AccessToken() string
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	tokens      TokenSource
	conn        *grpc.ClientConn
	sync        syncapi.SyncClient
	health      healthpb.HealthClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	token := ""
	if s.tokens != nil {
		token = s.tokens.AccessToken()
	}
	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a lazily-connecting client for endpointURL. Each
// call is bounded by timeout when it is positive.
func NewGRPCClient(endpointURL string, tokens TokenSource, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, tokens: tokens, timeout: timeout}
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", endpointURL, err)
	}
	c.conn = conn
	c.sync = syncapi.NewSyncClient(conn)
	c.health = healthpb.NewHealthClient(conn)
	return c, nil
}

func (s *GRPCClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Pull ignores userID: the server takes the user from the access token.
func (s *GRPCClient) Pull(ctx context.Context, userID string, since time.Time) (*PullResult, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.sync.Pull(ctx, &syncapi.PullRequest{Since: since})
	if err != nil {
		return nil, s.mapError("pull", err)
	}

	res := &PullResult{Records: make([]models.Record, 0, len(resp.Records))}
	for _, r := range resp.Records {
		rec, err := fromWire(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (s *GRPCClient) Push(ctx context.Context, userID string, since time.Time, records []models.Record) (*PushResult, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	req := &syncapi.PushRequest{Since: since, Records: make([]syncapi.Record, 0, len(records))}
	for _, r := range records {
		req.Records = append(req.Records, toWire(r))
	}

	resp, err := s.sync.Push(ctx, req)
	if err != nil {
		return nil, s.mapError("push", err)
	}

	res := &PushResult{Cursor: resp.Cursor}
	for _, a := range resp.Accepted {
		ack, err := fromWireAck(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		res.Accepted = append(res.Accepted, ack)
	}
	for _, c := range resp.Conflicts {
		res.Conflicts = append(res.Conflicts, fromWireConflict(c))
	}
	return res, nil
}

// Ping asks the standard health service whether the server is serving.
func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return s.mapError("ping", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return &common.TransportError{Op: "ping", Err: ErrUnavailable}
	}
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Aborted:
		return &common.TransportError{Op: op, Err: err}
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %s", op, common.ErrValidation, st.Message())
	default:
		return fmt.Errorf("%s: rpc error: %w", op, err)
	}
}
