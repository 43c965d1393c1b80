package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/lmsgate/internal/common"
	"github.com/dmitrijs2005/lmsgate/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "lms.identity.v1.IdentityService"

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

var observeSessionDesc = &grpc.StreamDesc{
	StreamName:    "ObserveSession",
	ServerStreams: true,
}

// GRPCClient implements Service and SettingsStore over gRPC.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	cc          grpc.ClientConnInterface

	logger logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

type ClientOption func(*GRPCClient)

// WithLogger sets the logger used for session stream diagnostics.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *GRPCClient) { c.logger = l.With("module", "identity") }
}

var (
	_ Service       = (*GRPCClient)(nil)
	_ SettingsStore = (*GRPCClient)(nil)
)

func NewGRPCClient(endpointURL string, opts ...ClientOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	for _, o := range opts {
		o(c)
	}
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamTokenInterceptor),
	)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.cc = conn
	return c, nil
}

func (c *GRPCClient) log() logging.Logger {
	if c.logger == nil {
		return logging.Nop{}
	}
	return c.logger
}

func (c *GRPCClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *GRPCClient) setTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.mu.Unlock()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AccessTokenHeaderName, "Bearer "+token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the current access token. When the
// service rejects it as expired, the session is refreshed once and the call
// retried with the new token.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != "token expired" || refresh == "" {
		return err
	}

	refreshReq, rerr := structpb.NewStruct(map[string]any{"refresh_token": refresh})
	if rerr != nil {
		return err
	}
	refreshResp := &structpb.Struct{}
	if rerr := invoker(ctx, fullMethod("RefreshSession"), refreshReq, refreshResp, cc, opts...); rerr != nil {
		return err
	}

	access = stringField(refreshResp, "access_token")
	c.setTokens(access, stringField(refreshResp, "refresh_token"))

	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func (c *GRPCClient) streamTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	access, _ := c.tokens()
	return streamer(withAccessToken(ctx, access), desc, cc, method, opts...)
}

func (c *GRPCClient) call(ctx context.Context, name string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", name, err)
	}
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod(name), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) CheckStatus(ctx context.Context, email string) (UserStatus, error) {
	resp, err := c.call(ctx, "CheckStatus", map[string]any{"email": email})
	if err != nil {
		return UserStatus{}, mapError(err, ErrValidation)
	}
	return UserStatus{
		Exists:      boolField(resp, "exists"),
		PasswordSet: boolField(resp, "password_set"),
		Invited:     boolField(resp, "invited"),
	}, nil
}

func (c *GRPCClient) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	resp, err := c.call(ctx, "SignInWithPassword", map[string]any{"email": email, "password": password})
	if err != nil {
		return nil, mapError(err, ErrInvalidCredentials)
	}
	return c.acceptSession(resp)
}

func (c *GRPCClient) SendOneTimeCode(ctx context.Context, email string, allowCreate bool) error {
	_, err := c.call(ctx, "SendOneTimeCode", map[string]any{"email": email, "allow_create": allowCreate})
	if err != nil {
		return mapError(err, ErrValidation)
	}
	return nil
}

func (c *GRPCClient) VerifyOneTimeCode(ctx context.Context, email, code string) (*User, error) {
	resp, err := c.call(ctx, "VerifyOneTimeCode", map[string]any{"email": email, "code": code})
	if err != nil {
		return nil, mapError(err, ErrInvalidCode)
	}
	return c.acceptSession(resp)
}

func (c *GRPCClient) SetPasswordAndProfile(ctx context.Context, password, fullName string) error {
	resp, err := c.call(ctx, "SetPasswordAndProfile", map[string]any{"password": password, "full_name": fullName})
	if err != nil {
		return mapError(err, ErrInvalidCredentials)
	}
	c.refreshFrom(resp)
	return nil
}

func (c *GRPCClient) UpdatePassword(ctx context.Context, password string) error {
	resp, err := c.call(ctx, "UpdatePassword", map[string]any{"password": password})
	if err != nil {
		return mapError(err, ErrInvalidCredentials)
	}
	c.refreshFrom(resp)
	return nil
}

// SignOut ends the remote session. Local tokens are dropped even if the
// call fails.
func (c *GRPCClient) SignOut(ctx context.Context) error {
	_, err := c.call(ctx, "SignOut", nil)
	c.setTokens("", "")
	if err != nil {
		return mapError(err, ErrInvalidCredentials)
	}
	return nil
}

func (c *GRPCClient) GetSetting(ctx context.Context, key string) (string, error) {
	resp, err := c.call(ctx, "GetSetting", map[string]any{"key": key})
	if err != nil {
		return "", mapError(err, ErrInvalidCredentials)
	}
	v, ok := resp.GetFields()["value"]
	if !ok {
		return "", ErrNotFound
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NumberValue:
		return fmt.Sprintf("%g", kind.NumberValue), nil
	case *structpb.Value_NullValue:
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("setting %q has unsupported type", key)
	}
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.call(ctx, "Ping", nil)
	if err != nil {
		return mapError(err, ErrUnavailable)
	}
	if stringField(resp, "status") != "OK" {
		return ErrUnavailable
	}
	return nil
}

// ObserveSession opens the server stream of session changes.
func (c *GRPCClient) ObserveSession(ctx context.Context) (<-chan SessionEvent, error) {
	cs, err := c.cc.NewStream(ctx, observeSessionDesc, fullMethod("ObserveSession"))
	if err != nil {
		return nil, mapError(err, ErrInvalidCredentials)
	}
	if err := cs.SendMsg(&structpb.Struct{}); err != nil {
		return nil, mapError(err, ErrInvalidCredentials)
	}
	if err := cs.CloseSend(); err != nil {
		return nil, mapError(err, ErrInvalidCredentials)
	}

	events := make(chan SessionEvent)
	go func() {
		defer close(events)
		for {
			msg := &structpb.Struct{}
			if err := cs.RecvMsg(msg); err != nil {
				switch {
				case ctx.Err() != nil:
				case errors.Is(err, io.EOF):
					c.log().Warn(ctx, "session stream closed by server")
				default:
					c.log().Warn(ctx, "session stream failed", "error", err)
				}
				return
			}
			ev, err := c.sessionEvent(msg)
			if err != nil {
				c.log().Warn(ctx, "dropping undecodable session event", "error", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (c *GRPCClient) sessionEvent(msg *structpb.Struct) (SessionEvent, error) {
	ev := SessionEvent{Recovery: boolField(msg, "recovery")}
	access := stringField(msg, "access_token")
	if access == "" {
		c.setTokens("", "")
		return ev, nil
	}
	user, err := userFromToken(access)
	if err != nil {
		return ev, err
	}
	c.setTokens(access, stringField(msg, "refresh_token"))
	ev.User = user
	return ev, nil
}

// acceptSession stores the tokens of a freshly established session and
// returns its user.
func (c *GRPCClient) acceptSession(resp *structpb.Struct) (*User, error) {
	access := stringField(resp, "access_token")
	user, err := userFromToken(access)
	if err != nil {
		return nil, err
	}
	c.setTokens(access, stringField(resp, "refresh_token"))
	return user, nil
}

// refreshFrom picks up reissued tokens, if the response carries any.
func (c *GRPCClient) refreshFrom(resp *structpb.Struct) {
	if access := stringField(resp, "access_token"); access != "" {
		c.setTokens(access, stringField(resp, "refresh_token"))
	}
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// mapError translates gRPC status codes into the package error taxonomy.
// unauthenticated is the error Unauthenticated/PermissionDenied means for
// the calling method.
func mapError(err error, unauthenticated error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return unauthenticated
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrValidation, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.ResourceExhausted:
		return &ServiceError{Code: http.StatusTooManyRequests, Message: st.Message()}
	default:
		return &ServiceError{Code: http.StatusInternalServerError, Message: st.Message()}
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}
