package gateway

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/mcdev12/hotpotato/go/internal/potato/txn"
	"github.com/rs/zerolog/log"
)

const (
	// GameServiceName is the fully-qualified name of the game command service.
	GameServiceName = "hotpotato.v1.GameService"

	GameServiceGetViewProcedure             = "/" + GameServiceName + "/GetView"
	GameServiceSubmitProcedure              = "/" + GameServiceName + "/Submit"
	GameServiceAcknowledgeGameOverProcedure = "/" + GameServiceName + "/AcknowledgeGameOver"
)

type GetViewRequest struct{}

type GetViewResponse struct {
	View ViewPayload `json:"view"`
}

type SubmitRequest struct {
	Kind string `json:"kind"`
	To   string `json:"to,omitempty"`
}

type SubmitResponse struct {
	Lifecycle models.TxLifecycle `json:"lifecycle"`
}

type AcknowledgeGameOverRequest struct{}

type AcknowledgeGameOverResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// GameService exposes session commands over connect
type GameService struct {
	session SessionAPI
}

func NewGameService(s SessionAPI) *GameService {
	return &GameService{session: s}
}

func (s *GameService) GetView(ctx context.Context, req *connect.Request[GetViewRequest]) (*connect.Response[GetViewResponse], error) {
	return connect.NewResponse(&GetViewResponse{View: NewViewPayload(s.session.View())}), nil
}

func (s *GameService) Submit(ctx context.Context, req *connect.Request[SubmitRequest]) (*connect.Response[SubmitResponse], error) {
	kind, err := models.ParseTxKind(req.Msg.Kind)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	lc, err := s.session.Submit(ctx, kind, models.NewAddress(req.Msg.To))
	if err != nil {
		return nil, toConnectError(err)
	}

	log.Info().
		Str("kind", string(kind)).
		Str("lifecycle", lc.String()).
		Msg("submission finished")
	return connect.NewResponse(&SubmitResponse{Lifecycle: lc}), nil
}

func (s *GameService) AcknowledgeGameOver(ctx context.Context, req *connect.Request[AcknowledgeGameOverRequest]) (*connect.Response[AcknowledgeGameOverResponse], error) {
	return connect.NewResponse(&AcknowledgeGameOverResponse{Acknowledged: s.session.AcknowledgeGameOver()}), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, txn.ErrPrecondition):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, txn.ErrSubmissionInFlight):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, session.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// NewGameServiceHandler builds an HTTP handler serving every GameService procedure.
func NewGameServiceHandler(svc *GameService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	getView := connect.NewUnaryHandler(GameServiceGetViewProcedure, svc.GetView, opts...)
	submit := connect.NewUnaryHandler(GameServiceSubmitProcedure, svc.Submit, opts...)
	acknowledge := connect.NewUnaryHandler(GameServiceAcknowledgeGameOverProcedure, svc.AcknowledgeGameOver, opts...)

	return "/" + GameServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GameServiceGetViewProcedure:
			getView.ServeHTTP(w, r)
		case GameServiceSubmitProcedure:
			submit.ServeHTTP(w, r)
		case GameServiceAcknowledgeGameOverProcedure:
			acknowledge.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// GameServiceClient calls GameService over connect
type GameServiceClient struct {
	getView     *connect.Client[GetViewRequest, GetViewResponse]
	submit      *connect.Client[SubmitRequest, SubmitResponse]
	acknowledge *connect.Client[AcknowledgeGameOverRequest, AcknowledgeGameOverResponse]
}

func NewGameServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GameServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &GameServiceClient{
		getView:     connect.NewClient[GetViewRequest, GetViewResponse](httpClient, baseURL+GameServiceGetViewProcedure, opts...),
		submit:      connect.NewClient[SubmitRequest, SubmitResponse](httpClient, baseURL+GameServiceSubmitProcedure, opts...),
		acknowledge: connect.NewClient[AcknowledgeGameOverRequest, AcknowledgeGameOverResponse](httpClient, baseURL+GameServiceAcknowledgeGameOverProcedure, opts...),
	}
}

func (c *GameServiceClient) GetView(ctx context.Context) (ViewPayload, error) {
	res, err := c.getView.CallUnary(ctx, connect.NewRequest(&GetViewRequest{}))
	if err != nil {
		return ViewPayload{}, err
	}
	return res.Msg.View, nil
}

func (c *GameServiceClient) Submit(ctx context.Context, kind models.TxKind, to models.Address) (models.TxLifecycle, error) {
	res, err := c.submit.CallUnary(ctx, connect.NewRequest(&SubmitRequest{Kind: string(kind), To: to.String()}))
	if err != nil {
		return models.TxLifecycle{}, err
	}
	return res.Msg.Lifecycle, nil
}

func (c *GameServiceClient) AcknowledgeGameOver(ctx context.Context) (bool, error) {
	res, err := c.acknowledge.CallUnary(ctx, connect.NewRequest(&AcknowledgeGameOverRequest{}))
	if err != nil {
		return false, err
	}
	return res.Msg.Acknowledged, nil
}
