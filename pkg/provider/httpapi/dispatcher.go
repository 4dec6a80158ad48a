package httpapi

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
)

// MutationDispatcher carries out menu actions as ManuelUpdate calls,
// moving one unit per activation.
type MutationDispatcher struct {
	client    *Client
	depot     string
	productID string
	opTypes   map[interact.Action]string
	after     func(ctx context.Context, req interact.Request)
	logger    *log.Logger
}

// DispatcherOption configures a MutationDispatcher.
type DispatcherOption func(*MutationDispatcher)

// WithProductID sets the product moved by add and remove.
func WithProductID(id string) DispatcherOption {
	return func(d *MutationDispatcher) { d.productID = id }
}

// WithOperationType maps a menu action to the API's OperationType value.
func WithOperationType(a interact.Action, op string) DispatcherOption {
	return func(d *MutationDispatcher) { d.opTypes[a] = op }
}

// WithAfterUpdate registers a callback run after every successful update,
// typically to invalidate caches and refresh the scene.
func WithAfterUpdate(fn func(ctx context.Context, req interact.Request)) DispatcherOption {
	return func(d *MutationDispatcher) { d.after = fn }
}

// WithDispatchLogger sets the logger. The default is log.Default().
func WithDispatchLogger(l *log.Logger) DispatcherOption {
	return func(d *MutationDispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher returns a dispatcher updating depot through c.
func NewDispatcher(c *Client, depot string, opts ...DispatcherOption) *MutationDispatcher {
	d := &MutationDispatcher{
		client: c,
		depot:  depot,
		opTypes: map[interact.Action]string{
			interact.ActionAdd:    string(interact.ActionAdd),
			interact.ActionRemove: string(interact.ActionRemove),
		},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch implements interact.Dispatcher.
func (d *MutationDispatcher) Dispatch(ctx context.Context, req interact.Request) error {
	op, ok := d.opTypes[req.Action]
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "cannot %s", req.Action)
	}
	if req.Box == nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s without a target location", req.Action)
	}
	_, err := d.client.ManuelUpdate(ctx, UpdateRequest{
		Depot:         d.depot,
		OperationType: op,
		Location:      req.Box.SourceID,
		Amount:        1,
		ProductID:     d.productID,
	})
	if err != nil {
		return err
	}
	d.logger.Info("inventory updated", "depot", d.depot, "action", req.Action, "location", req.Box.SourceID)
	if d.after != nil {
		d.after(ctx, req)
	}
	return nil
}

var _ interact.Dispatcher = (*MutationDispatcher)(nil)
