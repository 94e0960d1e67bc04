// internal/domain/order/workflow.go
package order

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/domain/cart"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/metrics"
)

// State is a step of the submission state machine
type State string

const (
	StateCollecting State = "collecting"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var (
	ErrEmptyCart         = apperrors.New(apperrors.CodeValidation, "Cart is empty")
	ErrSubmitInProgress  = apperrors.New(apperrors.CodeConflict, "Your order is already being placed")
	ErrOrderNotPersisted = apperrors.New(apperrors.CodeDependency, "We could not place your order. Please try again.")
)

// Cart is the part of the cart store the workflow reads and clears
type Cart interface {
	Count() int
	Snapshot(deliveryType pricing.DeliveryType) ([]cart.Line, pricing.Totals)
	Consume(ctx context.Context, ordered []cart.Line) error
}

// Notifier is told about every placed order. Failures are logged only.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order, receipt storage.Receipt) error
}

// Result is the outcome of a submission
type Result struct {
	State   State            `json:"state"`
	OrderID string           `json:"orderId,omitempty"`
	Backend string           `json:"backend,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Errors  ValidationErrors `json:"errors,omitempty"`
	Order   *Order           `json:"order,omitempty"`
}

// Workflow turns a checkout form and a cart into a stored order
type Workflow struct {
	sink      storage.Sink[*Order]
	guard     Guard
	validator *Validator
	notifiers []Notifier
	logger    logrus.FieldLogger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewWorkflow creates the submission workflow
func NewWorkflow(sink storage.Sink[*Order], guard Guard, logger logrus.FieldLogger, m *metrics.Metrics, notifiers ...Notifier) *Workflow {
	return &Workflow{
		sink:      sink,
		guard:     guard,
		validator: NewValidator(),
		notifiers: notifiers,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit validates the input, stores the order and clears the cart. On any
// failure the cart is left as it was and the returned error explains why.
func (w *Workflow) Submit(ctx context.Context, sessionID string, c Cart, in CheckoutInput) (*Result, error) {
	res := &Result{State: StateCollecting}
	in.Normalize()
	logger := w.logger.WithField("session_id", sessionID)

	res.State = StateValidating
	if err := w.validator.Check(&in, c.Count()); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			res.Errors = verrs
		}
		return w.fail(res, "validation", err)
	}

	release, ok, err := w.guard.Acquire(ctx, sessionID)
	if err != nil {
		logger.WithError(err).Warn("submit guard unavailable")
		return w.fail(res, "guard", apperrors.Wrap(apperrors.CodeDependency, err, ErrOrderNotPersisted.Message))
	}
	if !ok {
		return w.fail(res, "guard", ErrSubmitInProgress)
	}
	defer release()

	res.State = StateSubmitting
	deliveryType := pricing.DeliveryType(in.DeliveryType)
	lines, totals := c.Snapshot(deliveryType)
	if len(lines) == 0 {
		return w.fail(res, "submitting", ErrEmptyCart)
	}

	o := w.buildOrder(lines, totals, &in)
	o.SessionKey = SessionKey(sessionID)
	receipt, err := w.sink.Append(ctx, o)
	if err != nil {
		logger.WithError(err).Error("failed to store order")
		return w.fail(res, "persist", apperrors.Wrap(apperrors.CodeDependency, err, ErrOrderNotPersisted.Message))
	}

	if err := c.Consume(ctx, lines); err != nil {
		logger.WithError(err).Error("failed to remove ordered lines from cart")
	}

	for _, n := range w.notifiers {
		if err := n.OrderPlaced(ctx, o, receipt); err != nil {
			logger.WithError(err).WithField("order_id", o.ID).Warn("order notifier failed")
		}
	}

	w.metrics.OrderSubmitted(string(o.PaymentMethod))
	logger.WithFields(logrus.Fields{
		"order_id": receipt.ID,
		"backend":  receipt.Backend,
		"total":    pricing.Format(o.Total),
	}).Info("order placed")

	res.State = StateSucceeded
	res.OrderID = receipt.ID
	res.Backend = receipt.Backend
	res.Order = o.Public()
	return res, nil
}

func (w *Workflow) fail(res *Result, stage string, err error) (*Result, error) {
	w.metrics.OrderFailed(stage)
	res.State = StateFailed
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		res.Reason = verrs.Error()
	} else {
		res.Reason = apperrors.As(err).Message
	}
	return res, err
}

// buildOrder assembles the record from one cart snapshot. The card number is
// masked and the CVV and expiry date are dropped.
func (w *Workflow) buildOrder(lines []cart.Line, totals pricing.Totals, in *CheckoutInput) *Order {
	rounded := totals.Rounded()
	o := &Order{
		Items:         make([]OrderItem, len(lines)),
		Subtotal:      rounded.Subtotal,
		Tax:           rounded.Tax,
		DeliveryFee:   rounded.DeliveryFee,
		Total:         rounded.Total,
		PaymentMethod: PaymentMethod(in.PaymentMethod),
		DeliveryType:  pricing.DeliveryType(in.DeliveryType),
		Name:          stringPtr(in.Name),
		Phone:         stringPtr(in.Phone),
		Email:         stringPtr(in.Email),
		Instructions:  stringPtr(in.Instructions),
		UserID:        in.UserID,
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusPending,
		CreatedAt:     w.now().UTC(),
	}
	for i, l := range lines {
		o.Items[i] = OrderItem{
			Position:      i,
			ItemID:        l.ItemID,
			Name:          l.Name,
			Price:         pricing.Round(l.UnitPrice),
			Quantity:      l.Quantity,
			Customization: pricing.FormatCustomization(l.Customization),
		}
	}

	if o.DeliveryType == pricing.DeliveryTypeDelivery {
		o.AddressLine = stringPtr(in.AddressLine)
		o.City = stringPtr(in.City)
		o.Pincode = stringPtr(in.Pincode)
	}

	switch o.PaymentMethod {
	case PaymentMethodCOD:
		o.PaymentStatus = PaymentStatusCashOnDelivery
	case PaymentMethodCard:
		o.CardMasked = stringPtr(MaskCardNumber(in.CardNumber))
	case PaymentMethodUPI:
		o.UpiID = stringPtr(in.UpiID)
	}
	return o
}
