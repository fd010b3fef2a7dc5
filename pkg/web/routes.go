package web

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/ngduyd/ecommerce-payments/pkg/dispatcher"
	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	"github.com/ngduyd/ecommerce-payments/pkg/report"
	"github.com/ngduyd/ecommerce-payments/pkg/resolvers"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// maxWebhookBody bounds the raw body read for signature verification.
const maxWebhookBody = 1 << 20

// Server wires the resolver and dispatcher surfaces onto HTTP routes.
type Server struct {
	resolver   *resolvers.Resolver
	dispatcher *dispatcher.Dispatcher
	store      storage.Store
}

func NewServer(r *resolvers.Resolver, d *dispatcher.Dispatcher, store storage.Store) *Server {
	return &Server{resolver: r, dispatcher: d, store: store}
}

// Register mounts every route on the engine. Identity arrives from the
// upstream gateway as headers; this service trusts its own edge.
func (s *Server) Register(e *gin.Engine) {
	api := e.Group("/api", actorMiddleware())
	{
		api.GET("/payments/methods", s.paymentMethods)
		api.POST("/payments/cod", s.createCOD)
		api.POST("/payments/zalopay", s.createZaloPay)
		api.POST("/payments/vnpay", s.createVNPay)
		api.POST("/payments/stripe", s.createStripe)
		api.POST("/payments/stripe/checkout", s.createStripeCheckout)
		api.POST("/payments/stripe/confirm", s.confirmStripe)
		api.PUT("/payments/:id/status", s.updateStatus)
		api.DELETE("/payments/:id", s.deletePayment)
		api.GET("/reports/payments.xlsx", s.paymentsReport)
	}

	e.GET("/payment/return", s.paymentReturn)
	e.POST("/payment/callback", s.zalopayCallback)
	e.GET("/vnpay/ipn", s.vnpayIPN)
	e.POST("/stripe/webhook", s.stripeWebhook)
}

const actorKey = "payment.actor"

func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := resolvers.Actor{
			UserID: cast.ToUint(c.GetHeader("X-User-ID")),
			Admin:  c.GetHeader("X-User-Role") == "admin",
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) resolvers.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(resolvers.Actor); ok {
			return actor
		}
	}
	return resolvers.Actor{}
}

type createPaymentRequest struct {
	OrderID       uint   `json:"order_id" binding:"required"`
	BankCode      string `json:"bank_code"`
	OrderType     string `json:"order_type"`
	Locale        string `json:"locale"`
	CustomerEmail string `json:"customer_email"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

func (s *Server) paymentMethods(c *gin.Context) {
	respond(c, resolvers.Response{
		Success: true,
		Message: "Payment methods",
		Code:    http.StatusOK,
		Data:    map[string]interface{}{"methods": payments.AvailableChannels()},
	})
}

func (s *Server) createCOD(c *gin.Context) {
	req, ok := bindCreate(c)
	if !ok {
		return
	}
	respond(c, s.resolver.CreatePaymentCOD(c.Request.Context(), actorFrom(c), req.OrderID))
}

func (s *Server) createZaloPay(c *gin.Context) {
	req, ok := bindCreate(c)
	if !ok {
		return
	}
	respond(c, s.resolver.CreatePaymentZaloPay(c.Request.Context(), actorFrom(c), req.OrderID))
}

func (s *Server) createVNPay(c *gin.Context) {
	req, ok := bindCreate(c)
	if !ok {
		return
	}
	respond(c, s.resolver.CreatePaymentVNPay(c.Request.Context(), actorFrom(c), req.OrderID, req.BankCode, req.OrderType, req.Locale, c.ClientIP()))
}

func (s *Server) createStripe(c *gin.Context) {
	req, ok := bindCreate(c)
	if !ok {
		return
	}
	respond(c, s.resolver.CreatePaymentStripe(c.Request.Context(), actorFrom(c), req.OrderID, req.CustomerEmail))
}

func (s *Server) createStripeCheckout(c *gin.Context) {
	req, ok := bindCreate(c)
	if !ok {
		return
	}
	respond(c, s.resolver.CreateStripeCheckoutSession(c.Request.Context(), actorFrom(c), req.OrderID, req.SuccessURL, req.CancelURL))
}

func (s *Server) confirmStripe(c *gin.Context) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, failResponse(apperrors.ErrIntentIDRequired))
		return
	}
	respond(c, s.resolver.ConfirmStripePayment(c.Request.Context(), actorFrom(c), req.PaymentIntentID))
}

func (s *Server) updateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, failResponse(apperrors.ErrInvalidStatus))
		return
	}
	respond(c, s.resolver.UpdatePaymentStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status))
}

func (s *Server) deletePayment(c *gin.Context) {
	respond(c, s.resolver.DeletePayment(c.Request.Context(), actorFrom(c), c.Param("id")))
}

func (s *Server) paymentsReport(c *gin.Context) {
	if !actorFrom(c).Admin {
		respond(c, resolvers.Response{Success: false, Message: "You are not allowed to perform this action", Code: http.StatusForbidden})
		return
	}
	from := parseDate(c.Query("from"))
	to := parseDate(c.Query("to"))

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=payments-%s.xlsx", time.Now().Format("20060102")))
	if err := report.WritePayments(c.Request.Context(), s.store, c.Writer, from, to); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) paymentReturn(c *gin.Context) {
	result := s.dispatcher.HandleReturn(c.Request.Context(), flattenQuery(c))
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, result.RenderHTML())
}

func (s *Server) vnpayIPN(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.HandleVNPayIPN(c.Request.Context(), flattenQuery(c)))
}

func (s *Server) zalopayCallback(c *gin.Context) {
	// The callback JSON mixes types ("type" is a number), so bind
	// loosely and coerce each field to string for verification.
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusOK, dispatcher.CallbackResponse{ReturnCode: -1, ReturnMessage: "invalid payload"})
		return
	}
	form := make(map[string]string, len(body))
	for k, v := range body {
		form[k] = cast.ToString(v)
	}
	c.JSON(http.StatusOK, s.dispatcher.HandleZaloPayCallback(c.Request.Context(), form))
}

func (s *Server) stripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook error")
		return
	}
	if err := s.dispatcher.HandleStripeWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature")); err != nil {
		c.String(http.StatusBadRequest, "Webhook error")
		return
	}
	c.String(http.StatusOK, "Webhook handled")
}

func bindCreate(c *gin.Context) (createPaymentRequest, bool) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, failResponse(apperrors.ErrOrderIDRequired))
		return req, false
	}
	return req, true
}

func respond(c *gin.Context, resp resolvers.Response) {
	c.JSON(resp.Code, resp)
}

func failResponse(err *apperrors.Error) resolvers.Response {
	return resolvers.Response{Success: false, Message: err.Message, Code: err.Status}
}

func flattenQuery(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
