package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"planpay/internal/catalog"
	"planpay/internal/config"
	"planpay/internal/domain"
	"planpay/internal/logger"
	"planpay/internal/usecase"
)

const (
	msgInvalidAmount       = "Invalid amount provided"
	msgCreateOrderFailed   = "Internal Server Error while creating order."
	msgInvalidVerification = "Invalid payment verification request"
	msgSignatureMismatch   = "Payment signature mismatch"
	msgVerifyFailed        = "Internal Server Error while verifying payment."
	msgMissingToken        = "Missing entitlement token"
	msgInvalidToken        = "Invalid entitlement token"
)

type Deps struct {
	Orders       *usecase.OrderService
	Payments     *usecase.PaymentService
	Entitlements *usecase.EntitlementService
	Catalog      *catalog.Catalog
	Log          logger.Logger
}

type Server struct {
	cfg    config.Config
	deps   Deps
	engine *gin.Engine
}

func New(cfg config.Config, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.MustDefault()
	}
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, deps: deps, engine: gin.New()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(requestLogger(s.deps.Log))
	r.Use(recovery(s.deps.Log))
	r.Use(corsMiddleware(s.cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up"})
	})

	api := r.Group("/api")
	api.POST("/create-order", s.handleCreateOrder)
	api.POST("/verify-payment", s.handleVerifyPayment)
	api.GET("/plans", s.handlePlans)
	api.GET("/checkout/config", s.handleCheckoutConfig)
	api.GET("/entitlement", s.handleEntitlement)
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, msgInvalidAmount)
		return
	}
	amount, err := usecase.ParseAmount(req.Amount)
	if err != nil {
		s.deps.Log.Debug("rejected order request", "request_id", requestID(c), "error", err)
		s.fail(c, http.StatusBadRequest, msgInvalidAmount)
		return
	}
	order, err := s.deps.Orders.CreateOrder(c.Request.Context(), domain.OrderRequest{
		Amount: amount,
		PlanID: strings.TrimSpace(req.PlanID),
	})
	if err != nil {
		if httpStatus(err) == http.StatusBadRequest {
			s.deps.Log.Debug("rejected order request", "request_id", requestID(c), "error", err)
			s.fail(c, http.StatusBadRequest, msgInvalidAmount)
			return
		}
		s.fail(c, http.StatusInternalServerError, msgCreateOrderFailed)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleVerifyPayment(c *gin.Context) {
	var req domain.PaymentConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, msgInvalidVerification)
		return
	}
	out, err := s.deps.Payments.Verify(c.Request.Context(), req)
	if err != nil {
		switch httpStatus(err) {
		case http.StatusBadRequest:
			s.fail(c, http.StatusBadRequest, msgInvalidVerification)
		case http.StatusUnauthorized:
			s.fail(c, http.StatusUnauthorized, msgSignatureMismatch)
		default:
			s.fail(c, http.StatusInternalServerError, msgVerifyFailed)
		}
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": s.deps.Catalog.All()})
}

// handleCheckoutConfig exposes the public key id only.
func (s *Server) handleCheckoutConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"publicKey": s.cfg.RazorpayKeyID,
		"currency":  domain.CurrencyINR,
	})
}

func (s *Server) handleEntitlement(c *gin.Context) {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		s.fail(c, http.StatusUnauthorized, msgMissingToken)
		return
	}
	if s.deps.Entitlements == nil {
		s.fail(c, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	ent, err := s.deps.Entitlements.Verify(token)
	if err != nil {
		s.fail(c, httpStatus(err), msgInvalidToken)
		return
	}
	c.JSON(http.StatusOK, ent)
}

func (s *Server) fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
