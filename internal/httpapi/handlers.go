package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kairos-exchange/orderbook/internal/book"
	"github.com/kairos-exchange/orderbook/internal/feed"
)

// placeOrderRequest is the JSON body for POST /orders. OrderId is optional:
// when omitted a server-assigned id is used, since a REST caller has no
// natural way to derive the uint64 ids the core book keys orders by.
type placeOrderRequest struct {
	OrderId   *uint64 `json:"order_id"`
	Side      string  `json:"side" binding:"required"`
	OrderType string  `json:"order_type" binding:"required"`
	Price     int64   `json:"price"`
	Quantity  uint64  `json:"quantity" binding:"required"`
}

type tradeResponse struct {
	BidOrderId uint64 `json:"bid_order_id"`
	AskOrderId uint64 `json:"ask_order_id"`
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
}

type placeOrderResponse struct {
	OrderId uint64          `json:"order_id"`
	Trades  []tradeResponse `json:"trades"`
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, err := book.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orderType, err := book.ParseOrderType(req.OrderType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := req.OrderId
	var orderId book.OrderId
	if id != nil {
		orderId = book.OrderId(*id)
	} else {
		orderId = book.OrderId(s.nextOrderId())
	}

	var order *book.Order
	if orderType == book.Market {
		order = book.NewMarketOrder(orderId, side, book.Quantity(req.Quantity))
	} else {
		order = book.NewOrder(orderType, orderId, side, book.Price(req.Price), book.Quantity(req.Quantity))
	}

	existed := s.book.Contains(orderId)
	trades := s.book.AddOrder(order)
	switch {
	case existed:
		s.metrics.ObserveRejection(orderType.String(), "duplicate-id")
	case len(trades) == 0 && !s.book.Contains(orderId):
		s.metrics.ObserveRejection(orderType.String(), "no-state-change")
	default:
		s.observeAndPublish(orderType.String(), side, trades)
	}

	resp := placeOrderResponse{OrderId: uint64(orderId), Trades: make([]tradeResponse, 0, len(trades))}
	for _, tr := range trades {
		resp.Trades = append(resp.Trades, tradeResponse{
			BidOrderId: uint64(tr.Bid.OrderId),
			AskOrderId: uint64(tr.Ask.OrderId),
			Price:      s.scale.Decimal(tr.Bid.Price).String(),
			Quantity:   s.scale.QuantityDecimal(tr.Bid.Quantity).String(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	orderId := book.OrderId(id)
	existed := s.book.Contains(orderId)
	s.book.CancelOrder(orderId)
	if existed {
		s.metrics.ObserveCancel(s.book.Size())
	}
	s.publishDepth()
	c.Status(http.StatusNoContent)
}

type modifyOrderRequest struct {
	Side     string `json:"side" binding:"required"`
	Price    int64  `json:"price"`
	Quantity uint64 `json:"quantity" binding:"required"`
}

func (s *Server) handleModifyOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req modifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, err := book.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderId := book.OrderId(id)
	trades := s.book.ModifyOrder(book.OrderModify{
		Id:       orderId,
		Side:     side,
		Price:    book.Price(req.Price),
		Quantity: book.Quantity(req.Quantity),
	})
	if len(trades) == 0 && !s.book.Contains(orderId) {
		s.metrics.ObserveRejection("Modify", "no-state-change")
	} else {
		s.observeAndPublish("Modify", side, trades)
	}
	c.JSON(http.StatusOK, gin.H{"trade_count": len(trades)})
}

func (s *Server) handleGetBook(c *gin.Context) {
	infos := s.book.GetOrderInfos()
	c.JSON(http.StatusOK, gin.H{
		"bids": infos.Bids.Display(s.scale),
		"asks": infos.Asks.Display(s.scale),
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	if err := s.hub.ServeWS(c.Writer, c.Request, clientID); err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

func (s *Server) observeAndPublish(orderTypeLabel string, side book.Side, trades book.Trades) {
	quantities := make([]float64, 0, len(trades))
	for _, tr := range trades {
		quantities = append(quantities, float64(tr.Bid.Quantity))
		s.hub.Publish(feed.TopicTrades, tradeResponse{
			BidOrderId: uint64(tr.Bid.OrderId),
			AskOrderId: uint64(tr.Ask.OrderId),
			Price:      s.scale.Decimal(tr.Bid.Price).String(),
			Quantity:   s.scale.QuantityDecimal(tr.Bid.Quantity).String(),
		})
	}
	s.metrics.ObserveAdd(orderTypeLabel, side.String(), quantities, s.book.Size())
	s.publishDepth()
}

func (s *Server) publishDepth() {
	infos := s.book.GetOrderInfos()
	s.hub.Publish(feed.TopicDepth, gin.H{
		"bids": infos.Bids.Display(s.scale),
		"asks": infos.Asks.Display(s.scale),
	})
}
