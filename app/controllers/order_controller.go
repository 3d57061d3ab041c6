package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

type OrderController struct {
	orders   *repositories.OrderRepository
	checkout *services.CheckoutService
}

func NewOrderController(orders *repositories.OrderRepository, checkout *services.CheckoutService) *OrderController {
	return &OrderController{orders: orders, checkout: checkout}
}

// Index lists orders newest first, filtered by status and user.
func (oc *OrderController) Index(c *ctx.Context) {
	status := c.Query("status")
	if status != "" && !models.ValidOrderStatus(status) {
		c.Error(http.StatusBadRequest, "Invalid status")
		return
	}

	orders, err := oc.orders.List(c.Context(), status, c.Query("userId"))
	if err != nil {
		fail(c, err, "Order not found")
		return
	}
	c.SuccessWithMeta(orders, count{Count: len(orders)})
}

func (oc *OrderController) Show(c *ctx.Context) {
	o, err := oc.orders.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Order not found")
		return
	}
	if o == nil {
		c.NotFound("Order not found")
		return
	}
	c.Success(o)
}

type declined struct {
	Reason         string   `json:"reason"`
	ReservationIDs []string `json:"reservationIds"`
}

// Checkout places an order. The order is only stored, and the response is
// only a success, once the payment has come back successful.
func (oc *OrderController) Checkout(c *ctx.Context) {
	var in services.CheckoutInput
	if !c.BindJSON(&in) {
		return
	}

	order, err := oc.checkout.Place(c.Context(), in)
	if de, ok := services.IsDeclined(err); ok {
		c.ErrorWithData(http.StatusPaymentRequired, "Payment declined", declined{
			Reason:         de.Reason,
			ReservationIDs: de.ReservationIDs,
		})
		return
	}
	if err != nil {
		fail(c, err, "Product not found")
		return
	}
	c.Created(order)
}
