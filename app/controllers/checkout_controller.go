package controllers

import (
	"context"
	"time"

	"github.com/andefred/eldsal/app/repository"
	"github.com/andefred/eldsal/internal/pkg/billing"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/andefred/eldsal/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

const checkoutTimeout = 20 * time.Second

// CheckoutController starts checkouts and reads the member's billing state at
// the checkout provider.
type CheckoutController struct {
	billing *billing.Service
	members repository.MemberRepository
}

func NewCheckoutController(billingService *billing.Service, members repository.MemberRepository) *CheckoutController {
	return &CheckoutController{billing: billingService, members: members}
}

// HandleCreateSession opens a checkout session for the price given in ?price=.
func (cc *CheckoutController) HandleCreateSession(c *fiber.Ctx) error {
	f, ok := flavourParam(c)
	if !ok {
		return unknownFlavour(c)
	}
	priceID := c.Query("price")
	if priceID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_input", "Missing price")
	}

	member, err := cc.members.GetBySubject(usercontext.GetSubject(c))
	if err != nil {
		return serviceError(c, err, "load member")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	session, err := cc.billing.CreateCheckoutSession(ctx, member, f, priceID)
	if err != nil {
		return serviceError(c, err, "create checkout session")
	}
	return c.JSON(fiber.Map{"id": session.ID, "url": session.URL})
}

// HandleReconcileSession folds the member's last checkout session into the
// stored billing link.
func (cc *CheckoutController) HandleReconcileSession(c *fiber.Ctx) error {
	f, ok := flavourParam(c)
	if !ok {
		return unknownFlavour(c)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	update, err := cc.billing.ReconcileCheckout(ctx, usercontext.GetSubject(c), f)
	if err != nil {
		return serviceError(c, err, "reconcile checkout session")
	}
	return c.JSON(fiber.Map{
		"customer": update.Link.CustomerID,
		"session":  update.Link.SessionID,
		"status":   update.Link.Status,
		"changed":  update.Changed,
	})
}

// HandleSubscriptions lists the member's subscriptions of both fees.
func (cc *CheckoutController) HandleSubscriptions(c *fiber.Ctx) error {
	member, err := cc.members.GetBySubject(usercontext.GetSubject(c))
	if err != nil {
		return serviceError(c, err, "load member")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	subs, err := cc.billing.Subscriptions(ctx, member)
	if err != nil {
		return serviceError(c, err, "list subscriptions")
	}
	return c.JSON(fiber.Map{
		"membfeeSubs":   subs[fees.FlavourMembership],
		"housecardSubs": subs[fees.FlavourHousecard],
	})
}

// HandlePrices returns the fee's price and product catalog.
func (cc *CheckoutController) HandlePrices(c *fiber.Ctx) error {
	f, ok := flavourParam(c)
	if !ok {
		return unknownFlavour(c)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	catalog, err := cc.billing.Catalog(ctx, f)
	if err != nil {
		return serviceError(c, err, "load prices")
	}
	return c.JSON(catalog)
}
