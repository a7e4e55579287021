package httpapi

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/quotes"
	"github.com/dmitrijs2005/moneo/internal/server/services"
	"github.com/dmitrijs2005/moneo/internal/server/symbols"
	"github.com/gofiber/fiber/v2"
)

type handlers struct {
	deps Deps
}

func (h *handlers) routes(r fiber.Router, auth fiber.Handler) {
	r.Post("/auth/signup", h.signup)
	r.Post("/auth/login", h.login)
	r.Get("/auth/profile", auth, h.profile)

	r.Get("/stock/:symbol", auth, h.stock)

	r.Post("/transaction", auth, h.createTransaction)
	r.Get("/transaction", auth, h.listTransactions)
	r.Delete("/transaction/:id", auth, h.deleteTransaction)

	r.Get("/watchlist", auth, h.listWatchlist)
	r.Post("/watchlist", auth, h.addWatchlist)
	r.Delete("/watchlist/:symbol", auth, h.removeWatchlist)

	r.Get("/portfolio", auth, h.portfolio)
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// decodeJSON reads the body regardless of Content-Type.
func decodeJSON(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return common.Validationf("request body is required")
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return common.Validationf("malformed JSON body")
	}
	return nil
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	res, err := h.deps.Users.Signup(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	res, err := h.deps.Users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *handlers) profile(c *fiber.Ctx) error {
	p, err := h.deps.Users.Profile(c.UserContext(), userIDOf(c))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// stock serves GET /stock/:symbol. ?nowait=true fails fast instead of waiting
// for a provider token.
func (h *handlers) stock(c *fiber.Ctx) error {
	sym, err := symbols.Normalize(param(c, "symbol"))
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if noWait, _ := strconv.ParseBool(c.Query("nowait")); noWait {
		ctx = quotes.WithNoWait(ctx)
	}
	q, err := h.deps.Quotes.Get(ctx, sym)
	if err != nil {
		return err
	}
	return c.JSON(q)
}

// transactionRequest accepts the price as priceAtPurchase or price.
type transactionRequest struct {
	Symbol          string   `json:"symbol"`
	Quantity        *int64   `json:"quantity"`
	PriceAtPurchase *float64 `json:"priceAtPurchase"`
	Price           *float64 `json:"price"`
	Side            string   `json:"side"`
}

func (h *handlers) createTransaction(c *fiber.Ctx) error {
	var req transactionRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	if req.Quantity == nil {
		return common.Validationf("quantity is required")
	}
	price := req.PriceAtPurchase
	if price == nil {
		price = req.Price
	}

	t, err := h.deps.Holdings.Create(c.UserContext(), userIDOf(c), services.TradeInput{
		Symbol:   req.Symbol,
		Quantity: *req.Quantity,
		Price:    price,
		Side:     models.Side(strings.ToUpper(strings.TrimSpace(req.Side))),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *handlers) listTransactions(c *fiber.Ctx) error {
	txs, err := h.deps.Holdings.List(c.UserContext(), userIDOf(c))
	if err != nil {
		return err
	}
	return c.JSON(txs)
}

func (h *handlers) deleteTransaction(c *fiber.Ctx) error {
	id := param(c, "id")
	if err := h.deps.Holdings.Delete(c.UserContext(), userIDOf(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "deleted": true})
}

type watchlistRequest struct {
	Symbol string `json:"symbol"`
}

func (h *handlers) listWatchlist(c *fiber.Ctx) error {
	syms, err := h.deps.Watchlist.List(c.UserContext(), userIDOf(c))
	if err != nil {
		return err
	}
	return c.JSON(syms)
}

func (h *handlers) addWatchlist(c *fiber.Ctx) error {
	var req watchlistRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	syms, err := h.deps.Watchlist.Add(c.UserContext(), userIDOf(c), req.Symbol)
	if err != nil {
		return err
	}
	return c.JSON(syms)
}

func (h *handlers) removeWatchlist(c *fiber.Ctx) error {
	syms, err := h.deps.Watchlist.Remove(c.UserContext(), userIDOf(c), param(c, "symbol"))
	if err != nil {
		return err
	}
	return c.JSON(syms)
}

// portfolio answers 207 when some positions could not be priced.
func (h *handlers) portfolio(c *fiber.Ctx) error {
	p, err := h.deps.Portfolio.Value(c.UserContext(), userIDOf(c))
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if p.Partial() {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(p)
}

// param returns a path parameter, unescaped and copied out of fiber's
// reusable buffer.
func param(c *fiber.Ctx, name string) string {
	v := c.Params(name)
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	return strings.Clone(v)
}
